package render

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/danmuck/edgeview/internal/node"
	"github.com/danmuck/edgeview/internal/testutil/testlog"
)

func TestAckSequencerScenario(t *testing.T) {
	testlog.Start(t)

	r := newTestRenderer(&fakeApp{roots: []node.Node{&fakeNode{id: "root", rendered: true}}})
	s := r.State()
	s.ack.expected = 7
	s.unacked.WriteString("P")
	if id := s.ack.Stamp(); id != 7 {
		t.Fatalf("unexpected stamped id: %d", id)
	}

	if err := r.Ack(6); !errors.Is(err, ErrStaleAck) {
		t.Fatalf("expected stale ack, got %v", err)
	}
	if s.PendingScript() != "P" || s.AckState() != AckBufferPending {
		t.Fatalf("stale ack must keep buffer: %q %s", s.PendingScript(), s.AckState())
	}

	if err := r.Ack(7); err != nil {
		t.Fatalf("ack 7: %v", err)
	}
	if s.PendingScript() != "" || s.ExpectedAckID() != 8 || s.AckState() != AckIdle {
		t.Fatalf("unexpected state after ack: %q expected=%d %s", s.PendingScript(), s.ExpectedAckID(), s.AckState())
	}

	if err := r.Ack(7); !errors.Is(err, ErrStaleAck) {
		t.Fatalf("expected repeated ack to be stale, got %v", err)
	}
	if s.ExpectedAckID() != 8 {
		t.Fatalf("repeated ack moved expected id to %d", s.ExpectedAckID())
	}
}

func TestAckSequencerMonotonicUnderRandomInterleaving(t *testing.T) {
	testlog.Start(t)

	rng := rand.New(rand.NewSource(42))
	var a AckSequencer
	last := a.Expected()
	for i := 0; i < 5000; i++ {
		if rng.Intn(3) == 0 {
			if id := a.Stamp(); id != a.Expected() {
				t.Fatalf("stamp returned %d, expected %d", id, a.Expected())
			}
			continue
		}
		before := a.Expected()
		pending := a.State() == AckBufferPending
		id := before + rng.Intn(5) - 2
		err := a.Ack(id)
		accept := pending && id == before
		switch {
		case accept && err != nil:
			t.Fatalf("matching ack %d rejected: %v", id, err)
		case !accept && err == nil:
			t.Fatalf("ack %d accepted (expected %d, pending %v)", id, before, pending)
		case !accept && a.Expected() != before:
			t.Fatalf("rejected ack moved expected id")
		case accept && a.Expected() != before+1:
			t.Fatalf("accepted ack moved expected id to %d", a.Expected())
		}
		if a.Expected() < last {
			t.Fatalf("expected id decreased: %d -> %d", last, a.Expected())
		}
		last = a.Expected()
	}
}

func TestAckPromotesInvisibleWork(t *testing.T) {
	testlog.Start(t)

	r := newTestRenderer(&fakeApp{roots: []node.Node{&fakeNode{id: "root", rendered: true}}})
	s := r.State()
	s.unacked.WriteString("visible;")
	s.invisible.WriteString("offscreen;")
	id := s.ack.Stamp()

	if err := r.Ack(id); err != nil {
		t.Fatalf("ack: %v", err)
	}
	if s.PendingScript() != "offscreen;" || s.InvisibleScript() != "" {
		t.Fatalf("unexpected buffers: pending=%q invisible=%q", s.PendingScript(), s.InvisibleScript())
	}
}

func TestAckWithoutPendingUpdateIsIgnored(t *testing.T) {
	testlog.Start(t)

	var a AckSequencer
	for _, id := range []int{0, 1} {
		if err := a.Ack(id); !errors.Is(err, ErrStaleAck) {
			t.Fatalf("ack %d while idle: expected ErrStaleAck, got %v", id, err)
		}
	}
	if a.Expected() != 0 || a.State() != AckIdle {
		t.Fatalf("idle acks moved the sequencer: expected=%d %s", a.Expected(), a.State())
	}

	id := a.Stamp()
	if err := a.Ack(id); err != nil {
		t.Fatalf("ack %d: %v", id, err)
	}
	if err := a.Ack(a.Expected()); !errors.Is(err, ErrStaleAck) {
		t.Fatalf("second ack without a flush should be ignored, got %v", err)
	}
	if a.Expected() != 1 {
		t.Fatalf("expected id should advance once per flush, got %d", a.Expected())
	}
}
