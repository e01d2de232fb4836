package render

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/danmuck/edgeview/internal/node"
	"github.com/danmuck/edgeview/internal/testutil/testlog"
)

func TestDirtyTrackerMarkIsIdempotent(t *testing.T) {
	testlog.Start(t)

	d := NewDirtyTracker()
	w := &fakeNode{id: "w"}
	d.MarkDirty(w, true)
	d.MarkDirty(w, true)
	if d.Len() != 1 {
		t.Fatalf("unexpected dirty len: %d", d.Len())
	}
	if d.MoreWork() {
		t.Fatalf("laterOnly marks must not raise more work")
	}
	d.MarkDirty(w, false)
	if !d.MoreWork() || d.Len() != 1 {
		t.Fatalf("unexpected tracker state: more=%v len=%d", d.MoreWork(), d.Len())
	}
	d.MarkClean(w)
	if !d.IsEmpty() || d.Contains(w) {
		t.Fatalf("expected empty tracker after clean")
	}
}

func TestDirtyTrackerKeepsInsertionOrder(t *testing.T) {
	testlog.Start(t)

	d := NewDirtyTracker()
	a, b, c := &fakeNode{id: "a"}, &fakeNode{id: "b"}, &fakeNode{id: "c"}
	d.MarkDirty(a, false)
	d.MarkDirty(b, false)
	d.MarkDirty(c, false)
	d.MarkClean(b)
	d.MarkDirty(b, false)

	got := make([]string, 0, 3)
	for _, n := range d.Nodes() {
		got = append(got, n.ID())
	}
	if strings.Join(got, ",") != "a,c,b" {
		t.Fatalf("unexpected order: %v", got)
	}
	if !d.Contains(c) {
		t.Fatalf("expected c to remain indexed after removal shift")
	}
}

func TestCollectMarkingTwiceEmitsOnce(t *testing.T) {
	testlog.Start(t)

	root := &fakeNode{id: "root", rendered: true, withDelete: true}
	r := newTestRenderer(&fakeApp{roots: []node.Node{root}})
	r.MarkDirty(root, false)
	r.MarkDirty(root, false)

	var out strings.Builder
	n, err := r.collectJS(&out)
	if err != nil {
		t.Fatalf("collectJS: %v", err)
	}
	if n != 2 || root.produced != 1 {
		t.Fatalf("unexpected emission: records=%d produced=%d", n, root.produced)
	}
	if out.String() != "del(root);upd(root);" {
		t.Fatalf("unexpected script: %q", out.String())
	}
	if !r.State().Dirty().IsEmpty() {
		t.Fatalf("expected empty dirty set")
	}
}

func TestCollectDepthOrdering(t *testing.T) {
	testlog.Start(t)

	a := &fakeNode{id: "A", rendered: true, withDelete: true}
	b := &fakeNode{id: "B", parent: a, rendered: true, withDelete: true}
	c := &fakeNode{id: "C", rendered: true, withDelete: true}
	d := &fakeNode{id: "D", parent: a, rendered: true, withDelete: true}
	r := newTestRenderer(&fakeApp{roots: []node.Node{a}})
	a.onProduce = func() { r.MarkDirty(d, false) }

	// marked deepest first to show grouping, not marking order, decides
	r.MarkDirty(b, false)
	r.MarkDirty(c, false)
	r.MarkDirty(a, false)

	var out strings.Builder
	if _, err := r.collectJS(&out); err != nil {
		t.Fatalf("collectJS: %v", err)
	}
	want := "del(A);del(B);del(D);upd(A);upd(B);upd(D);"
	if out.String() != want {
		t.Fatalf("unexpected script:\n got %q\nwant %q", out.String(), want)
	}
	if c.renderOk != 1 || c.produced != 0 {
		t.Fatalf("detached node should be render-ok only: renderOk=%d produced=%d", c.renderOk, c.produced)
	}
	if !r.State().Dirty().IsEmpty() {
		t.Fatalf("expected dirty set to end empty, have %d", r.State().Dirty().Len())
	}
}

func TestCollectVisibleOnlyLeavesUnrenderedNodes(t *testing.T) {
	testlog.Start(t)

	root := &fakeNode{id: "root", rendered: true}
	hidden := &fakeNode{id: "hidden", parent: root}
	r := newTestRenderer(&fakeApp{roots: []node.Node{root}})
	r.MarkDirty(root, false)
	r.MarkDirty(hidden, false)

	var out strings.Builder
	if _, err := r.collectJS(&out); err != nil {
		t.Fatalf("collectJS: %v", err)
	}
	if out.String() != "upd(root);" {
		t.Fatalf("unexpected script: %q", out.String())
	}
	if !r.State().Dirty().Contains(hidden) {
		t.Fatalf("off-screen node must stay dirty")
	}
}

func TestCollectTerminatesWithBoundedWork(t *testing.T) {
	testlog.Start(t)

	root := &fakeNode{id: "root", rendered: true}
	r := newTestRenderer(&fakeApp{roots: []node.Node{root}})

	const chain = 40
	prev := root
	nodes := make([]*fakeNode, 0, chain)
	for i := 0; i < chain; i++ {
		n := &fakeNode{id: fmt.Sprintf("n%d", i), parent: prev, rendered: true}
		nodes = append(nodes, n)
		prev = n
	}
	// each node dirties its successor, raising one unit of new work per pass
	root.onProduce = func() { r.MarkDirty(nodes[0], false) }
	for i := 0; i < chain-1; i++ {
		next := nodes[i+1]
		nodes[i].onProduce = func() { r.MarkDirty(next, false) }
	}
	r.MarkDirty(root, false)

	n, err := r.collectJS(nil)
	if err != nil {
		t.Fatalf("collectJS: %v", err)
	}
	if n != chain+1 {
		t.Fatalf("unexpected record count: %d", n)
	}
	if !r.State().Dirty().IsEmpty() {
		t.Fatalf("expected convergence")
	}
}

func TestCollectRunawayNodeIsInvariantError(t *testing.T) {
	testlog.Start(t)

	root := &fakeNode{id: "root", rendered: true}
	r := newTestRenderer(&fakeApp{roots: []node.Node{root}})
	root.onProduce = func() { r.MarkDirty(root, false) }
	r.MarkDirty(root, false)

	_, err := r.collectJS(nil)
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("expected ErrInvariant, got %v", err)
	}
	if r.State().collecting {
		t.Fatalf("collecting flag must be released")
	}
}

func TestCollectContractViolation(t *testing.T) {
	testlog.Start(t)

	root := &fakeNode{id: "root", rendered: true, fail: errBrokenNode}
	r := newTestRenderer(&fakeApp{roots: []node.Node{root}})
	r.MarkDirty(root, false)

	_, err := r.collectJS(nil)
	if !errors.Is(err, ErrContractViolation) {
		t.Fatalf("expected ErrContractViolation, got %v", err)
	}
	if !r.State().Dirty().Contains(root) {
		t.Fatalf("failed node must not be dropped")
	}
}

func TestBatchOrderingHoldsForRandomEmission(t *testing.T) {
	testlog.Start(t)

	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		b := node.NewBatch()
		for i := 0; i < 1+rng.Intn(30); i++ {
			phase := node.PriorityUpdate
			if rng.Intn(2) == 0 {
				phase = node.PriorityDelete
			}
			if err := b.Add(node.ScriptRecord{NodeID: fmt.Sprint(i), Phase: phase, Text: "x;"}); err != nil {
				t.Fatalf("add: %v", err)
			}
		}
		records := b.Records()
		if err := node.Validate(records); err != nil {
			t.Fatalf("round %d: %v", round, err)
		}
		lastDelete, firstUpdate := -1, len(records)
		for i, rec := range records {
			if rec.Priority() == node.PriorityDelete {
				lastDelete = i
			} else if i < firstUpdate {
				firstUpdate = i
			}
		}
		if lastDelete > firstUpdate {
			t.Fatalf("round %d: delete at %d after update at %d", round, lastDelete, firstUpdate)
		}
	}
}
