package render

import "fmt"

// AckState is the state of the acknowledgment window.
type AckState int

const (
	AckIdle AckState = iota
	AckBufferPending
)

func (s AckState) String() string {
	if s == AckBufferPending {
		return "buffer_pending"
	}
	return "idle"
}

// AckSequencer allows at most one unacknowledged update buffer per session.
// The expected id only moves forward.
type AckSequencer struct {
	expected int
	state    AckState
}

// Expected returns the id the next acknowledgment must carry.
func (a *AckSequencer) Expected() int {
	return a.expected
}

func (a *AckSequencer) State() AckState {
	return a.state
}

// Stamp marks a flush that needs acknowledgment and returns its id. A flush
// while a buffer is pending reuses the pending id.
func (a *AckSequencer) Stamp() int {
	a.state = AckBufferPending
	return a.expected
}

// Ack accepts id only if a stamped flush is pending and id equals the
// expected id. The expected id therefore advances once per flush.
func (a *AckSequencer) Ack(id int) error {
	if a.state != AckBufferPending {
		return fmt.Errorf("%w: got %d with no pending update", ErrStaleAck, id)
	}
	if id != a.expected {
		return fmt.Errorf("%w: got %d expected %d", ErrStaleAck, id, a.expected)
	}
	a.expected++
	a.state = AckIdle
	return nil
}
