package node

import (
	"errors"
	"fmt"
	"strings"
)

var ErrUnknownPriority = errors.New("node: unknown record priority")

// Priority is the phase a record is emitted in.
type Priority int

const (
	PriorityDelete Priority = iota
	PriorityUpdate
)

func (p Priority) String() string {
	switch p {
	case PriorityDelete:
		return "delete"
	case PriorityUpdate:
		return "update"
	default:
		return fmt.Sprintf("priority(%d)", int(p))
	}
}

// Record is one serialized change for the client.
type Record interface {
	Priority() Priority
	Script() string
}

// ScriptRecord is a Record carrying ready-made client script.
type ScriptRecord struct {
	NodeID string
	Phase  Priority
	Text   string
}

func (r ScriptRecord) Priority() Priority { return r.Phase }
func (r ScriptRecord) Script() string     { return r.Text }

// Batch collects the records of one response. Records are kept per phase so
// the flattened order always has every Delete before every Update.
type Batch struct {
	// VisibleOnly is set while the collector restricts itself to rendered nodes.
	VisibleOnly bool

	deletes []Record
	updates []Record
}

func NewBatch() *Batch {
	return &Batch{}
}

func (b *Batch) Add(rec Record) error {
	if rec == nil {
		return fmt.Errorf("%w: nil record", ErrUnknownPriority)
	}
	switch rec.Priority() {
	case PriorityDelete:
		b.deletes = append(b.deletes, rec)
	case PriorityUpdate:
		b.updates = append(b.updates, rec)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownPriority, rec.Priority())
	}
	return nil
}

func (b *Batch) Len() int {
	return len(b.deletes) + len(b.updates)
}

// Records returns Delete-phase records followed by Update-phase records.
func (b *Batch) Records() []Record {
	out := make([]Record, 0, b.Len())
	out = append(out, b.deletes...)
	return append(out, b.updates...)
}

func (b *Batch) Script() string {
	var sb strings.Builder
	for _, rec := range b.Records() {
		sb.WriteString(rec.Script())
	}
	return sb.String()
}

// Validate checks the flattened order of records.
func Validate(records []Record) error {
	seenUpdate := -1
	for i, rec := range records {
		switch rec.Priority() {
		case PriorityUpdate:
			if seenUpdate < 0 {
				seenUpdate = i
			}
		case PriorityDelete:
			if seenUpdate >= 0 {
				return fmt.Errorf("delete record at %d follows update record at %d", i, seenUpdate)
			}
		default:
			return fmt.Errorf("%w: %s at %d", ErrUnknownPriority, rec.Priority(), i)
		}
	}
	return nil
}
