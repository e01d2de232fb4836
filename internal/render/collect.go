package render

import (
	"fmt"
	"slices"
	"strings"

	"github.com/danmuck/edgeview/internal/node"
	"github.com/danmuck/edgeview/internal/observability"
	"golang.org/x/exp/maps"
)

// maxCollectPasses bounds the fixpoint loop; exceeding it means some node
// keeps raising work for itself.
const maxCollectPasses = 256

type distanceGroup struct {
	distance int
	nodes    []node.Node
}

// collectJS runs the change collector and writes the batch, Delete records
// first, to out. A nil out discards the batch.
func (r *Renderer) collectJS(out *strings.Builder) (int, error) {
	batch := node.NewBatch()
	if err := r.collectChanges(batch); err != nil {
		return 0, err
	}
	records := batch.Records()
	if err := node.Validate(records); err != nil {
		return 0, invariantError("batch order: %v", err)
	}
	if out != nil {
		for _, rec := range records {
			out.WriteString(rec.Script())
		}
	}
	if len(records) > 0 {
		observability.RecordBatch(len(records))
	}
	return len(records), nil
}

// collectChanges drains the dirty set into b, nearest-to-root first, until a
// pass raises no new work. Learning runs exactly one pass.
func (r *Renderer) collectChanges(b *node.Batch) error {
	s := r.state
	if s.collecting {
		return invariantError("nested collection pass")
	}
	s.collecting = true
	defer func() { s.collecting = false }()

	b.VisibleOnly = !s.learning && s.visibleOnly
	roots := r.app.Roots()
	for pass := 1; ; pass++ {
		if pass > maxCollectPasses {
			return invariantError("collection did not converge after %d passes", maxCollectPasses)
		}
		s.dirty.resetMore()
		for _, group := range r.groupByDistance(roots) {
			for _, n := range group.nodes {
				// processing an earlier node may already have settled this one
				if !s.dirty.Contains(n) {
					continue
				}
				if group.distance == 0 {
					n.MarkRenderOk()
					s.dirty.MarkClean(n)
					continue
				}
				if b.VisibleOnly && !n.IsRendered() {
					continue
				}
				s.dirty.MarkClean(n)
				if err := n.ProduceMutations(b); err != nil {
					s.dirty.MarkDirty(n, true)
					return fmt.Errorf("%w: node %q: %v", ErrContractViolation, n.ID(), err)
				}
			}
		}
		if s.learning || !s.dirty.MoreWork() {
			return nil
		}
	}
}

func (r *Renderer) groupByDistance(roots []node.Node) []distanceGroup {
	byDistance := make(map[int][]node.Node)
	for _, n := range r.state.dirty.Nodes() {
		d := distanceFromRoot(n, roots)
		byDistance[d] = append(byDistance[d], n)
	}
	distances := maps.Keys(byDistance)
	slices.Sort(distances)
	out := make([]distanceGroup, 0, len(distances))
	for _, d := range distances {
		out = append(out, distanceGroup{distance: d, nodes: byDistance[d]})
	}
	return out
}

// distanceFromRoot counts n itself as 1; nodes whose top ancestor is not a
// document root get 0.
func distanceFromRoot(n node.Node, roots []node.Node) int {
	depth := 1
	top := n
	for p := top.Parent(); p != nil; p = top.Parent() {
		top = p
		depth++
	}
	for _, root := range roots {
		if root == top {
			return depth
		}
	}
	return 0
}
