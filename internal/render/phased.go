package render

import (
	"fmt"
	"slices"
	"strings"

	"github.com/danmuck/edgeview/internal/node"
	"github.com/danmuck/edgeview/internal/observability"
	"github.com/rs/zerolog/log"
	"golang.org/x/exp/maps"
)

// SizeEstimator measures a shadow batch of off-screen work for the
// two-phase threshold.
type SizeEstimator interface {
	Estimate(script string, records int) int
}

// RenderedSize measures the serialized script in bytes.
type RenderedSize struct{}

func (RenderedSize) Estimate(script string, _ int) int {
	return len(script)
}

// RecordCost charges a fixed cost per record and ignores the script text.
type RecordCost struct {
	Cost int
}

func (c RecordCost) Estimate(_ string, records int) int {
	return records * c.Cost
}

// NewSizeEstimator resolves a configured estimator name.
func NewSizeEstimator(name string, recordCost int) (SizeEstimator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "rendered":
		return RenderedSize{}, nil
	case "records":
		if recordCost <= 0 {
			return nil, fmt.Errorf("render: record cost must be positive, got %d", recordCost)
		}
		return RecordCost{Cost: recordCost}, nil
	default:
		return nil, fmt.Errorf("render: unknown size estimator %q", name)
	}
}

// collectJavaScript assembles the body of an update into the outgoing
// buffer: held off-screen work, the visible batch, and either the inlined
// off-screen batch or a follow-up-fetch directive.
func (r *Renderer) collectJavaScript() error {
	s := r.state
	s.unacked.WriteString(s.invisible.String())
	s.invisible.Reset()

	if title, changed := r.app.TakeTitleChange(); changed {
		s.unacked.WriteString(r.directive("setTitle(" + jsString(title) + ")"))
	}

	if _, err := r.collectUpdate(&s.unacked); err != nil {
		return err
	}
	if !s.visibleOnly || s.dirty.IsEmpty() {
		return nil
	}

	needFetch := true
	if r.cfg.TwoPhaseThreshold > 0 {
		s.visibleOnly = false
		var shadow strings.Builder
		records, err := r.collectUpdate(&shadow)
		s.visibleOnly = true
		if err != nil {
			return err
		}
		size := r.cfg.Estimator.Estimate(shadow.String(), records)
		if size < r.cfg.TwoPhaseThreshold {
			s.unacked.WriteString(shadow.String())
			needFetch = false
		} else {
			s.invisible.WriteString(shadow.String())
		}
		observability.RecordPhased(needFetch)
		log.Debug().
			Str("session", r.app.SessionID()).
			Int("records", records).
			Int("size", size).
			Int("threshold", r.cfg.TwoPhaseThreshold).
			Bool("deferred", needFetch).
			Msg("render.collectJavaScript off-screen batch")
	} else {
		observability.RecordPhased(true)
	}
	if needFetch {
		s.unacked.WriteString(r.directive("update(null,'none',null,false)"))
	}
	return nil
}

// collectUpdate writes one braced update block: the batch, learned handler
// installs, form-object changes, and quit.
func (r *Renderer) collectUpdate(out *strings.Builder) (int, error) {
	out.WriteByte('{')
	records, err := r.collectJS(out)
	if err != nil {
		return 0, err
	}
	if err := r.preLearn(out); err != nil {
		return 0, err
	}
	if list := r.formObjectsList(); list != r.state.formObjects {
		r.state.formObjects = list
		out.WriteString(r.directive("setFormObjects([" + list + "])"))
	}
	if r.app.Quitted() {
		out.WriteString(r.directive("quit()"))
	}
	out.WriteByte('}')
	return records, nil
}

// formObjectsList renders the sorted ids of live controls under every root.
func (r *Renderer) formObjectsList() string {
	set := make(map[string]struct{})
	for _, root := range r.app.Roots() {
		root.FormObjects(set)
	}
	ids := maps.Keys(set)
	slices.Sort(ids)
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = jsString(id)
	}
	return strings.Join(quoted, ",")
}

func jsString(s string) string {
	return node.Quote(s)
}
