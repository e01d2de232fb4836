package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/danmuck/edgeview/internal/render"
	"github.com/danmuck/edgeview/internal/session"
)

// Reserved form fields. Every other field is an input value keyed by
// widget id.
const (
	fieldRequest  = "request"
	fieldJS       = "js"
	fieldAck      = "ackId"
	fieldSignal   = "signal"
	fieldLearned  = "learned"
	fieldFollowUp = "followUp"
)

func isReserved(key string) bool {
	switch key {
	case fieldRequest, fieldJS, fieldAck, fieldSignal, fieldLearned, fieldFollowUp:
		return true
	default:
		return false
	}
}

// decodeInput reads query and form fields into a session input.
func decodeInput(r *http.Request) (session.Input, error) {
	if err := r.ParseForm(); err != nil {
		return session.Input{}, fmt.Errorf("bad form: %w", err)
	}
	form := r.Form

	in := session.Input{
		Request: render.Request{
			SelfURL:  r.URL.Path,
			FollowUp: truthy(form.Get(fieldFollowUp)),
		},
		JS:      strings.ToLower(form.Get(fieldJS)),
		Signal:  form.Get(fieldSignal),
		Learned: truthy(form.Get(fieldLearned)),
	}
	switch form.Get(fieldRequest) {
	case "script":
		in.Request.Script = true
	case "update":
		in.Request.Update = true
	case "":
	default:
		return session.Input{}, fmt.Errorf("unknown request %q", form.Get(fieldRequest))
	}
	if raw := form.Get(fieldAck); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return session.Input{}, fmt.Errorf("bad %s: %w", fieldAck, err)
		}
		in.HasAck, in.AckID = true, id
	}
	for key, values := range form {
		if isReserved(key) || len(values) == 0 {
			continue
		}
		if in.Values == nil {
			in.Values = make(map[string]string)
		}
		in.Values[key] = values[len(values)-1]
	}
	return in, nil
}

func truthy(raw string) bool {
	v, err := strconv.ParseBool(raw)
	return err == nil && v
}
