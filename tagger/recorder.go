package tagger

import (
	"context"
	"errors"
)

// Call is a single write observed by Recorder.
type Call struct {
	Artifact string
	Write
}

// Recorder is an in-memory Tagger keeping ordered sequence of writes. It
// never touches the artifact.
type Recorder struct {
	Calls []Call
	// FailAt makes n-th call (1 based) fail, 0 - never.
	FailAt int
	// Err is returned by failing call, generic error if nil.
	Err error
}

func (r *Recorder) SetTag(ctx context.Context, artifact string, w Write) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.Calls = append(r.Calls, Call{Artifact: artifact, Write: w})
	if r.FailAt > 0 && len(r.Calls) == r.FailAt {
		if r.Err != nil {
			return "", r.Err
		}
		return "", errors.New("recorder: injected failure")
	}
	return "ok", nil
}

// Writes returns recorded writes without artifact names.
func (r *Recorder) Writes() []Write {
	ws := make([]Write, 0, len(r.Calls))
	for _, c := range r.Calls {
		ws = append(ws, c.Write)
	}
	return ws
}
