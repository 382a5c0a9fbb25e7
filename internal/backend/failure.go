package backend

import (
	"errors"
	"net/http"
)

// Failure is a non-success outcome of a backend call: either the request
// never got a response (Status 0) or the response was not 2xx. Message is
// meant to be shown to the caller as is.
type Failure struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

func (f *Failure) NotFound() bool { return f.Status == http.StatusNotFound }

func (f *Failure) Conflict() bool { return f.Status == http.StatusConflict }

// AsFailure reports whether err is (or wraps) a *Failure.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
