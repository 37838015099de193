package pipeline

import "errors"

// Sentinel errors for each fatal failure kind. Run wraps the underlying
// cause with one of these; match with errors.Is.
var (
	ErrEncoderUnavailable = errors.New("encoder unavailable")
	ErrSourceOpen         = errors.New("cannot open source")
	ErrOutputLocked       = errors.New("output locked")
	ErrWrite              = errors.New("write failed")
	ErrFrame              = errors.New("frame processing failed")
)
