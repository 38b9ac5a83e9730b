package domain

import "errors"

var (
	ErrHintNotFound       = errors.New("role hint not found")
	ErrSnapshotNotFound   = errors.New("state snapshot not found")
	ErrSessionUnavailable = errors.New("session fetch failed")
	ErrMalformedSession   = errors.New("unrecognized session payload shape")
	ErrNotConnected       = errors.New("transport not connected")
	ErrAlreadyConnected   = errors.New("transport already connected")
	ErrUnknownEvent       = errors.New("unknown event tag")
	ErrBootstrapOvertaken = errors.New("bootstrap overtaken by newer call")
)
