package controller

import (
	"errors"
	"fmt"
)

var (
	// ErrBusy is returned by Generate while a generation is in flight.
	ErrBusy = errors.New("controller: generation already in progress")
	// ErrClosed is returned by every operation after Close.
	ErrClosed = errors.New("controller: closed")
	// ErrStale is returned when a response arrived after the state it was
	// issued for was discarded. The response is dropped.
	ErrStale = errors.New("controller: stale response discarded")
)

type Kind int

const (
	KindCatalog Kind = iota + 1
	KindPrecondition
	KindValidation
	KindGenerationHTTP
	KindGenerationTransport
)

func (k Kind) String() string {
	switch k {
	case KindCatalog:
		return "catalog"
	case KindPrecondition:
		return "precondition"
	case KindValidation:
		return "validation"
	case KindGenerationHTTP:
		return "generation_http"
	case KindGenerationTransport:
		return "generation_transport"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is what the user sees. Message is already localized; Err is the
// underlying cause, if any.
type Error struct {
	Kind       Kind
	Message    string
	StatusCode int
	Err        error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }
