package fault

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so the API boundary can map it to a status code
// without inspecting downstream error strings.
type Kind int

const (
	Unknown Kind = iota
	Configuration
	Ingestion
	Retrieval
	Generation
	Transcription
	UnsupportedFormat
	PayloadTooLarge
	Persistence
)

func (k Kind) String() string {
	switch k {
	case Configuration:
		return "configuration"
	case Ingestion:
		return "ingestion"
	case Retrieval:
		return "retrieval"
	case Generation:
		return "generation"
	case Transcription:
		return "transcription"
	case UnsupportedFormat:
		return "unsupported_format"
	case PayloadTooLarge:
		return "payload_too_large"
	case Persistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a classified error. Wrapped causes remain reachable via errors.Is
// and errors.As.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error { return e.err }

func (e *Error) Kind() Kind { return e.kind }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// KindOf returns the Kind of the outermost classified error in err's chain,
// or Unknown if none is found.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.kind
	}
	return Unknown
}

// HTTPStatus maps a Kind to the status code used by the error envelope.
func HTTPStatus(kind Kind) int {
	switch kind {
	case UnsupportedFormat:
		return http.StatusBadRequest
	case PayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case Retrieval, Generation, Transcription:
		return http.StatusBadGateway
	case Configuration, Ingestion, Persistence:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
