package workflow

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so the transport layer can pick a response code.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindInvalidState
	KindIncomplete
	KindForbidden
	KindConflict
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "no_encontrado"
	case KindInvalidState:
		return "estado_invalido"
	case KindIncomplete:
		return "precondicion_incompleta"
	case KindForbidden:
		return "no_autorizado"
	case KindConflict:
		return "conflicto"
	case KindValidation:
		return "validacion"
	default:
		return "interno"
	}
}

// Error is a guard failure. It is always returned before any mutation, and
// carries the requisition status observed when the guard ran so a stale client
// can reconcile without another round trip.
type Error struct {
	Kind   Kind
	Detail string
	Estado *Estado
}

func (e *Error) Error() string {
	return e.Detail
}

func newError(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Detail: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func InvalidState(format string, args ...interface{}) *Error {
	return newError(KindInvalidState, format, args...)
}

func Incomplete(format string, args ...interface{}) *Error {
	return newError(KindIncomplete, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newError(KindForbidden, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

func Validation(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// KindOf returns the kind of err, or KindInternal when err is not a domain error.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// WithEstado attaches the current status to a domain error. Non-domain errors
// are returned unchanged. An already attached status is kept.
func WithEstado(err error, estado Estado) error {
	var de *Error
	if !errors.As(err, &de) {
		return err
	}
	if de.Estado == nil {
		e := estado
		de.Estado = &e
	}
	return de
}

// EstadoOf returns the status attached to err, if any.
func EstadoOf(err error) (Estado, bool) {
	var de *Error
	if errors.As(err, &de) && de.Estado != nil {
		return *de.Estado, true
	}
	return 0, false
}
