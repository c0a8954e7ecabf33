package deployerr

import (
	"errors"
	"fmt"

	"github.com/containerd/errdefs"
)

// Kind classifies a deployment failure. Every kind unwraps to a containerd
// errdefs class, so both errors.Is(err, ErrPhaseOutOfOrder) and
// errdefs.IsFailedPrecondition(err) hold for the same error.
type Kind struct {
	name  string
	class error
}

var (
	ErrConfiguration         = &Kind{name: "ConfigurationError", class: errdefs.ErrInvalidArgument}
	ErrUnresolvedReference   = &Kind{name: "UnresolvedReference", class: errdefs.ErrInvalidArgument}
	ErrDependencyCycle       = &Kind{name: "DependencyCycle", class: errdefs.ErrInvalidArgument}
	ErrDependencyNotReady    = &Kind{name: "DependencyNotReady", class: errdefs.ErrNotFound}
	ErrDuplicateRegistration = &Kind{name: "DuplicateRegistration", class: errdefs.ErrAlreadyExists}
	ErrActionFailed          = &Kind{name: "ActionFailed", class: errdefs.ErrUnavailable}
	ErrPhaseOutOfOrder       = &Kind{name: "PhaseOutOfOrder", class: errdefs.ErrFailedPrecondition}
)

func (k *Kind) Error() string { return k.name }

func (k *Kind) Unwrap() error { return k.class }

// Name returns the kind name as shown to operators.
func (k *Kind) Name() string { return k.name }

// Error is a classified failure about a named subject (a unit, a phase, a config key).
type Error struct {
	Kind    *Kind
	Subject string
	Err     error
}

// New builds a classified error. err may be nil.
func New(kind *Kind, subject string, err error) *Error {
	return &Error{Kind: kind, Subject: subject, Err: err}
}

// Newf builds a classified error with a formatted cause.
func Newf(kind *Kind, subject, format string, args ...any) *Error {
	return New(kind, subject, fmt.Errorf(format, args...))
}

func (e *Error) Error() string {
	msg := e.Kind.name
	if e.Subject != "" {
		msg += " [" + e.Subject + "]"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the kind of the first classified error in err's chain, or nil.
func KindOf(err error) *Kind {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Kind
	}
	return nil
}

// SubjectOf returns the subject of the first classified error in err's chain.
func SubjectOf(err error) string {
	var classified *Error
	if errors.As(err, &classified) {
		return classified.Subject
	}
	return ""
}
