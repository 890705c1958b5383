package backend

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind int

const (
	KindUnknown Kind = iota
	KindOverload
	KindEmptyQuery
	KindElementNotFound
	KindTimeout
)

// Code returns the numeric code shown to users.
func (k Kind) Code() int {
	switch k {
	case KindOverload:
		return 1000
	case KindEmptyQuery:
		return 1001
	case KindElementNotFound:
		return 1002
	case KindTimeout:
		return 1003
	default:
		return 1999
	}
}

func (k Kind) String() string {
	switch k {
	case KindOverload:
		return "Overload"
	case KindEmptyQuery:
		return "EmptyQuery"
	case KindElementNotFound:
		return "ElementNotFound"
	case KindTimeout:
		return "Timeout"
	default:
		return "Unknown"
	}
}

// Sentinels for errors.Is; they match any Error of the same kind.
var (
	ErrOverload        = &Error{Kind: KindOverload}
	ErrEmptyQuery      = &Error{Kind: KindEmptyQuery}
	ErrElementNotFound = &Error{Kind: KindElementNotFound}
	ErrTimeout         = &Error{Kind: KindTimeout}
)

type Error struct {
	Kind    Kind
	Message string
	Context map[string]any
	Cause   error
}

func NewError(kind Kind, message string) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Context: make(map[string]any),
	}
}

func WrapError(err error, kind Kind, message string) *Error {
	e := NewError(kind, message)
	e.Cause = err
	return e
}

func (e *Error) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s %d] %s", e.Kind, e.Kind.Code(), e.Message))

	if len(e.Context) > 0 {
		keys := make([]string, 0, len(e.Context))
		for k := range e.Context {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		ctxParts := make([]string, 0, len(keys))
		for _, k := range keys {
			ctxParts = append(ctxParts, fmt.Sprintf("%s=%v", k, e.Context[k]))
		}
		parts = append(parts, fmt.Sprintf("context: %s", strings.Join(ctxParts, ", ")))
	}

	if e.Cause != nil {
		parts = append(parts, fmt.Sprintf("cause: %v", e.Cause))
	}

	return strings.Join(parts, " | ")
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// KindOf returns the kind of the first backend Error in the chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// Retryable reports whether the same request may succeed if repeated later.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindOverload, KindTimeout:
		return true
	default:
		return false
	}
}

// Advice returns a user-facing hint for err.
func Advice(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return "Please review the detailed error and check configuration and network access"
	}
	switch e.Kind {
	case KindOverload:
		return "All translation sessions are busy; retry later or raise the worker count"
	case KindEmptyQuery:
		return "The text to translate is empty after trimming; check the subtitle content"
	case KindElementNotFound:
		return "The translation page layout changed or did not load; check the page URL and proxy"
	case KindTimeout:
		return "No translation result arrived in time; check network access or increase poll attempts"
	default:
		return "Please review the detailed error and check configuration and network access"
	}
}
