// Package museum implements the entity mutation and aggregation engine
// for the catalog: compound writes that keep the association relations
// consistent, and read views that fold flat rows into grouped results.
//
// # Error Kinds
//
// Every failure leaving this package carries exactly one Kind:
//
//	KindInvalid            - malformed field bag (empty required field,
//	                         non-parseable number or date)
//	KindNotFound           - a referenced name or key does not resolve
//	KindPreconditionFailed - an update presumes state that is absent,
//	                         e.g. promoting a non-manager
//	KindConflict           - a uniqueness or race violation surfaced by
//	                         the backend
//	KindUnavailable        - the backend cannot be reached or the
//	                         operation timed out
//
// The web layer maps kinds to status codes and user messages; the core
// never renders user-facing content.
package museum

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/northhall/museum/internal/store"
)

// Kind classifies a mutator or view failure.
type Kind string

const (
	KindInvalid            Kind = "invalid"
	KindNotFound           Kind = "not_found"
	KindPreconditionFailed Kind = "precondition_failed"
	KindConflict           Kind = "conflict"
	KindUnavailable        Kind = "backend_unavailable"
)

// Error is the discriminated failure returned by every operation.
type Error struct {
	Kind   Kind
	Detail string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind carried by err, or "" when err is nil or
// untyped.
func KindOf(err error) Kind {
	var me *Error
	if errors.As(err, &me) {
		return me.Kind
	}
	return ""
}

func invalidf(format string, args ...any) error {
	return &Error{Kind: KindInvalid, Detail: fmt.Sprintf(format, args...)}
}

func preconditionf(format string, args ...any) error {
	return &Error{Kind: KindPreconditionFailed, Detail: fmt.Sprintf(format, args...)}
}

// storeErr classifies an error coming back from the store, attaching the
// detail of what was being done. Already-classified errors pass through.
func storeErr(detail string, err error) error {
	switch {
	case err == nil:
		return nil
	case KindOf(err) != "":
		return err
	case errors.Is(err, store.ErrNotFound):
		return &Error{Kind: KindNotFound, Detail: detail, Err: err}
	case errors.Is(err, store.ErrConflict):
		return &Error{Kind: KindConflict, Detail: detail, Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &Error{Kind: KindUnavailable, Detail: detail, Err: err}
	default:
		return &Error{Kind: KindUnavailable, Detail: detail, Err: err}
	}
}

// UserMessage is the user-facing rendering of a failure, with a support
// code for diagnosis.
type UserMessage struct {
	Message string
	Action  string
	Code    string
}

// kindMessages maps each kind to its user message.
var kindMessages = map[Kind]UserMessage{
	KindInvalid: {
		Message: "A submitted field is missing or malformed",
		Action:  "Check the form values and resubmit",
		Code:    "REQ001",
	},
	KindNotFound: {
		Message: "A referenced record does not exist",
		Action:  "Verify the name and try again",
		Code:    "REF001",
	},
	KindPreconditionFailed: {
		Message: "The record is not in the required state for this change",
		Action:  "Promotion requires an existing manager record",
		Code:    "PRE001",
	},
	KindConflict: {
		Message: "A record with this key already exists",
		Action:  "Check for a duplicate entry",
		Code:    "CON001",
	},
	KindUnavailable: {
		Message: "The catalog database is currently unavailable",
		Action:  "Please try again in a few moments",
		Code:    "DB001",
	},
}

// rawPatterns catches backend error text that slipped through untyped.
// First match wins, so specific patterns come before general ones.
var rawPatterns = []struct {
	pattern string
	msg     UserMessage
}{
	{"duplicate key", kindMessages[KindConflict]},
	{"unique constraint", kindMessages[KindConflict]},
	{"connection refused", kindMessages[KindUnavailable]},
	{"connection reset", kindMessages[KindUnavailable]},
	{"deadline exceeded", kindMessages[KindUnavailable]},
	{"timeout", kindMessages[KindUnavailable]},
}

// MapError turns any operation failure into a user message. Unknown
// errors fall back to ERR000.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	if k := KindOf(err); k != "" {
		return kindMessages[k]
	}
	text := strings.ToLower(err.Error())
	for _, p := range rawPatterns {
		if strings.Contains(text, p.pattern) {
			return p.msg
		}
	}
	return UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support",
		Code:    "ERR000",
	}
}
