package tracker

import (
	"errors"
	"fmt"
	"strings"
)

// Logic-precondition errors from the session manager. Both are recoverable;
// the caller decides what to do (e.g. offer a stop-and-switch).
var (
	ErrSessionAlreadyActive = errors.New("a tracking session is already active")
	ErrNoActiveSession      = errors.New("no active tracking session")
	ErrProjectNotFound      = errors.New("project not found")
)

// StoreWriteError wraps a failed store mutation. The local state is not
// mutated when this is returned; the store's subscription remains the source
// of truth.
type StoreWriteError struct {
	Op  string // operation that failed: "start", "stop", "switch-start", ...
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write failed during %s: %v", e.Op, e.Err)
}

func (e *StoreWriteError) Unwrap() error {
	return e.Err
}

// AuthErrorKind separates credential problems from transient ones so the UI
// can suggest the right remediation.
type AuthErrorKind int

const (
	AuthErrorCredentials AuthErrorKind = iota // bad input: wrong password, email in use, weak password
	AuthErrorTransient                        // network or server trouble, retry may help
)

// AuthError is a sign-in/sign-up failure mapped to a user-facing message
type AuthError struct {
	Kind    AuthErrorKind
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	return e.Message
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ValidationCode identifies a single validation rule failure
type ValidationCode string

const (
	CodeMissingProject   ValidationCode = "missing_project"
	CodeMissingStart     ValidationCode = "missing_start"
	CodeMissingEnd       ValidationCode = "missing_end"
	CodeEndBeforeStart   ValidationCode = "end_before_start"
	CodeDurationTooShort ValidationCode = "duration_too_short"
	CodeOverlap          ValidationCode = "overlaps_existing_entry"
	CodeStartInFuture    ValidationCode = "start_in_future"
	CodeStartAfterEnd    ValidationCode = "start_after_end"
)

// ValidationError is a single failed rule, tied to the field it concerns
type ValidationError struct {
	Code    ValidationCode
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// ValidationErrors collects every failed rule so a form can show all
// problems at once rather than one per submit.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Message
	}
	return strings.Join(msgs, "; ")
}

// Has reports whether a specific rule failed
func (e ValidationErrors) Has(code ValidationCode) bool {
	for _, v := range e {
		if v.Code == code {
			return true
		}
	}
	return false
}
