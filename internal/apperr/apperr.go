// Package apperr defines the error taxonomy shared by every subsystem.
//
// Each failure mode is a tagged Kind carrying a stable machine-readable
// code; the transport status is a pure function of the kind. Handlers
// match on Kind instead of string-comparing messages.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies a failure mode.
type Kind int

const (
	// Internal is the catch-all for unexpected failures. Payloads built
	// from it never include stack traces or internal paths.
	Internal Kind = iota

	AuthMissingHeaders
	AuthInvalidUserID
	AuthInvalidTimestamp
	AuthInvalidKey
	AuthInvalidSignature
	AuthError

	RateLimited

	TaskNotFound
	WorkflowNotFound
	ProjectNotFound
	WorktreeNotFound

	PlanExists
	PhaseMismatch
	NotInReviewPhase
	InvalidPhaseTransition
	InvalidCompletionPhase

	WorktreeInactive
	ProjectNoRepo
	NoChanges

	InvalidCommand
	InvalidPath
)

// codes maps each kind to its wire code.
var codes = map[Kind]string{
	Internal:               "INTERNAL_ERROR",
	AuthMissingHeaders:     "AUTH_MISSING_HEADERS",
	AuthInvalidUserID:      "AUTH_INVALID_USER_ID",
	AuthInvalidTimestamp:   "AUTH_INVALID_TIMESTAMP",
	AuthInvalidKey:         "AUTH_INVALID_KEY",
	AuthInvalidSignature:   "AUTH_INVALID_SIGNATURE",
	AuthError:              "AUTH_ERROR",
	RateLimited:            "RATE_LIMITED",
	TaskNotFound:           "TASK_NOT_FOUND",
	WorkflowNotFound:       "WORKFLOW_NOT_FOUND",
	ProjectNotFound:        "PROJECT_NOT_FOUND",
	WorktreeNotFound:       "WORKTREE_NOT_FOUND",
	PlanExists:             "PLAN_EXISTS",
	PhaseMismatch:          "PHASE_MISMATCH",
	NotInReviewPhase:       "NOT_IN_REVIEW_PHASE",
	InvalidPhaseTransition: "INVALID_PHASE_TRANSITION",
	InvalidCompletionPhase: "INVALID_COMPLETION_PHASE",
	WorktreeInactive:       "WORKTREE_INACTIVE",
	ProjectNoRepo:          "PROJECT_NO_REPO",
	NoChanges:              "NO_CHANGES",
	InvalidCommand:         "INVALID_COMMAND",
	InvalidPath:            "INVALID_PATH",
}

// Code returns the stable machine-readable code for the kind.
func (k Kind) Code() string {
	if c, ok := codes[k]; ok {
		return c
	}
	return codes[Internal]
}

// HTTPStatus maps a kind to its transport status. Pure function —
// no error instance carries an inline status flag.
func (k Kind) HTTPStatus() int {
	switch k {
	case AuthMissingHeaders, AuthInvalidUserID, AuthInvalidTimestamp,
		AuthInvalidKey, AuthInvalidSignature, AuthError:
		return 401
	case RateLimited:
		return 429
	case TaskNotFound, WorkflowNotFound, ProjectNotFound, WorktreeNotFound:
		return 404
	case PlanExists, PhaseMismatch, NotInReviewPhase:
		return 409
	case InvalidCompletionPhase:
		return 403
	case InvalidPhaseTransition, WorktreeInactive, ProjectNoRepo, NoChanges,
		InvalidCommand, InvalidPath:
		return 400
	default:
		return 500
	}
}

// Error is a tagged error with a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // wrapped cause, may be nil
}

// E builds a tagged error.
func E(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Ef builds a tagged error with a formatted message.
func Ef(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap builds a tagged error around a cause.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind.Code(), e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind.Code(), e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the kind from an error chain. Untagged errors
// report Internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return Internal
}

// Is lets errors.Is match two tagged errors by kind.
func (e *Error) Is(target error) bool {
	var ae *Error
	if errors.As(target, &ae) {
		return e.Kind == ae.Kind
	}
	return false
}

// UserMessage returns the message safe to surface to callers.
// Internal errors collapse to a generic message so causes never leak.
func UserMessage(err error) string {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind != Internal {
		return ae.Msg
	}
	return "internal error"
}
