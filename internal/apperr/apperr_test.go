package apperr

import (
	"errors"
	"fmt"
	"testing"
)

// --- Code mapping ---

func TestCode_KnownKinds(t *testing.T) {
	tests := []struct {
		kind Kind
		want string
	}{
		{AuthMissingHeaders, "AUTH_MISSING_HEADERS"},
		{AuthInvalidKey, "AUTH_INVALID_KEY"},
		{TaskNotFound, "TASK_NOT_FOUND"},
		{PlanExists, "PLAN_EXISTS"},
		{InvalidPhaseTransition, "INVALID_PHASE_TRANSITION"},
		{Internal, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		if got := tt.kind.Code(); got != tt.want {
			t.Errorf("Code(%v) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}

// --- Status mapping ---

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		kind Kind
		want int
	}{
		{AuthInvalidSignature, 401},
		{AuthError, 401},
		{RateLimited, 429},
		{TaskNotFound, 404},
		{WorktreeNotFound, 404},
		{PlanExists, 409},
		{PhaseMismatch, 409},
		{NotInReviewPhase, 409},
		{InvalidCompletionPhase, 403},
		{InvalidPhaseTransition, 400},
		{WorktreeInactive, 400},
		{ProjectNoRepo, 400},
		{NoChanges, 400},
		{InvalidCommand, 400},
		{Internal, 500},
	}
	for _, tt := range tests {
		if got := tt.kind.HTTPStatus(); got != tt.want {
			t.Errorf("HTTPStatus(%s) = %d, want %d", tt.kind.Code(), got, tt.want)
		}
	}
}

// --- Construction & matching ---

func TestKindOf_TaggedError(t *testing.T) {
	err := E(WorktreeInactive, "worktree /tmp/w1 is inactive")
	if got := KindOf(err); got != WorktreeInactive {
		t.Errorf("KindOf = %v, want WorktreeInactive", got)
	}
}

func TestKindOf_WrappedError(t *testing.T) {
	inner := E(TaskNotFound, "task 42 not found")
	wrapped := fmt.Errorf("handling tool call: %w", inner)
	if got := KindOf(wrapped); got != TaskNotFound {
		t.Errorf("KindOf(wrapped) = %v, want TaskNotFound", got)
	}
}

func TestKindOf_UntaggedError(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != Internal {
		t.Errorf("KindOf(untagged) = %v, want Internal", got)
	}
}

func TestIs_MatchesByKind(t *testing.T) {
	err := Ef(PhaseMismatch, "task is in %s", "testing")
	if !errors.Is(err, E(PhaseMismatch, "")) {
		t.Error("errors.Is should match on kind regardless of message")
	}
	if errors.Is(err, E(PlanExists, "")) {
		t.Error("errors.Is should not match a different kind")
	}
}

func TestUnwrap_PreservesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(Internal, "writing screenshot", cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped cause should be reachable via errors.Is")
	}
}

// --- User-visible messages ---

func TestUserMessage_DomainErrorSurfacesMessage(t *testing.T) {
	err := E(NoChanges, "nothing to commit")
	if got := UserMessage(err); got != "nothing to commit" {
		t.Errorf("UserMessage = %q", got)
	}
}

func TestUserMessage_InternalErrorIsOpaque(t *testing.T) {
	err := Wrap(Internal, "open /var/lib/agentforge/db: permission denied", errors.New("EACCES"))
	if got := UserMessage(err); got != "internal error" {
		t.Errorf("UserMessage leaked internals: %q", got)
	}
	if got := UserMessage(errors.New("raw")); got != "internal error" {
		t.Errorf("UserMessage(untagged) = %q", got)
	}
}
