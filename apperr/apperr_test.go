package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOfSurvivesWrapping(t *testing.T) {
	base := Validation("q2", "Block q2 minLength=5")
	wrapped := fmt.Errorf("update response: %w", base)

	if got := KindOf(wrapped); got != KindValidation {
		t.Fatalf("kind = %v, want validation", got)
	}
	if got := FieldOf(wrapped); got != "q2" {
		t.Fatalf("field = %q, want q2", got)
	}
}

func TestKindOfPlainErrorIsInternal(t *testing.T) {
	if got := KindOf(errors.New("boom")); got != KindInternal {
		t.Fatalf("kind = %v, want internal", got)
	}
	if Is(nil, KindInternal) {
		t.Fatalf("nil error must not match any kind")
	}
}

func TestIsAuthCoversForbidden(t *testing.T) {
	if !IsAuth(Auth("Invalid token")) {
		t.Fatalf("auth error not recognised")
	}
	if !IsAuth(Forbidden("Token not allowed for this survey")) {
		t.Fatalf("forbidden error not recognised as auth")
	}
	if IsAuth(Conflict("locked")) {
		t.Fatalf("conflict recognised as auth")
	}
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("disk full")
	err := Wrap(KindInternal, cause, "persist response")
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost")
	}
	if err.Error() != "persist response: disk full" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestContendedIsRetryableConflict(t *testing.T) {
	err := fmt.Errorf("update: %w", Contended("modified concurrently"))
	if !Is(err, KindConflict) || !IsRetryable(err) {
		t.Fatalf("expected a retryable conflict, got %v", err)
	}
	if IsRetryable(Conflict("Response locked (finalized)")) {
		t.Fatalf("a lock must not be retryable")
	}
}
