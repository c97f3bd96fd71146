package errs

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("connection refused")
	err := New("wbapi", CodeProvider, WithHTTP(502), WithMessage("fetch tariffs"), WithCause(cause))

	got := err.Error()
	for _, want := range []string{"component=wbapi", "code=provider_error", "http=502", `message="fetch tariffs"`, `cause="connection refused"`} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in %q", want, got)
		}
	}
}

func TestUnwrapAndCodeOf(t *testing.T) {
	cause := errors.New("boom")
	err := fmt.Errorf("outer: %w", New("store", CodePersistence, WithCause(cause)))

	if !errors.Is(err, cause) {
		t.Fatal("expected errors.Is to reach the cause through the envelope")
	}
	if code := CodeOf(err); code != CodePersistence {
		t.Fatalf("expected persistence code, got %q", code)
	}
	if code := CodeOf(errors.New("plain")); code != "" {
		t.Fatalf("expected empty code for plain error, got %q", code)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(New("wbapi", CodeProvider)) {
		t.Fatal("provider errors must be retryable")
	}
	for _, err := range []error{
		New("store", CodeSchema),
		New("store", CodePersistence),
		New("sheets", CodeSinkUnreachable),
		errors.New("plain"),
	} {
		if IsRetryable(err) {
			t.Fatalf("error %v must not be retryable", err)
		}
	}
}

func TestIsSinkFailure(t *testing.T) {
	for _, code := range []Code{CodeSinkNotFound, CodeSinkPermission, CodeSinkUnreachable} {
		if !IsSinkFailure(New("sheets", code)) {
			t.Fatalf("code %q must classify as sink failure", code)
		}
	}
	if IsSinkFailure(New("wbapi", CodeProvider)) {
		t.Fatal("provider errors are not sink failures")
	}
}
