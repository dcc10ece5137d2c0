package domainerrors

import (
	"errors"
	"net/http"
	"testing"
)

func TestTranslateMapsKindsToStatus(t *testing.T) {
	cases := []struct {
		kind   Kind
		status int
	}{
		{NotFound, http.StatusNotFound},
		{Validation, http.StatusBadRequest},
		{Conflict, http.StatusConflict},
		{Unauthorized, http.StatusUnauthorized},
		{Forbidden, http.StatusForbidden},
		{RateLimited, http.StatusTooManyRequests},
		{ProviderValidation, http.StatusBadRequest},
		{ProviderAuth, http.StatusUnauthorized},
		{ProviderTimeout, http.StatusServiceUnavailable},
		{ProviderUnavailable, http.StatusServiceUnavailable},
		{Internal, http.StatusInternalServerError},
	}
	for _, c := range cases {
		status, _ := Translate(New(c.kind, "message"))
		if status != c.status {
			t.Errorf("%s: got status %d, want %d", c.kind, status, c.status)
		}
	}
}

func TestTranslateDefaultsUnknownErrorToInternal(t *testing.T) {
	status, detail := Translate(errors.New("boom"))
	if status != http.StatusInternalServerError {
		t.Errorf("got status %d, want 500", status)
	}
	if detail != "internal server error" {
		t.Errorf("got detail %q, want a generic internal message", detail)
	}
}

func TestIsMatchesWrappedKind(t *testing.T) {
	err := Wrap(Conflict, "order already paid", errors.New("underlying"))
	if !Is(err, Conflict) {
		t.Error("expected Is to match the wrapped Kind")
	}
	if Is(err, NotFound) {
		t.Error("expected Is not to match an unrelated Kind")
	}
}

func TestKindOfDefaultsToInternalForPlainErrors(t *testing.T) {
	if KindOf(errors.New("plain")) != Internal {
		t.Error("expected a plain error to default to Internal")
	}
	if KindOf(New(Validation, "x")) != Validation {
		t.Error("expected KindOf to extract the wrapped Kind")
	}
}
