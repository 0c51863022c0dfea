package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		sentinel   error
		wantStatus int
		wantKind   string
	}{
		{"not found", NotFound("emergency request"), ErrNotFound, http.StatusNotFound, "not_found"},
		{"validation", Validation("severity must be 1-4, got %d", 9), ErrValidation, http.StatusBadRequest, "validation"},
		{"unauthorized", Unauthorized("invalid credentials"), ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", Forbidden("insufficient permissions"), ErrForbidden, http.StatusForbidden, "forbidden"},
		{"internal", Internal(errors.New("pool closed")), ErrInternal, http.StatusInternalServerError, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.sentinel) {
				t.Error("errors.Is did not match the sentinel kind")
			}
			if got := HTTPStatus(tt.err); got != tt.wantStatus {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.wantStatus)
			}
			if got := ToBody(tt.err).Error; got != tt.wantKind {
				t.Errorf("ToBody().Error = %q, want %q", got, tt.wantKind)
			}
		})
	}
}

func TestError_MessageFormatting(t *testing.T) {
	err := NotFound("organization")
	if err.Error() != "organization not found" {
		t.Errorf("Error() = %q", err.Error())
	}

	v := Validation("cannot cancel emergency request: current status: %s", "COMPLETED")
	if v.Message != "cannot cancel emergency request: current status: COMPLETED" {
		t.Errorf("Message = %q", v.Message)
	}
}

func TestError_WrappedCauseHidden(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause)

	if !errors.Is(err, ErrInternal) {
		t.Error("expected ErrInternal kind")
	}
	if errors.Unwrap(err) != cause {
		t.Error("expected wrapped cause to be reachable via Unwrap")
	}
	if body := ToBody(err); body.Message != "internal server error" {
		t.Errorf("ToBody leaked cause: %q", body.Message)
	}
}

func TestToBody_PlainError(t *testing.T) {
	body := ToBody(fmt.Errorf("some unexpected failure"))
	if body.Error != "internal" || body.Message != "internal server error" {
		t.Errorf("ToBody = %+v, want internal defaults", body)
	}
}

func TestHTTPStatus_WrappedError(t *testing.T) {
	err := fmt.Errorf("assigning case: %w", Validation("already assigned"))
	if got := HTTPStatus(err); got != http.StatusBadRequest {
		t.Errorf("HTTPStatus = %d, want 400", got)
	}
}
