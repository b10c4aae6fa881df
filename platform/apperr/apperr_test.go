package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := []struct {
		err    *Error
		status int
		code   string
	}{
		{NotFound("lead not found"), http.StatusNotFound, CodeNotFound},
		{Validation("bad"), http.StatusBadRequest, CodeValidation},
		{Conflict("dup").WithCode(CodeEmailExists), http.StatusConflict, CodeEmailExists},
		{Forbidden("no"), http.StatusForbidden, CodeForbidden},
		{Unauthorized("who"), http.StatusUnauthorized, CodeUnauthorized},
		{InvalidStage("missing stage"), http.StatusBadRequest, CodeInvalidStage},
		{StageInUse("in use"), http.StatusBadRequest, CodeStageInUse},
		{Internal("boom", errors.New("store down")), http.StatusInternalServerError, CodeInternal},
	}

	for _, tc := range cases {
		if got := tc.err.HTTPStatus(); got != tc.status {
			t.Errorf("%q: expected status %d, got %d", tc.err.Message, tc.status, got)
		}
		if got := tc.err.ResponseCode(); got != tc.code {
			t.Errorf("%q: expected code %s, got %s", tc.err.Message, tc.code, got)
		}
	}
}

func TestGetKindFollowsWrappedChain(t *testing.T) {
	base := InvalidStage("target stage does not exist")
	wrapped := fmt.Errorf("transition: %w", base)

	if !Is(wrapped, KindInvalidStage) {
		t.Fatal("expected wrapped error to report KindInvalidStage")
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatal("expected plain error to be KindUnknown")
	}
}

func TestInternalUnwrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal("failed to load lead", cause)

	if !errors.Is(err, cause) {
		t.Fatal("expected internal error to unwrap to its cause")
	}
}
