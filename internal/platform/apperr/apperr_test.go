package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"unauthorized", Unauthorized("x"), KindUnauthorized},
		{"forbidden", Forbidden("x"), KindForbidden},
		{"bad request", BadRequest("x"), KindBadRequest},
		{"not found", NotFound("x"), KindNotFound},
		{"conflict", Conflict("x"), KindConflict},
		{"dependency", Dependency("x", errors.New("down")), KindDependency},
		{"wrapped", fmt.Errorf("outer: %w", Forbidden("x")), KindForbidden},
		{"plain error", errors.New("boom"), KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDependency_DeadlineIsTimeout(t *testing.T) {
	err := Dependency("store", fmt.Errorf("query: %w", context.DeadlineExceeded))
	if err.Kind != KindTimeout {
		t.Errorf("expected TIMEOUT, got %s", err.Kind)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected wrapped deadline error to be preserved")
	}
}

func TestToHTTP(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{Unauthorized("UnAuthorized access"), http.StatusUnauthorized},
		{Forbidden("Forbidden access"), http.StatusForbidden},
		{BadRequest("bad"), http.StatusBadRequest},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("dup"), http.StatusConflict},
		{Dependency("store", errors.New("down")), http.StatusBadGateway},
		{Dependency("store", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		he := ToHTTP(tt.err)
		if he.Code != tt.code {
			t.Errorf("ToHTTP(%v).Code = %d, want %d", tt.err, he.Code, tt.code)
		}
	}
}

func TestToHTTP_PassesThroughEchoErrors(t *testing.T) {
	orig := echo.NewHTTPError(http.StatusTeapot, "teapot")
	if got := ToHTTP(orig); got != orig {
		t.Error("expected echo.HTTPError to be returned unchanged")
	}
}

func TestToHTTP_KeepsMessage(t *testing.T) {
	he := ToHTTP(Forbidden("Forbidden access"))
	if he.Message != "Forbidden access" {
		t.Errorf("expected message to be kept, got %v", he.Message)
	}
}
