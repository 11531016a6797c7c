package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", NewNotFoundError("missing"), http.StatusNotFound},
		{"validation", NewValidationError("bad"), http.StatusBadRequest},
		{"forbidden", NewForbiddenError("no"), http.StatusForbidden},
		{"unauthorized", NewUnauthorizedError("who"), http.StatusUnauthorized},
		{"external", NewExternalError("upstream", errors.New("boom")), http.StatusBadGateway},
		{"unavailable", NewUnavailableError("store down", errors.New("dial")), http.StatusServiceUnavailable},
		{"wrapped", fmt.Errorf("cancel: %w", NewNotFoundError("missing")), http.StatusNotFound},
		{"plain", errors.New("plain"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestIsType(t *testing.T) {
	err := fmt.Errorf("list: %w", NewForbiddenError("frontline workers only"))

	assert.True(t, IsType(err, ErrorTypeForbidden))
	assert.False(t, IsType(err, ErrorTypeNotFound))
	assert.False(t, IsType(errors.New("x"), ErrorTypeForbidden))
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "frontline workers only", PublicMessage(NewForbiddenError("frontline workers only")))
	assert.Equal(t, "internal server error", PublicMessage(errors.New("pq: connection refused")))
}
