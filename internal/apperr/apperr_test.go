package apperr

import (
	"database/sql"
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
		{"not found", NotFound("event %d not found", 1), http.StatusNotFound},
		{"conflict", Conflict("not enough seats"), http.StatusConflict},
		{"invalid state", InvalidState("reservation is not pending"), http.StatusBadRequest},
		{"validation", Validation("bad input", "title is required"), http.StatusBadRequest},
		{"forbidden", Forbidden("not the owner"), http.StatusForbidden},
		{"unauthorized", Unauthorized("invalid token"), http.StatusUnauthorized},
		{"internal", Internal(sql.ErrConnDone, "load event"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("create reservation: %w", Conflict("duplicate")), http.StatusConflict},
		{"foreign", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestInternalKeepsCause(t *testing.T) {
	err := Internal(sql.ErrConnDone, "load event")

	assert.ErrorIs(t, err, ErrInternal)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Equal(t, "load event: "+sql.ErrConnDone.Error(), err.Error())

	e, ok := As(fmt.Errorf("outer: %w", err))
	assert.True(t, ok)
	assert.Equal(t, "load event", e.Message)
}
