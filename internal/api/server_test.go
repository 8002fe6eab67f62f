package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Parth-Sharma-Dev/smartshopping/internal/game"

	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	assert.Equal(t, "abc123", bearerToken("Bearer abc123"))
	assert.Equal(t, "abc123", bearerToken("bearer abc123"))
	assert.Equal(t, "abc123", bearerToken("  Bearer   abc123  "))
	assert.Equal(t, "", bearerToken(""))
	assert.Equal(t, "", bearerToken("abc123"))
	assert.Equal(t, "", bearerToken("Basic abc123"))
}

func TestWriteDomainErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{game.ErrItemNotFound, http.StatusNotFound},
		{game.ErrUserNotFound, http.StatusNotFound},
		{game.ErrSessionInactive, http.StatusBadRequest},
		{game.ErrOutOfStock, http.StatusBadRequest},
		{game.ErrAlreadyFinished, http.StatusBadRequest},
		{game.ErrInsufficientBal, http.StatusBadRequest},
		{game.ErrOwnershipCap, http.StatusBadRequest},
		{game.ErrInvalidUsername, http.StatusBadRequest},
		{game.ErrUsernameTaken, http.StatusConflict},
		{game.ErrRoundActive, http.StatusConflict},
		{game.ErrRoundNotActive, http.StatusConflict},
		{game.ErrRoundInProgress, http.StatusConflict},
		{game.ErrTxAborted, http.StatusConflict},
		{fmt.Errorf("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		rec := httptest.NewRecorder()
		writeDomainError(rec, tc.err)
		assert.Equalf(t, tc.want, rec.Code, "err=%v", tc.err)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	}
}

func TestWriteDomainErrorWrapped(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, fmt.Errorf("%w: commit failed", game.ErrTxAborted))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
