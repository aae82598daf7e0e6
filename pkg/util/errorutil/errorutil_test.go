package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantHTTP int
	}{
		{name: "domain error passes through", err: NewOverpayment(100, 100, 1), wantCode: CodeOverpayment, wantHTTP: http.StatusUnprocessableEntity},
		{name: "wrapped domain error", err: fmt.Errorf("apply: %w", NewConcurrencyConflict("ticket", "t-1")), wantCode: CodeConcurrencyConflict, wantHTTP: http.StatusConflict},
		{name: "no rows maps to not found", err: pgx.ErrNoRows, wantCode: CodeNotFound, wantHTTP: http.StatusNotFound},
		{name: "unknown error is internal", err: errors.New("boom"), wantCode: CodeInternal, wantHTTP: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			de := ToDomainError(tt.err)
			require.NotNil(t, de)
			assert.Equal(t, tt.wantCode, de.Code)
			assert.Equal(t, tt.wantHTTP, de.HTTPStatus)
		})
	}
	assert.Nil(t, ToDomainError(nil))
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("change status: %w", NewInvalidTransition("project", "completed", "draft"))
	assert.True(t, HasCode(err, CodeInvalidTransition))
	assert.False(t, HasCode(err, CodeForbidden))
	assert.False(t, HasCode(errors.New("plain"), CodeInvalidTransition))
}

func TestInvalidTransitionDetails(t *testing.T) {
	de := ToDomainError(NewInvalidTransition("invoice", "cancelled", "sent"))
	assert.Equal(t, "invoice cannot transition from cancelled to sent", de.Message)
	assert.Equal(t, "cancelled", de.Details["from"])
	assert.Equal(t, "sent", de.Details["to"])
}

func TestForbiddenHasNoDetails(t *testing.T) {
	de := ToDomainError(NewForbidden("access denied"))
	assert.Empty(t, de.Details)
}

func TestExternalErrorsUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := NewExternalError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "workflow runner failed: dial tcp: refused", err.Error())
}
