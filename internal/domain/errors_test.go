package domain

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionErrorKinds(t *testing.T) {
	tests := []struct {
		kind     ErrorKind
		sentinel error
		status   int
	}{
		{KindAuthentication, ErrUnauthenticated, http.StatusUnauthorized},
		{KindAuthorization, ErrForbidden, http.StatusForbidden},
		{KindPrecondition, ErrPrecondition, http.StatusBadRequest},
		{KindVerification, ErrVerificationFailed, http.StatusBadRequest},
		{KindConflict, ErrDuplicate, http.StatusConflict},
		{KindNotFound, ErrNotFound, http.StatusNotFound},
		{KindPolicy, ErrRefundWindowExpired, http.StatusBadRequest},
		{KindUpstream, ErrUpstream, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", NewSubscriptionError(tt.kind, "msg", "sub_1", nil))
			assert.ErrorIs(t, err, tt.sentinel)
			assert.Equal(t, tt.kind, KindOf(err))
			assert.Equal(t, tt.status, StatusCode(err))
			assert.Equal(t, "msg", PublicMessage(err))
		})
	}
}

func TestGatewayErrorDefaultsTo500(t *testing.T) {
	err := NewGatewayError("cancel", "boom", 0, nil)
	assert.Equal(t, http.StatusInternalServerError, err.StatusCode)
	assert.ErrorIs(t, err, ErrUpstream)
	assert.Equal(t, KindUpstream, KindOf(err))
}

func TestUpstreamErrorCarriesGatewayDetails(t *testing.T) {
	gw := NewGatewayError("refund", "The payment has been fully refunded already", http.StatusBadRequest, nil)
	err := UpstreamError("Refund failed", "sub_1", fmt.Errorf("refund: %w", gw))

	assert.Equal(t, KindUpstream, err.Kind)
	assert.Equal(t, "The payment has been fully refunded already", err.Message)
	assert.Equal(t, http.StatusBadRequest, err.StatusCode)

	plain := UpstreamError("Refund failed", "sub_1", errors.New("socket closed"))
	assert.Equal(t, "Refund failed", plain.Message)
	assert.Equal(t, http.StatusInternalServerError, plain.StatusCode)
}

func TestOutcomeUnknownSurvivesWrapping(t *testing.T) {
	gw := NewGatewayError("refund", "request timed out, outcome unknown", http.StatusGatewayTimeout, nil)
	gw.OutcomeUnknown = true
	err := UpstreamError("Failed to process refund", "sub_1", gw)

	assert.True(t, IsOutcomeUnknown(err))
	assert.Equal(t, http.StatusGatewayTimeout, StatusCode(err))
	assert.False(t, IsOutcomeUnknown(NewGatewayError("refund", "bad request", http.StatusBadRequest, nil)))
	assert.False(t, IsOutcomeUnknown(errors.New("socket closed")))
}

func TestUnknownErrorIsInternal(t *testing.T) {
	err := errors.New("db exploded")
	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, StatusCode(err))
	assert.Equal(t, "Internal server error", PublicMessage(err))
}
