package ginserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayscape/internal/app/uow"
	domainbooking "stayscape/internal/domain/booking"
	domainlistings "stayscape/internal/domain/listings"
	"stayscape/internal/infra/storage/s3"
	"stayscape/internal/infra/validation"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{"invalid range", domainbooking.ErrInvalidDateRange, http.StatusBadRequest, false},
		{"past date", fmt.Errorf("create: %w", domainbooking.ErrPastDate), http.StatusBadRequest, false},
		{"validation", &validation.Error{Fields: []validation.FieldError{{Field: "title", Tag: "required"}}}, http.StatusBadRequest, false},
		{"listing missing", domainlistings.ErrNotFound, http.StatusNotFound, false},
		{"self booking", domainbooking.ErrSelfBooking, http.StatusForbidden, false},
		{"not owner", domainlistings.ErrNotOwner, http.StatusForbidden, false},
		{"conflict", domainbooking.ErrDateConflict, http.StatusConflict, false},
		{"started", domainbooking.ErrAlreadyStarted, http.StatusConflict, false},
		{"storage", domainbooking.ErrStorage, http.StatusServiceUnavailable, true},
		{"tx", fmt.Errorf("%w: commit: boom", uow.ErrTxFailed), http.StatusServiceUnavailable, true},
		{"version", domainbooking.ErrConcurrentUpdate, http.StatusServiceUnavailable, true},
		{"deadline", context.DeadlineExceeded, http.StatusServiceUnavailable, true},
		{"s3 off", s3.ErrNotConfigured, http.StatusServiceUnavailable, false},
		{"cancelled", context.Canceled, http.StatusRequestTimeout, false},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, retryable := statusFor(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.retryable, retryable)
		})
	}
}

func TestParseDate(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)

	got, err := parseDate("check_in", "2024-06-01", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, loc)))

	got, err = parseDate("check_in", "2024-06-01T10:00:00Z", loc)
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)))

	got, err = parseDate("check_in", " ", loc)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	_, err = parseDate("check_in", "01/06/2024", loc)
	assert.ErrorIs(t, err, errBadRequest)
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc", extractBearerToken("Bearer abc"))
	assert.Equal(t, "abc", extractBearerToken("bearer  abc "))
	assert.Empty(t, extractBearerToken("Basic abc"))
	assert.Empty(t, extractBearerToken(""))
}
