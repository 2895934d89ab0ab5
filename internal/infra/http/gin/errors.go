package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	listingapp "stayscape/internal/app/handlers/listings"
	"stayscape/internal/app/middleware"
	authsvc "stayscape/internal/app/services/auth"
	"stayscape/internal/app/uow"
	domainauth "stayscape/internal/domain/auth"
	domainbooking "stayscape/internal/domain/booking"
	domainlistings "stayscape/internal/domain/listings"
	domainreviews "stayscape/internal/domain/reviews"
	"stayscape/internal/domain/shared/daterange"
	domainuser "stayscape/internal/domain/user"
	"stayscape/internal/infra/security"
	"stayscape/internal/infra/storage/s3"
	"stayscape/internal/infra/validation"
)

var errBadRequest = errors.New("bad request")

type errorResponse struct {
	Error     string                  `json:"error"`
	Retryable bool                    `json:"retryable,omitempty"`
	Fields    []validation.FieldError `json:"fields,omitempty"`
}

var statusBySentinel = []struct {
	status    int
	sentinels []error
}{
	{http.StatusBadRequest, []error{
		errBadRequest,
		validation.ErrInvalid,
		daterange.ErrInvalidRange,
		domainbooking.ErrInvalidDateRange,
		domainbooking.ErrPastDate,
		domainbooking.ErrInvalidGuests,
		domainlistings.ErrTitleRequired,
		domainlistings.ErrInvalidPrice,
		domainlistings.ErrInvalidCategory,
		domainlistings.ErrInvalidAmenity,
		domainlistings.ErrInvalidPoint,
		domainreviews.ErrInvalidRating,
		domainreviews.ErrCommentRequired,
		listingapp.ErrNoPhotos,
		listingapp.ErrUnsupportedType,
		authsvc.ErrPasswordTooShort,
		security.ErrPasswordTooLong,
		domainuser.ErrEmailRequired,
		domainuser.ErrNameRequired,
	}},
	{http.StatusUnauthorized, []error{
		middleware.ErrUnauthenticated,
		authsvc.ErrInvalidCredentials,
		domainauth.ErrTokenRequired,
		domainauth.ErrSessionNotFound,
		domainauth.ErrSessionExpired,
	}},
	{http.StatusForbidden, []error{
		domainbooking.ErrSelfBooking,
		domainbooking.ErrForbidden,
		domainlistings.ErrNotOwner,
		domainreviews.ErrNotAuthor,
		domainreviews.ErrOwnListing,
	}},
	{http.StatusNotFound, []error{
		domainbooking.ErrNotFound,
		domainlistings.ErrNotFound,
		domainreviews.ErrNotFound,
		domainuser.ErrNotFound,
	}},
	{http.StatusConflict, []error{
		domainbooking.ErrDateConflict,
		domainbooking.ErrAlreadyStarted,
		domainbooking.ErrInvalidState,
		domainuser.ErrEmailAlreadyUsed,
	}},
}

// statusFor maps an application error to its HTTP status. Retryable storage
// failures take precedence so a conflict aborted by the store reads as 503.
func statusFor(err error) (status int, retryable bool) {
	if uow.IsRetryable(err) {
		return http.StatusServiceUnavailable, true
	}
	for _, group := range statusBySentinel {
		for _, sentinel := range group.sentinels {
			if errors.Is(err, sentinel) {
				return group.status, false
			}
		}
	}
	switch {
	case errors.Is(err, s3.ErrNotConfigured):
		return http.StatusServiceUnavailable, false
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout, false
	}
	return http.StatusInternalServerError, false
}

func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status, retryable := statusFor(err)
	body := errorResponse{Error: err.Error(), Retryable: retryable}
	var verr *validation.Error
	if errors.As(err, &verr) {
		body.Fields = verr.Fields
	}
	if status >= http.StatusInternalServerError {
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"error", err,
		)
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	}
	c.AbortWithStatusJSON(status, body)
}
