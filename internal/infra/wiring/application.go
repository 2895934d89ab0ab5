// Package wiring assembles the command and query buses, their middleware and
// the HTTP handlers on top of a storage backend.
package wiring

import (
	"context"
	"log/slog"
	"time"

	"stayscape/internal/app/commands"
	"stayscape/internal/app/dto"
	bookingapp "stayscape/internal/app/handlers/booking"
	listingapp "stayscape/internal/app/handlers/listings"
	meapp "stayscape/internal/app/handlers/me"
	reviewsapp "stayscape/internal/app/handlers/reviews"
	"stayscape/internal/app/middleware"
	appoutbox "stayscape/internal/app/outbox"
	"stayscape/internal/app/queries"
	authsvc "stayscape/internal/app/services/auth"
	"stayscape/internal/app/uow"
	domainbooking "stayscape/internal/domain/booking"
	domainlistings "stayscape/internal/domain/listings"
	domainreviews "stayscape/internal/domain/reviews"
	ginserver "stayscape/internal/infra/http/gin"
	"stayscape/internal/infra/security"
	"stayscape/internal/infra/storage/s3"
	"stayscape/internal/infra/validation"
)

// Options tune the application independently of the backend.
type Options struct {
	Location   *time.Location
	TxTimeout  time.Duration
	SessionTTL time.Duration
	Uploader   s3.Uploader
	Flusher    appoutbox.Flusher
	Passwords  authsvc.PasswordHasher
	Logger     *slog.Logger
	Now        func() time.Time
}

type Application struct {
	Commands commands.Bus
	Queries  queries.Bus
	Auth     *authsvc.Service
	Handlers ginserver.Handlers
}

// replaySentinels are errors replayed by identity for a repeated idempotency key.
var replaySentinels = []error{
	domainbooking.ErrInvalidDateRange,
	domainbooking.ErrPastDate,
	domainbooking.ErrInvalidGuests,
	domainbooking.ErrNotFound,
	domainbooking.ErrSelfBooking,
	domainbooking.ErrDateConflict,
	domainbooking.ErrForbidden,
	domainbooking.ErrAlreadyStarted,
	domainlistings.ErrNotFound,
	domainlistings.ErrNotOwner,
	domainreviews.ErrNotFound,
}

func Build(backend Backend, opts Options) *Application {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	uploader := opts.Uploader
	if uploader == nil {
		uploader = s3.NoopUploader{}
	}
	flusher := opts.Flusher
	if flusher == nil {
		flusher = noopFlusher{}
	}
	passwords := opts.Passwords
	if passwords == nil {
		passwords = security.BcryptHasher{}
	}
	encoder := appoutbox.JSONEventEncoder{}
	factory := backend.UoW

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, bookingapp.CreateBookingKey, &bookingapp.CreateBookingHandler{
		Encoder:  encoder,
		Logger:   logger,
		Now:      now,
		Location: opts.Location,
	})
	commands.RegisterHandler(commandBus, bookingapp.CancelBookingKey, &bookingapp.CancelBookingHandler{
		Encoder: encoder,
		Logger:  logger,
		Now:     now,
	})
	commands.RegisterHandler(commandBus, bookingapp.CompleteEndedBookingsKey, &bookingapp.CompleteEndedBookingsHandler{
		Encoder: encoder,
		Logger:  logger,
	})
	commands.RegisterHandler(commandBus, listingapp.CreateListingKey, &listingapp.CreateListingHandler{
		Encoder: encoder,
		Logger:  logger,
		Now:     now,
	})
	commands.RegisterHandler(commandBus, listingapp.UpdateListingKey, &listingapp.UpdateListingHandler{
		Encoder: encoder,
		Now:     now,
	})
	commands.RegisterHandler(commandBus, listingapp.DeleteListingKey, &listingapp.DeleteListingHandler{
		Encoder: encoder,
		Logger:  logger,
		Now:     now,
	})
	commands.RegisterHandler(commandBus, listingapp.UploadListingPhotosKey, &listingapp.UploadListingPhotosHandler{
		UoWFactory: factory,
		Uploader:   uploader,
		TxTimeout:  opts.TxTimeout,
		Logger:     logger,
		Now:        now,
	})
	commands.RegisterHandler(commandBus, reviewsapp.SubmitReviewKey, &reviewsapp.SubmitReviewHandler{
		Encoder: encoder,
		Logger:  logger,
		Now:     now,
	})
	commands.RegisterHandler(commandBus, reviewsapp.DeleteReviewKey, &reviewsapp.DeleteReviewHandler{
		Encoder: encoder,
		Now:     now,
	})
	commands.RegisterHandler(commandBus, meapp.ToggleWishlistKey, &meapp.ToggleWishlistHandler{Now: now})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, bookingapp.ListGuestBookingsKey, &bookingapp.ListGuestBookingsHandler{UoWFactory: factory, Logger: logger})
	queries.RegisterHandler(queryBus, bookingapp.ListHostBookingsKey, &bookingapp.ListHostBookingsHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, bookingapp.BookedDatesKey, &bookingapp.BookedDatesHandler{UoWFactory: factory, Now: now})
	queries.RegisterHandler(queryBus, listingapp.GetListingKey, &listingapp.GetListingHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, listingapp.SearchListingsKey, &listingapp.SearchListingsHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, listingapp.ListingsMapKey, &listingapp.ListingsMapHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, meapp.ListWishlistKey, &meapp.ListWishlistHandler{UoWFactory: factory})
	queries.RegisterHandler(queryBus, meapp.UserProfileKey, &meapp.UserProfileHandler{UoWFactory: factory})

	validator := validation.New()
	txTimeout := opts.TxTimeout
	commandsWithMiddleware := middleware.ChainCommands(
		commandBus,
		middleware.Authorization(middleware.RequireActor{}),
		middleware.Validation(validator),
		middleware.Idempotency(backend.Idempotency, nil, replaySentinels...),
		middleware.OutboxFlush(flusher, logger),
		middleware.Transaction(factory, func(commands.Command) uow.TxOptions {
			return uow.TxOptions{Timeout: txTimeout}
		}, logger),
	)
	queriesWithMiddleware := middleware.ChainQueries(
		queryBus,
		middleware.QueryAuthorization(middleware.RequireActor{}),
		middleware.QueryValidation(validator),
	)

	auth := &authsvc.Service{
		Users:      backend.Users,
		Sessions:   backend.Sessions,
		Passwords:  passwords,
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: opts.SessionTTL,
		Logger:     logger,
		Now:        now,
	}

	return &Application{
		Commands: commandsWithMiddleware,
		Queries:  queriesWithMiddleware,
		Auth:     auth,
		Handlers: ginserver.Handlers{
			Booking: ginserver.BookingHandler{
				Commands: commandsWithMiddleware,
				Queries:  queriesWithMiddleware,
				Location: opts.Location,
				Logger:   logger,
			},
			Listing: ginserver.ListingHandler{
				Commands: commandsWithMiddleware,
				Queries:  queriesWithMiddleware,
				Logger:   logger,
			},
			Reviews: ginserver.ReviewsHandler{
				Commands: commandsWithMiddleware,
				Logger:   logger,
			},
			Auth: ginserver.AuthHandler{
				Service: auth,
				Logger:  logger,
			},
			Wishlist: ginserver.WishlistHandler{
				Commands: commandsWithMiddleware,
				Queries:  queriesWithMiddleware,
				Logger:   logger,
			},
			Users: ginserver.UsersHandler{
				Queries: queriesWithMiddleware,
				Logger:  logger,
			},
			AuthMiddleware: ginserver.AuthMiddleware{Resolver: auth, Logger: logger}.Handle,
		},
	}
}

// CompleteEndedBookings is the periodic completion sweep job.
func (a *Application) CompleteEndedBookings(ctx context.Context, now time.Time) error {
	_, err := commands.Dispatch[bookingapp.CompleteEndedBookingsCommand, dto.CompletionResult](ctx, a.Commands, bookingapp.CompleteEndedBookingsCommand{Now: now})
	return err
}

type noopFlusher struct{}

func (noopFlusher) Flush(context.Context) error { return nil }
