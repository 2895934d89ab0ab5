package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	appoutbox "stayscape/internal/app/outbox"
	"stayscape/internal/app/uow"
	domainbooking "stayscape/internal/domain/booking"
	domainlistings "stayscape/internal/domain/listings"
	domainreviews "stayscape/internal/domain/reviews"
	domainuser "stayscape/internal/domain/user"
	infraoutbox "stayscape/internal/infra/outbox"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
// Repositories pick the session up from the context bound by the unit.
type Factory struct {
	DB     *mongo.Database
	Outbox *infraoutbox.MongoStore
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a session and a snapshot transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil || f.Outbox == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority()).
		SetReadPreference(readpref.Primary())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(context.WithoutCancel(ctx))
		return nil, err
	}
	return &Unit{
		session:  session,
		listings: NewListingRepository(f.DB),
		bookings: NewBookingRepository(f.DB),
		reviews:  NewReviewRepository(f.DB),
		users:    NewUserRepository(f.DB),
		outbox:   f.Outbox,
	}, nil
}

type Unit struct {
	session mongo.Session
	ended   bool

	listings *ListingRepository
	bookings *BookingRepository
	reviews  *ReviewRepository
	users    *UserRepository
	outbox   *infraoutbox.MongoStore
}

func (u *Unit) Listings() domainlistings.ListingRepository { return u.listings }
func (u *Unit) Bookings() domainbooking.Repository         { return u.bookings }
func (u *Unit) Reviews() domainreviews.Repository          { return u.reviews }
func (u *Unit) Users() domainuser.Repository               { return u.users }
func (u *Unit) Outbox() appoutbox.Outbox                   { return u.outbox }

func (u *Unit) Commit(ctx context.Context) error {
	if u.ended {
		return nil
	}
	defer u.end(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		if isTransient(err) {
			return fmt.Errorf("%w: %w", uow.ErrTransient, err)
		}
		return err
	}
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.ended {
		return nil
	}
	defer u.end(ctx)
	return u.session.AbortTransaction(ctx)
}

func (u *Unit) end(ctx context.Context) {
	u.ended = true
	u.session.EndSession(context.WithoutCancel(ctx))
}

// InjectContext ensures the Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UoWFactory = Factory{}
var _ uow.ContextInjector = (*Unit)(nil)
