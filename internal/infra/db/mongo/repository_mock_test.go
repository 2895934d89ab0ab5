package mongo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"stayscape/internal/app/uow"
	domainbooking "stayscape/internal/domain/booking"
	domainlistings "stayscape/internal/domain/listings"
	domainrange "stayscape/internal/domain/shared/daterange"
)

func mockBooking(t *testing.T) *domainbooking.Booking {
	t.Helper()
	dr, err := domainrange.New(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:           "b1",
		ListingID:    "l1",
		GuestID:      "guest",
		Range:        dr,
		NightlyPrice: 100,
		CreatedAt:    time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

// sentCommands lists command name and target collection in order.
func sentCommands(mt *mtest.T) [][2]string {
	var out [][2]string
	for _, evt := range mt.GetAllStartedEvents() {
		coll, _ := evt.Command.Lookup(evt.CommandName).StringValueOK()
		out = append(out, [2]string{evt.CommandName, coll})
	}
	return out
}

var writeConflictResponse = mtest.CreateCommandErrorResponse(mtest.CommandError{
	Code:    112,
	Name:    "WriteConflict",
	Message: "write conflict during plan execution",
	Labels:  []string{transientTxnLabel},
})

func TestBookingCreateLocksGuardBeforeOverlapCheck(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("inserts when free", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateCursorResponse(0, "test.bookings", mtest.FirstBatch),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)
		repo := NewBookingRepository(mt.DB)
		require.NoError(mt, repo.Create(context.Background(), mockBooking(mt.T)))
		assert.Equal(mt, [][2]string{
			{"update", guardsCollection},
			{"aggregate", bookingsCollection},
			{"insert", bookingsCollection},
		}, sentCommands(mt))
	})

	mt.Run("conflict skips insert", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateCursorResponse(0, "test.bookings", mtest.FirstBatch, bson.D{{Key: "n", Value: 1}}),
		)
		repo := NewBookingRepository(mt.DB)
		err := repo.Create(context.Background(), mockBooking(mt.T))
		assert.ErrorIs(mt, err, domainbooking.ErrDateConflict)
		assert.Len(mt, sentCommands(mt), 2)
	})

	mt.Run("write conflict on guard is transient", func(mt *mtest.T) {
		mt.AddMockResponses(writeConflictResponse)
		repo := NewBookingRepository(mt.DB)
		err := repo.Create(context.Background(), mockBooking(mt.T))
		assert.ErrorIs(mt, err, domainbooking.ErrStorage)
		assert.ErrorIs(mt, err, uow.ErrTransient)
	})
}

func TestListingDeleteBumpsBookingGuard(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("deletes", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
		)
		repo := NewListingRepository(mt.DB)
		require.NoError(mt, repo.Delete(context.Background(), "l1"))
		assert.Equal(mt, [][2]string{
			{"update", guardsCollection},
			{"delete", listingsCollection},
		}, sentCommands(mt))
	})

	mt.Run("missing listing", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}),
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}),
		)
		repo := NewListingRepository(mt.DB)
		assert.ErrorIs(mt, repo.Delete(context.Background(), "l1"), domainlistings.ErrNotFound)
	})

	mt.Run("concurrent booking aborts delete", func(mt *mtest.T) {
		mt.AddMockResponses(writeConflictResponse)
		repo := NewListingRepository(mt.DB)
		err := repo.Delete(context.Background(), "l1")
		assert.ErrorIs(mt, err, uow.ErrTransient)
		assert.True(mt, uow.IsRetryable(err))
	})
}
