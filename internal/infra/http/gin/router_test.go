package ginserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"sync"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"stayscape/internal/app/dto"
	"stayscape/internal/app/uow"
	"stayscape/internal/infra/config"
	ginserver "stayscape/internal/infra/http/gin"
	"stayscape/internal/infra/obs"
	"stayscape/internal/infra/storage/memory"
	"stayscape/internal/infra/storage/s3"
	"stayscape/internal/infra/wiring"
)

type harness struct {
	t        *testing.T
	now      time.Time
	backend  wiring.Backend
	app      *wiring.Application
	router   *gin.Engine
	uploader *s3.MemoryUploader
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, wiring.NewMemoryBackend(time.Hour))
}

func newHarnessWith(t *testing.T, backend wiring.Backend) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &harness{
		t:        t,
		now:      time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
		backend:  backend,
		uploader: &s3.MemoryUploader{BaseURL: "http://photos.test"},
	}
	h.app = wiring.Build(backend, wiring.Options{
		Location:   time.UTC,
		TxTimeout:  5 * time.Second,
		SessionTTL: 365 * 24 * time.Hour,
		Uploader:   h.uploader,
		Passwords:  bcryptMin{},
		Logger:     logger,
		Now:        func() time.Time { return h.now },
	})
	h.router = ginserver.NewRouter(config.Config{Env: "test"}, obs.Middleware{Logger: logger}, obs.HealthHandlers{Ready: backend.Ready}, h.app.Handlers)
	return h
}

type bcryptMin struct{}

func (bcryptMin) Hash(password string) (string, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(out), err
}

func (bcryptMin) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (h *harness) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

type errorBody struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func (h *harness) register(email, name string) (token, userID string) {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"name":     name,
		"password": "correct-horse",
	})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[dto.AuthResponse](h.t, rec)
	return res.Token, res.User.ID
}

func (h *harness) createListing(token string, price int64) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/v1/listings", token, map[string]any{
		"title":     "Cabin by the lake",
		"price":     price,
		"location":  "Lakeside",
		"country":   "Norway",
		"longitude": 10.75,
		"latitude":  59.91,
		"category":  "Mountains",
		"amenities": []string{"WiFi"},
	})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[dto.Listing](h.t, rec).ID
}

func (h *harness) book(token, listingID, checkIn, checkOut string, headers ...string) *httptest.ResponseRecorder {
	h.t.Helper()
	return h.do(http.MethodPost, "/api/v1/listings/"+listingID+"/bookings", token, map[string]any{
		"check_in":  checkIn,
		"check_out": checkOut,
		"guests":    2,
	}, headers...)
}

func TestBookingConflictAndRebookAfterCancel(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	guestA, _ := h.register("a@example.com", "Guest A")
	guestB, _ := h.register("b@example.com", "Guest B")
	listingID := h.createListing(hostToken, 100)

	rec := h.book(guestA, listingID, "2024-06-01", "2024-06-04")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode[dto.Booking](t, rec)
	assert.Equal(t, int64(300), first.TotalPrice)
	assert.Equal(t, 3, first.Nights)
	assert.Equal(t, "confirmed", first.Status)

	rec = h.book(guestB, listingID, "2024-06-03", "2024-06-05")
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	rec = h.do(http.MethodDelete, "/api/v1/bookings/"+first.ID, guestA, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "cancelled", decode[dto.Booking](t, rec).Status)

	rec = h.book(guestB, listingID, "2024-06-03", "2024-06-05")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, int64(200), decode[dto.Booking](t, rec).TotalPrice)
}

func TestConcurrentOverlappingBookingsOneWins(t *testing.T) {
	const (
		trials = 10
		guests = 8
	)
	for trial := 0; trial < trials; trial++ {
		h := newHarness(t)
		hostToken, _ := h.register("host@example.com", "Host")
		listingID := h.createListing(hostToken, 100)
		tokens := make([]string, guests)
		for i := range tokens {
			tokens[i], _ = h.register(fmt.Sprintf("g%d@example.com", i), "Guest")
		}

		codes := make(chan int, guests)
		var wg sync.WaitGroup
		for i, token := range tokens {
			body, err := json.Marshal(map[string]any{
				"check_in":  fmt.Sprintf("2024-06-%02d", 1+i%3),
				"check_out": "2024-06-05",
			})
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/"+listingID+"/bookings", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)
			wg.Add(1)
			go func() {
				defer wg.Done()
				rec := httptest.NewRecorder()
				h.router.ServeHTTP(rec, req)
				codes <- rec.Code
			}()
		}
		wg.Wait()
		close(codes)

		byCode := map[int]int{}
		for code := range codes {
			byCode[code]++
		}
		require.Equal(t, map[int]int{http.StatusCreated: 1, http.StatusConflict: guests - 1}, byCode, "trial %d", trial)

		rec := h.do(http.MethodGet, "/api/v1/listings/"+listingID+"/booked-dates", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Len(t, decode[[]dto.BookedRange](t, rec), 1)
	}
}

func TestAdjacentBookingsDoNotConflict(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	guest, _ := h.register("guest@example.com", "Guest")
	listingID := h.createListing(hostToken, 80)

	require.Equal(t, http.StatusCreated, h.book(guest, listingID, "2024-06-01", "2024-06-04").Code)
	rec := h.book(guest, listingID, "2024-06-04", "2024-06-06")
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestBookingValidationStatuses(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	guest, _ := h.register("guest@example.com", "Guest")
	listingID := h.createListing(hostToken, 100)

	cases := []struct {
		name     string
		token    string
		listing  string
		checkIn  string
		checkOut string
		status   int
	}{
		{"anonymous", "", listingID, "2024-06-01", "2024-06-04", http.StatusUnauthorized},
		{"reversed range", guest, listingID, "2024-06-04", "2024-06-01", http.StatusBadRequest},
		{"empty range", guest, listingID, "2024-06-04", "2024-06-04", http.StatusBadRequest},
		{"past check-in", guest, listingID, "2024-04-30", "2024-05-03", http.StatusBadRequest},
		{"unparsable date", guest, listingID, "June 1st", "2024-06-04", http.StatusBadRequest},
		{"unknown listing", guest, "missing", "2024-06-01", "2024-06-04", http.StatusNotFound},
		{"own listing", hostToken, listingID, "2024-06-01", "2024-06-04", http.StatusForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.book(tc.token, tc.listing, tc.checkIn, tc.checkOut)
			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
		})
	}
}

func TestBookingTodayIsNotPast(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	guest, _ := h.register("guest@example.com", "Guest")
	listingID := h.createListing(hostToken, 100)

	rec := h.book(guest, listingID, "2024-05-01", "2024-05-02")
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestTotalPriceIsSnapshotAtCreation(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	guest, _ := h.register("guest@example.com", "Guest")
	listingID := h.createListing(hostToken, 100)

	require.Equal(t, http.StatusCreated, h.book(guest, listingID, "2024-06-01", "2024-06-04").Code)

	rec := h.do(http.MethodPut, "/api/v1/listings/"+listingID, hostToken, map[string]any{
		"title":     "Cabin by the lake",
		"price":     150,
		"location":  "Lakeside",
		"country":   "Norway",
		"longitude": 10.75,
		"latitude":  59.91,
		"category":  "Mountains",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, int64(150), decode[dto.Listing](t, rec).Price)

	rec = h.do(http.MethodGet, "/api/v1/bookings", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bookings := decode[dto.GuestBookingCollection](t, rec)
	require.Len(t, bookings.Items, 1)
	assert.Equal(t, int64(300), bookings.Items[0].TotalPrice)
	assert.Equal(t, int64(150), bookings.Items[0].Listing.Price)
}

func TestCancelRules(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	guest, _ := h.register("guest@example.com", "Guest")
	other, _ := h.register("other@example.com", "Other")
	listingID := h.createListing(hostToken, 100)

	rec := h.book(guest, listingID, "2024-06-01", "2024-06-04")
	require.Equal(t, http.StatusCreated, rec.Code)
	booking := decode[dto.Booking](t, rec)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, "/api/v1/bookings/"+booking.ID, other, nil).Code)
	assert.Equal(t, http.StatusNotFound, h.do(http.MethodDelete, "/api/v1/bookings/missing", guest, nil).Code)

	h.now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	rec = h.do(http.MethodDelete, "/api/v1/bookings/"+booking.ID, guest, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
}

func TestCancelTwiceIsNoop(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	guest, _ := h.register("guest@example.com", "Guest")
	listingID := h.createListing(hostToken, 100)

	rec := h.book(guest, listingID, "2024-06-01", "2024-06-04")
	require.Equal(t, http.StatusCreated, rec.Code)
	booking := decode[dto.Booking](t, rec)

	first := h.do(http.MethodDelete, "/api/v1/bookings/"+booking.ID, guest, nil)
	require.Equal(t, http.StatusOK, first.Code)
	second := h.do(http.MethodDelete, "/api/v1/bookings/"+booking.ID, guest, nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, decode[dto.Booking](t, first).Version, decode[dto.Booking](t, second).Version)
}

func TestBookedDatesHideGuestsAndCancelled(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	guest, guestID := h.register("guest@example.com", "Guest")
	listingID := h.createListing(hostToken, 100)

	require.Equal(t, http.StatusCreated, h.book(guest, listingID, "2024-06-01", "2024-06-04").Code)
	rec := h.book(guest, listingID, "2024-07-01", "2024-07-03")
	require.Equal(t, http.StatusCreated, rec.Code)
	cancelled := decode[dto.Booking](t, rec)
	require.Equal(t, http.StatusOK, h.do(http.MethodDelete, "/api/v1/bookings/"+cancelled.ID, guest, nil).Code)

	rec = h.do(http.MethodGet, "/api/v1/listings/"+listingID+"/booked-dates", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), guestID)
	assert.NotContains(t, rec.Body.String(), "guest")

	ranges := decode[[]dto.BookedRange](t, rec)
	require.Len(t, ranges, 1)
	assert.True(t, ranges[0].CheckIn.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, ranges[0].CheckOut.Equal(time.Date(2024, 6, 4, 0, 0, 0, 0, time.UTC)))

	rec = h.do(http.MethodGet, "/api/v1/listings/unknown/booked-dates", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestIdempotentCreateReplaysResult(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	guest, _ := h.register("guest@example.com", "Guest")
	listingID := h.createListing(hostToken, 100)

	first := h.book(guest, listingID, "2024-06-01", "2024-06-04", "Idempotency-Key", "req-1")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := h.book(guest, listingID, "2024-06-01", "2024-06-04", "Idempotency-Key", "req-1")
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.Equal(t, decode[dto.Booking](t, first).ID, decode[dto.Booking](t, second).ID)

	rec := h.do(http.MethodGet, "/api/v1/bookings", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.GuestBookingCollection](t, rec).Items, 1)

	third := h.book(guest, listingID, "2024-06-01", "2024-06-04", "Idempotency-Key", "req-2")
	assert.Equal(t, http.StatusConflict, third.Code)
	replayed := h.book(guest, listingID, "2024-06-01", "2024-06-04", "Idempotency-Key", "req-2")
	assert.Equal(t, http.StatusConflict, replayed.Code)
}

func TestHostSeesBookingsOnOwnListings(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	guest, guestID := h.register("guest@example.com", "Guest")
	listingID := h.createListing(hostToken, 100)
	require.Equal(t, http.StatusCreated, h.book(guest, listingID, "2024-06-01", "2024-06-04").Code)
	require.Equal(t, http.StatusCreated, h.book(guest, listingID, "2024-06-10", "2024-06-12").Code)

	rec := h.do(http.MethodGet, "/api/v1/bookings/hosting", hostToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	host := decode[dto.HostBookingCollection](t, rec)
	require.Len(t, host.Items, 2)
	assert.Equal(t, guestID, host.Items[0].Guest.ID)
	assert.False(t, host.Items[0].CreatedAt.Before(host.Items[1].CreatedAt))

	rec = h.do(http.MethodGet, "/api/v1/bookings/hosting", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decode[dto.HostBookingCollection](t, rec).Items)
}

func TestCompletionSweepKeepsDatesOccupied(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	guest, _ := h.register("guest@example.com", "Guest")
	listingID := h.createListing(hostToken, 100)
	require.Equal(t, http.StatusCreated, h.book(guest, listingID, "2024-06-01", "2024-06-04").Code)

	h.now = time.Date(2024, 6, 4, 12, 0, 0, 0, time.UTC)
	require.NoError(t, h.app.CompleteEndedBookings(context.Background(), h.now))

	rec := h.do(http.MethodGet, "/api/v1/bookings", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[dto.GuestBookingCollection](t, rec).Items
	require.Len(t, items, 1)
	assert.Equal(t, "completed", items[0].Status)
}

func TestDeleteListingCascadesReviews(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	guest, _ := h.register("guest@example.com", "Guest")
	listingID := h.createListing(hostToken, 100)

	rec := h.do(http.MethodPost, "/api/v1/listings/"+listingID+"/reviews", guest, map[string]any{"rating": 5, "comment": "Lovely"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = h.do(http.MethodPost, "/api/v1/listings/"+listingID+"/reviews", hostToken, map[string]any{"rating": 5, "comment": "Mine"})
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/listings/"+listingID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[dto.ListingDetail](t, rec).Reviews, 1)

	assert.Equal(t, http.StatusForbidden, h.do(http.MethodDelete, "/api/v1/listings/"+listingID, guest, nil).Code)

	rec = h.do(http.MethodDelete, "/api/v1/listings/"+listingID, hostToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"listing_id":"`+listingID+`","removed_reviews":1}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/listings/"+listingID, "", nil).Code)

	store, ok := h.backend.Outbox.(*memory.OutboxStore)
	require.True(t, ok)
	var names []string
	for _, rec := range store.Records() {
		names = append(names, rec.Name)
	}
	assert.Contains(t, names, "listing.deleted")
}

func TestSearchAndMap(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	cheap := h.createListing(hostToken, 50)
	h.createListing(hostToken, 500)

	rec := h.do(http.MethodGet, "/api/v1/listings?maxPrice=100&q=lake", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	catalog := decode[dto.ListingCatalog](t, rec)
	require.Len(t, catalog.Items, 1)
	assert.Equal(t, cheap, catalog.Items[0].ID)
	assert.Equal(t, 1, catalog.Total)

	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/v1/listings?minPrice=abc", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, h.do(http.MethodGet, "/api/v1/listings?category=Volcanoes", "", nil).Code)

	rec = h.do(http.MethodGet, "/api/v1/listings/map", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	fc := decode[dto.FeatureCollection](t, rec)
	assert.Equal(t, "FeatureCollection", fc.Type)
	assert.Len(t, fc.Features, 2)
}

func TestWishlistToggle(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	guest, _ := h.register("guest@example.com", "Guest")
	listingID := h.createListing(hostToken, 100)

	rec := h.do(http.MethodPost, "/api/v1/wishlist/"+listingID, guest, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "added", decode[dto.WishlistToggle](t, rec).Action)

	rec = h.do(http.MethodGet, "/api/v1/wishlist", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Items []dto.Listing `json:"items"`
	}](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, listingID, list.Items[0].ID)

	rec = h.do(http.MethodPost, "/api/v1/wishlist/"+listingID, guest, nil)
	assert.Equal(t, "removed", decode[dto.WishlistToggle](t, rec).Action)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/v1/wishlist", "", nil).Code)
}

func TestUserProfileShowsBookingsOnlyToOwner(t *testing.T) {
	h := newHarness(t)
	hostToken, hostID := h.register("host@example.com", "Host")
	guest, guestID := h.register("guest@example.com", "Guest")
	other, _ := h.register("other@example.com", "Other")
	listingID := h.createListing(hostToken, 100)

	var lastID string
	for i := 0; i < 6; i++ {
		h.now = h.now.Add(time.Minute)
		checkIn := fmt.Sprintf("2024-06-%02d", 1+i*2)
		checkOut := fmt.Sprintf("2024-06-%02d", 2+i*2)
		rec := h.book(guest, listingID, checkIn, checkOut)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		lastID = decode[dto.Booking](t, rec).ID
	}
	rec := h.do(http.MethodPost, "/api/v1/listings/"+listingID+"/reviews", guest, map[string]any{"rating": 4, "comment": "Quiet"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/v1/users/"+guestID+"/profile", guest, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	own := decode[dto.PublicProfile](t, rec)
	assert.True(t, own.IsOwnProfile)
	assert.Empty(t, own.Listings)
	require.Len(t, own.Bookings, 5)
	assert.Equal(t, lastID, own.Bookings[0].ID)
	assert.Equal(t, "Cabin by the lake", own.Bookings[0].Listing.Title)
	require.Len(t, own.Reviews, 1)
	assert.Equal(t, listingID, own.Reviews[0].Listing.ID)
	assert.Equal(t, "Cabin by the lake", own.Reviews[0].Listing.Title)

	for _, token := range []string{other, ""} {
		rec = h.do(http.MethodGet, "/api/v1/users/"+guestID+"/profile", token, nil)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		seen := decode[dto.PublicProfile](t, rec)
		assert.False(t, seen.IsOwnProfile)
		assert.Empty(t, seen.Bookings)
		assert.Len(t, seen.Reviews, 1)
	}

	rec = h.do(http.MethodGet, "/api/v1/users/"+hostID+"/profile", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	host := decode[dto.PublicProfile](t, rec)
	require.Len(t, host.Listings, 1)
	assert.Equal(t, listingID, host.Listings[0].ID)
	assert.Equal(t, "Host", host.User.Name)

	assert.Equal(t, http.StatusNotFound, h.do(http.MethodGet, "/api/v1/users/missing/profile", "", nil).Code)
}

func TestAuthLifecycle(t *testing.T) {
	h := newHarness(t)
	token, userID := h.register("user@example.com", "User")

	rec := h.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "USER@example.com", "name": "Again", "password": "correct-horse"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = h.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "short@example.com", "name": "Short", "password": "abc"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "user@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = h.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"email": "user@example.com", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, decode[dto.UserProfile](t, rec).ID)

	require.Equal(t, http.StatusNoContent, h.do(http.MethodPost, "/api/v1/auth/logout", token, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/v1/auth/me", token, nil).Code)
}

func TestUploadPhotos(t *testing.T) {
	h := newHarness(t)
	hostToken, _ := h.register("host@example.com", "Host")
	listingID := h.createListing(hostToken, 100)

	req := newPhotoRequest(t, "/api/v1/listings/"+listingID+"/photos", hostToken, "front.png", "image/png")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	listing := decode[dto.Listing](t, rec)
	assert.NotEmpty(t, listing.Image.URL)
	_, stored := h.uploader.Object(listing.Image.Filename)
	assert.True(t, stored)

	req = newPhotoRequest(t, "/api/v1/listings/"+listingID+"/photos", hostToken, "notes.txt", "text/plain")
	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}

func newPhotoRequest(t *testing.T, path, token, filename, contentType string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="photos"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("not really an image"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

type failingFactory struct{}

func (failingFactory) Begin(context.Context, uow.TxOptions) (uow.UnitOfWork, error) {
	return nil, errors.New("store unavailable")
}

func TestStorageFailureIsRetryable(t *testing.T) {
	backend := wiring.NewMemoryBackend(time.Hour)
	backend.UoW = failingFactory{}
	h := newHarnessWith(t, backend)
	guest, _ := h.register("guest@example.com", "Guest")

	rec := h.book(guest, "any", "2024-06-01", "2024-06-04")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	body := decode[errorBody](t, rec)
	assert.True(t, body.Retryable)
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/livez", "", nil).Code)
	assert.Equal(t, http.StatusOK, h.do(http.MethodGet, "/readyz", "", nil).Code)
}
