package ginserver

import (
	"log/slog"
	"net/http"
	"time"

	gin "github.com/gin-gonic/gin"

	"stayscape/internal/app/commands"
	"stayscape/internal/app/dto"
	bookingapp "stayscape/internal/app/handlers/booking"
	"stayscape/internal/app/queries"
)

const idempotencyHeader = "Idempotency-Key"

type BookingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Location *time.Location
	Logger   *slog.Logger
}

type createBookingRequest struct {
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Guests   int    `json:"guests"`
}

func (h BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	checkIn, err := parseDate("check_in", req.CheckIn, h.Location)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	checkOut, err := parseDate("check_out", req.CheckOut, h.Location)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := bookingapp.CreateBookingCommand{
		ListingID:      c.Param("id"),
		GuestID:        actorID(c),
		CheckIn:        checkIn,
		CheckOut:       checkOut,
		Guests:         req.Guests,
		IdempotencyRaw: c.GetHeader(idempotencyHeader),
	}
	result, err := commands.Dispatch[bookingapp.CreateBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h BookingHandler) ListGuest(c *gin.Context) {
	q := bookingapp.ListGuestBookingsQuery{GuestID: actorID(c)}
	result, err := queries.Ask[bookingapp.ListGuestBookingsQuery, dto.GuestBookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) ListHosting(c *gin.Context) {
	q := bookingapp.ListHostBookingsQuery{HostID: actorID(c)}
	result, err := queries.Ask[bookingapp.ListHostBookingsQuery, dto.HostBookingCollection](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h BookingHandler) Cancel(c *gin.Context) {
	cmd := bookingapp.CancelBookingCommand{BookingID: c.Param("id"), RequesterID: actorID(c)}
	result, err := commands.Dispatch[bookingapp.CancelBookingCommand, dto.Booking](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// BookedDates is public and never exposes who booked.
func (h BookingHandler) BookedDates(c *gin.Context) {
	q := bookingapp.BookedDatesQuery{ListingID: c.Param("id")}
	result, err := queries.Ask[bookingapp.BookedDatesQuery, []dto.BookedRange](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	if result == nil {
		result = []dto.BookedRange{}
	}
	c.JSON(http.StatusOK, result)
}

var _ BookingHTTP = BookingHandler{}
