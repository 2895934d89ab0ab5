package dto

import (
	"time"

	domainbooking "stayscape/internal/domain/booking"
	domainlistings "stayscape/internal/domain/listings"
	domainuser "stayscape/internal/domain/user"
)

type Booking struct {
	ID         string    `json:"id"`
	ListingID  string    `json:"listing_id"`
	GuestID    string    `json:"guest_id"`
	CheckIn    time.Time `json:"check_in"`
	CheckOut   time.Time `json:"check_out"`
	Guests     int       `json:"guests"`
	Nights     int       `json:"nights"`
	TotalPrice int64     `json:"total_price"`
	Status     string    `json:"status"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// BookingListing is the listing snapshot shown next to a booking.
type BookingListing struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	Location string       `json:"location"`
	Country  string       `json:"country"`
	Price    int64        `json:"price"`
	ImageURL string       `json:"image_url,omitempty"`
	Owner    *UserSummary `json:"owner,omitempty"`
}

type GuestBooking struct {
	Booking
	Listing BookingListing `json:"listing"`
}

type HostBooking struct {
	Booking
	Listing BookingListing `json:"listing"`
	Guest   UserSummary    `json:"guest"`
}

type GuestBookingCollection struct {
	Items []GuestBooking `json:"items"`
}

type HostBookingCollection struct {
	Items []HostBooking `json:"items"`
}

// BookedRange exposes occupied dates without the guest.
type BookedRange struct {
	CheckIn  time.Time `json:"check_in"`
	CheckOut time.Time `json:"check_out"`
}

type CompletionResult struct {
	Completed int `json:"completed"`
}

func MapBooking(b *domainbooking.Booking) Booking {
	if b == nil {
		return Booking{}
	}
	return Booking{
		ID:         string(b.ID),
		ListingID:  string(b.ListingID),
		GuestID:    b.GuestID,
		CheckIn:    b.Range.CheckIn,
		CheckOut:   b.Range.CheckOut,
		Guests:     b.Guests,
		Nights:     b.Range.Nights(),
		TotalPrice: b.TotalPrice,
		Status:     string(b.Status),
		Version:    b.Version,
		CreatedAt:  b.CreatedAt,
		UpdatedAt:  b.UpdatedAt,
	}
}

func MapBookingListing(listingID domainlistings.ListingID, listing *domainlistings.Listing, owner *domainuser.User) BookingListing {
	out := BookingListing{ID: string(listingID)}
	if listing != nil {
		out.Title = listing.Title
		out.Location = listing.Location
		out.Country = listing.Country
		out.Price = listing.Price
		out.ImageURL = listing.Image.URL
	}
	if owner != nil {
		summary := MapUserSummary(owner)
		out.Owner = &summary
	}
	return out
}
