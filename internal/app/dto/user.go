package dto

import (
	"time"

	domainuser "stayscape/internal/domain/user"
)

type UserProfile struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Roles     []string  `json:"roles"`
	Wishlist  []string  `json:"wishlist"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserSummary is the public identity shown on listings, reviews and bookings.
type UserSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type AuthResponse struct {
	User      UserProfile `json:"user"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
}

type WishlistToggle struct {
	Action    string `json:"action"`
	ListingID string `json:"listing_id"`
}

func MapUserProfile(user *domainuser.User) UserProfile {
	if user == nil {
		return UserProfile{}
	}
	roles := make([]string, 0, len(user.Roles))
	for _, role := range user.Roles {
		roles = append(roles, string(role))
	}
	wishlist := make([]string, 0, len(user.Wishlist))
	for _, id := range user.Wishlist {
		wishlist = append(wishlist, string(id))
	}
	return UserProfile{
		ID:        string(user.ID),
		Email:     user.Email,
		Name:      user.Name,
		Roles:     roles,
		Wishlist:  wishlist,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func MapUserSummary(user *domainuser.User) UserSummary {
	if user == nil {
		return UserSummary{}
	}
	return UserSummary{ID: string(user.ID), Name: user.Name, Email: user.Email}
}

// PublicProfile is what anyone can see of a user. Bookings are only filled
// in when the viewer is the profile owner.
type PublicProfile struct {
	User         UserSummary     `json:"user"`
	Listings     []Listing       `json:"listings"`
	Reviews      []ProfileReview `json:"reviews"`
	Bookings     []GuestBooking  `json:"bookings,omitempty"`
	IsOwnProfile bool            `json:"is_own_profile"`
}

type ProfileReview struct {
	Review
	Listing BookingListing `json:"listing"`
}
