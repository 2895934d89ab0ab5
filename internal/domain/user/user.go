package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayscape/internal/domain/listings"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrInvalidRole         = errors.New("user: invalid role")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

type Role string

const (
	RoleGuest Role = "guest"
	RoleHost  Role = "host"
)

type WishlistAction string

const (
	WishlistAdded   WishlistAction = "added"
	WishlistRemoved WishlistAction = "removed"
)

type User struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Roles        []Role
	Wishlist     []listings.ListingID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByIDs(ctx context.Context, ids []ID) ([]*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Email        string
	Name         string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := NormalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	roles, err := normalizeRoles(params.Roles)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		roles = []Role{RoleGuest}
	}
	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &User{
		ID:           ID(id),
		Email:        email,
		Name:         name,
		PasswordHash: params.PasswordHash,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// EnsureRole adds role if missing. It reports whether the user changed.
func (u *User) EnsureRole(role Role, now time.Time) (bool, error) {
	role = normalizeRole(role)
	if role != RoleGuest && role != RoleHost {
		return false, ErrInvalidRole
	}
	if u.HasRole(role) {
		return false, nil
	}
	u.Roles = append(u.Roles, role)
	u.touch(now)
	return true, nil
}

func (u *User) HasRole(role Role) bool {
	role = normalizeRole(role)
	for _, current := range u.Roles {
		if current == role {
			return true
		}
	}
	return false
}

// ToggleWishlist adds the listing when absent and removes it otherwise.
func (u *User) ToggleWishlist(id listings.ListingID, now time.Time) WishlistAction {
	for i, existing := range u.Wishlist {
		if existing == id {
			u.Wishlist = append(u.Wishlist[:i], u.Wishlist[i+1:]...)
			u.touch(now)
			return WishlistRemoved
		}
	}
	u.Wishlist = append(u.Wishlist, id)
	u.touch(now)
	return WishlistAdded
}

// RemoveFromWishlist drops id silently.
func (u *User) RemoveFromWishlist(id listings.ListingID, now time.Time) bool {
	for i, existing := range u.Wishlist {
		if existing == id {
			u.Wishlist = append(u.Wishlist[:i], u.Wishlist[i+1:]...)
			u.touch(now)
			return true
		}
	}
	return false
}

func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.Roles = append([]Role(nil), u.Roles...)
	out.Wishlist = append([]listings.ListingID(nil), u.Wishlist...)
	return &out
}

func (u *User) touch(now time.Time) {
	if now.IsZero() {
		now = time.Now()
	}
	u.UpdatedAt = now.UTC()
}

func normalizeRoles(roles []Role) ([]Role, error) {
	seen := make(map[Role]struct{}, len(roles))
	out := make([]Role, 0, len(roles))
	for _, role := range roles {
		role = normalizeRole(role)
		if role != RoleGuest && role != RoleHost {
			return nil, ErrInvalidRole
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out, nil
}

func normalizeRole(role Role) Role {
	return Role(strings.ToLower(strings.TrimSpace(string(role))))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
