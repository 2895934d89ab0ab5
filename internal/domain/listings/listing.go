package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"stayscape/internal/domain/shared/events"
)

var (
	ErrNotFound        = errors.New("listings: not found")
	ErrNotOwner        = errors.New("listings: only the owner may modify a listing")
	ErrTitleRequired   = errors.New("listings: title is required")
	ErrInvalidPrice    = errors.New("listings: price must be non-negative")
	ErrInvalidCategory = errors.New("listings: unknown category")
	ErrInvalidAmenity  = errors.New("listings: unknown amenity")
	ErrInvalidPoint    = errors.New("listings: coordinates out of range")
)

type ListingID string
type HostID string
type ReviewRef string

// Image is an uploaded photo. Filename is the object key in the bucket.
type Image struct {
	URL      string
	Filename string
}

func (i Image) Empty() bool {
	return strings.TrimSpace(i.URL) == ""
}

// Point is a GeoJSON point, longitude first.
type Point struct {
	Longitude float64
	Latitude  float64
}

func (p Point) Valid() bool {
	return p.Longitude >= -180 && p.Longitude <= 180 && p.Latitude >= -90 && p.Latitude <= 90
}

func (p Point) Coordinates() []float64 {
	return []float64{p.Longitude, p.Latitude}
}

type Listing struct {
	ID          ListingID
	Owner       HostID
	Title       string
	Description string
	Price       int64
	Location    string
	Country     string
	Geometry    Point
	Category    Category
	Amenities   []Amenity
	Image       Image
	Images      []Image
	Reviews     []ReviewRef
	CreatedAt   time.Time
	UpdatedAt   time.Time
	events.Recorder
}

type ListingRepository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	ByIDs(ctx context.Context, ids []ListingID) ([]*Listing, error)
	ListByOwner(ctx context.Context, owner HostID) ([]*Listing, error)
	Search(ctx context.Context, params SearchParams) (SearchResult, error)
	Save(ctx context.Context, listing *Listing) error
	Delete(ctx context.Context, id ListingID) error
}

type CreateListingParams struct {
	ID          ListingID
	Owner       HostID
	Title       string
	Description string
	Price       int64
	Location    string
	Country     string
	Geometry    Point
	Category    string
	Amenities   []string
	Images      []Image
	Now         time.Time
}

// NewListing validates params. The first image becomes the primary image.
func NewListing(params CreateListingParams) (*Listing, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, errors.New("listings: id is required")
	}
	if strings.TrimSpace(string(params.Owner)) == "" {
		return nil, errors.New("listings: owner is required")
	}
	attrs, err := validateAttributes(params.Title, params.Price, params.Category, params.Amenities, params.Geometry)
	if err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	listing := &Listing{
		ID:          params.ID,
		Owner:       params.Owner,
		Title:       attrs.title,
		Description: strings.TrimSpace(params.Description),
		Price:       params.Price,
		Location:    strings.TrimSpace(params.Location),
		Country:     strings.TrimSpace(params.Country),
		Geometry:    params.Geometry,
		Category:    attrs.category,
		Amenities:   attrs.amenities,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	listing.AddImages(params.Images)
	listing.Record(ListingCreatedEvent{ListingID: listing.ID, Owner: listing.Owner, At: now})
	return listing, nil
}

type UpdateListingParams struct {
	Title       string
	Description string
	Price       int64
	Location    string
	Country     string
	Geometry    Point
	Category    string
	Amenities   []string
	Now         time.Time
}

// Update replaces editable attributes. Owner, images and reviews are untouched.
func (l *Listing) Update(actor HostID, params UpdateListingParams) error {
	if err := l.EnsureOwner(actor); err != nil {
		return err
	}
	attrs, err := validateAttributes(params.Title, params.Price, params.Category, params.Amenities, params.Geometry)
	if err != nil {
		return err
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	l.Title = attrs.title
	l.Description = strings.TrimSpace(params.Description)
	l.Price = params.Price
	l.Location = strings.TrimSpace(params.Location)
	l.Country = strings.TrimSpace(params.Country)
	l.Geometry = params.Geometry
	l.Category = attrs.category
	l.Amenities = attrs.amenities
	l.UpdatedAt = now.UTC()
	l.Record(ListingUpdatedEvent{ListingID: l.ID, At: l.UpdatedAt})
	return nil
}

func (l *Listing) EnsureOwner(actor HostID) error {
	if actor == "" || l.Owner != actor {
		return ErrNotOwner
	}
	return nil
}

// AddImages fills the primary slot first when it is empty and appends the rest.
func (l *Listing) AddImages(images []Image) {
	for _, img := range images {
		if img.Empty() {
			continue
		}
		if l.Image.Empty() {
			l.Image = img
			continue
		}
		l.Images = append(l.Images, img)
	}
}

// AllImages returns the primary image followed by the additional images.
func (l *Listing) AllImages() []Image {
	all := make([]Image, 0, len(l.Images)+1)
	if !l.Image.Empty() {
		all = append(all, l.Image)
	}
	return append(all, l.Images...)
}

func (l *Listing) AttachReview(ref ReviewRef) {
	for _, existing := range l.Reviews {
		if existing == ref {
			return
		}
	}
	l.Reviews = append(l.Reviews, ref)
}

func (l *Listing) DetachReview(ref ReviewRef) bool {
	for i, existing := range l.Reviews {
		if existing == ref {
			l.Reviews = append(l.Reviews[:i], l.Reviews[i+1:]...)
			return true
		}
	}
	return false
}

// MarkDeleted records the deletion fact; the repository removes the row.
func (l *Listing) MarkDeleted(actor HostID, removedReviews int, now time.Time) error {
	if err := l.EnsureOwner(actor); err != nil {
		return err
	}
	l.Record(ListingDeletedEvent{ListingID: l.ID, Owner: l.Owner, RemovedReviews: removedReviews, At: now.UTC()})
	return nil
}

// Clone returns a deep copy without pending events.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	out := *l
	out.Recorder = events.Recorder{}
	out.Amenities = append([]Amenity(nil), l.Amenities...)
	out.Images = append([]Image(nil), l.Images...)
	out.Reviews = append([]ReviewRef(nil), l.Reviews...)
	return &out
}

type validatedAttributes struct {
	title     string
	category  Category
	amenities []Amenity
}

func validateAttributes(title string, price int64, category string, amenities []string, point Point) (validatedAttributes, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return validatedAttributes{}, ErrTitleRequired
	}
	if price < 0 {
		return validatedAttributes{}, ErrInvalidPrice
	}
	if !point.Valid() {
		return validatedAttributes{}, ErrInvalidPoint
	}
	cat, err := ParseCategory(category)
	if err != nil {
		return validatedAttributes{}, err
	}
	parsed, err := ParseAmenities(amenities)
	if err != nil {
		return validatedAttributes{}, err
	}
	return validatedAttributes{title: title, category: cat, amenities: parsed}, nil
}
