package dto

import (
	"time"

	domainlistings "stayscape/internal/domain/listings"
	domainreviews "stayscape/internal/domain/reviews"
	domainuser "stayscape/internal/domain/user"
)

type Image struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

type Listing struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Price       int64       `json:"price"`
	Location    string      `json:"location"`
	Country     string      `json:"country"`
	Geometry    Geometry    `json:"geometry"`
	Category    string      `json:"category"`
	Amenities   []string    `json:"amenities"`
	Image       Image       `json:"image"`
	Images      []Image     `json:"images"`
	Owner       UserSummary `json:"owner"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// ListingDetail is a listing with its reviews resolved and rating summary.
type ListingDetail struct {
	Listing
	Reviews       []Review `json:"reviews"`
	AverageRating float64  `json:"average_rating"`
	ReviewCount   int      `json:"review_count"`
}

type ListingCatalog struct {
	Items  []Listing `json:"items"`
	Total  int       `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}

// FeatureCollection is the GeoJSON map feed.
type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}

type Feature struct {
	Type       string            `json:"type"`
	Geometry   Geometry          `json:"geometry"`
	Properties FeatureProperties `json:"properties"`
}

type FeatureProperties struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Price    int64  `json:"price"`
	Location string `json:"location"`
	Country  string `json:"country"`
	Category string `json:"category"`
	ImageURL string `json:"image_url,omitempty"`
}

func MapImage(img domainlistings.Image) Image {
	return Image{URL: img.URL, Filename: img.Filename}
}

func MapGeometry(p domainlistings.Point) Geometry {
	return Geometry{Type: "Point", Coordinates: p.Coordinates()}
}

func MapListing(listing *domainlistings.Listing, owner *domainuser.User) Listing {
	if listing == nil {
		return Listing{}
	}
	amenities := make([]string, 0, len(listing.Amenities))
	for _, a := range listing.Amenities {
		amenities = append(amenities, string(a))
	}
	images := make([]Image, 0, len(listing.Images))
	for _, img := range listing.Images {
		images = append(images, MapImage(img))
	}
	ownerSummary := UserSummary{ID: string(listing.Owner)}
	if owner != nil {
		ownerSummary = MapUserSummary(owner)
	}
	return Listing{
		ID:          string(listing.ID),
		Title:       listing.Title,
		Description: listing.Description,
		Price:       listing.Price,
		Location:    listing.Location,
		Country:     listing.Country,
		Geometry:    MapGeometry(listing.Geometry),
		Category:    string(listing.Category),
		Amenities:   amenities,
		Image:       MapImage(listing.Image),
		Images:      images,
		Owner:       ownerSummary,
		CreatedAt:   listing.CreatedAt,
		UpdatedAt:   listing.UpdatedAt,
	}
}

// MapListingDetail keeps the reviews in the order given.
func MapListingDetail(listing *domainlistings.Listing, owner *domainuser.User, reviews []*domainreviews.Review, authors map[string]*domainuser.User) ListingDetail {
	detail := ListingDetail{Listing: MapListing(listing, owner), Reviews: make([]Review, 0, len(reviews))}
	total := 0
	for _, r := range reviews {
		detail.Reviews = append(detail.Reviews, MapReview(r, authors[r.AuthorID]))
		total += r.Rating
	}
	detail.ReviewCount = len(reviews)
	if len(reviews) > 0 {
		detail.AverageRating = float64(total) / float64(len(reviews))
	}
	return detail
}

func MapFeatureCollection(items []*domainlistings.Listing) FeatureCollection {
	fc := FeatureCollection{Type: "FeatureCollection", Features: make([]Feature, 0, len(items))}
	for _, l := range items {
		fc.Features = append(fc.Features, Feature{
			Type:     "Feature",
			Geometry: MapGeometry(l.Geometry),
			Properties: FeatureProperties{
				ID:       string(l.ID),
				Title:    l.Title,
				Price:    l.Price,
				Location: l.Location,
				Country:  l.Country,
				Category: string(l.Category),
				ImageURL: l.Image.URL,
			},
		})
	}
	return fc
}
