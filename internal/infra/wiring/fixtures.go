package wiring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"stayscape/internal/app/uow"
	"stayscape/internal/domain/listings"
)

type listingFixture struct {
	ID          string         `json:"id"`
	Owner       string         `json:"owner"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Price       int64          `json:"price"`
	Location    string         `json:"location"`
	Country     string         `json:"country"`
	Longitude   float64        `json:"longitude"`
	Latitude    float64        `json:"latitude"`
	Category    string         `json:"category"`
	Amenities   []string       `json:"amenities"`
	Images      []fixtureImage `json:"images"`
	CreatedAt   string         `json:"created_at"`
}

type fixtureImage struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// LoadListingFixtures seeds listings from a JSON array. Listings that already
// exist are left alone; invalid entries are logged and skipped.
func LoadListingFixtures(ctx context.Context, factory uow.UoWFactory, path string, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return 0, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", path)
			return 0, nil
		}
		return 0, fmt.Errorf("read fixtures: %w", err)
	}
	if len(data) == 0 {
		logger.Warn("listing fixtures file empty", "path", path)
		return 0, nil
	}
	var fixtures []listingFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return 0, fmt.Errorf("decode fixtures: %w", err)
	}
	if len(fixtures) == 0 {
		return 0, nil
	}

	unit, err := factory.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return 0, err
	}
	execCtx := uow.Bind(ctx, unit)
	now := time.Now()
	imported := 0
	for _, fx := range fixtures {
		if _, err := unit.Listings().ByID(execCtx, listings.ListingID(fx.ID)); err == nil {
			continue
		} else if !errors.Is(err, listings.ErrNotFound) {
			_ = unit.Rollback(context.WithoutCancel(execCtx))
			return 0, err
		}
		images := make([]listings.Image, 0, len(fx.Images))
		for _, img := range fx.Images {
			images = append(images, listings.Image{URL: img.URL, Filename: img.Filename})
		}
		listing, err := listings.NewListing(listings.CreateListingParams{
			ID:          listings.ListingID(fx.ID),
			Owner:       listings.HostID(fx.Owner),
			Title:       fx.Title,
			Description: fx.Description,
			Price:       fx.Price,
			Location:    fx.Location,
			Country:     fx.Country,
			Geometry:    listings.Point{Longitude: fx.Longitude, Latitude: fx.Latitude},
			Category:    fx.Category,
			Amenities:   fx.Amenities,
			Images:      images,
			Now:         parseFixtureTime(fx.CreatedAt, now),
		})
		if err != nil {
			logger.Error("fixture invalid", "listing_id", fx.ID, "error", err)
			continue
		}
		listing.Drain()
		if err := unit.Listings().Save(execCtx, listing); err != nil {
			_ = unit.Rollback(context.WithoutCancel(execCtx))
			return 0, fmt.Errorf("store fixture %s: %w", fx.ID, err)
		}
		imported++
	}
	if err := unit.Commit(execCtx); err != nil {
		return 0, fmt.Errorf("commit fixtures: %w", err)
	}
	logger.Info("listing fixtures imported", "count", imported, "path", path)
	return imported, nil
}

func parseFixtureTime(value string, fallback time.Time) time.Time {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	return fallback
}
