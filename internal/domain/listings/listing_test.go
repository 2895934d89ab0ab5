package listings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseParams() CreateListingParams {
	return CreateListingParams{
		ID:        "l1",
		Owner:     "host",
		Title:     "  Lake cabin ",
		Price:     120,
		Location:  "Bled",
		Country:   "Slovenia",
		Geometry:  Point{Longitude: 14.1, Latitude: 46.4},
		Amenities: []string{"wifi", "WiFi", "hot tub"},
		Images:    []Image{{URL: "https://img/1.jpg", Filename: "1.jpg"}, {URL: "https://img/2.jpg", Filename: "2.jpg"}},
		Now:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestNewListingDefaults(t *testing.T) {
	l, err := NewListing(baseParams())
	require.NoError(t, err)
	assert.Equal(t, "Lake cabin", l.Title)
	assert.Equal(t, CategoryTrending, l.Category)
	assert.Equal(t, []Amenity{AmenityWiFi, AmenityHotTub}, l.Amenities)
	assert.Equal(t, "1.jpg", l.Image.Filename)
	require.Len(t, l.Images, 1)
	assert.Equal(t, "2.jpg", l.Images[0].Filename)
}

func TestNewListingRejectsInvalidValues(t *testing.T) {
	p := baseParams()
	p.Price = -1
	_, err := NewListing(p)
	assert.ErrorIs(t, err, ErrInvalidPrice)

	p = baseParams()
	p.Category = "Volcanoes"
	_, err = NewListing(p)
	assert.ErrorIs(t, err, ErrInvalidCategory)

	p = baseParams()
	p.Amenities = []string{"Helipad"}
	_, err = NewListing(p)
	assert.ErrorIs(t, err, ErrInvalidAmenity)

	p = baseParams()
	p.Title = " "
	_, err = NewListing(p)
	assert.ErrorIs(t, err, ErrTitleRequired)
}

func TestAllImagesPrependsPrimary(t *testing.T) {
	l, err := NewListing(baseParams())
	require.NoError(t, err)
	l.AddImages([]Image{{URL: "https://img/3.jpg", Filename: "3.jpg"}})

	names := []string{}
	for _, img := range l.AllImages() {
		names = append(names, img.Filename)
	}
	assert.Equal(t, []string{"1.jpg", "2.jpg", "3.jpg"}, names)
}

func TestUpdateKeepsOwnerAndChecksIt(t *testing.T) {
	l, err := NewListing(baseParams())
	require.NoError(t, err)

	err = l.Update("intruder", UpdateListingParams{Title: "Mine now", Price: 1})
	assert.ErrorIs(t, err, ErrNotOwner)

	require.NoError(t, l.Update("host", UpdateListingParams{Title: "Renamed", Price: 150, Category: "mountains"}))
	assert.Equal(t, HostID("host"), l.Owner)
	assert.Equal(t, int64(150), l.Price)
	assert.Equal(t, CategoryMountains, l.Category)
}

func TestSearchMatchesLocationOnlyWithoutQuery(t *testing.T) {
	l, err := NewListing(baseParams())
	require.NoError(t, err)

	assert.True(t, SearchParams{Location: "slovenia"}.Normalized().Matches(l))
	assert.False(t, SearchParams{Location: "italy"}.Normalized().Matches(l))
	// location is ignored once q is set
	assert.True(t, SearchParams{Query: "cabin", Location: "italy"}.Normalized().Matches(l))

	lo, hi := int64(120), int64(120)
	assert.True(t, SearchParams{MinPrice: &lo, MaxPrice: &hi}.Normalized().Matches(l))
	hi = 119
	assert.False(t, SearchParams{MaxPrice: &hi}.Normalized().Matches(l))
	assert.False(t, SearchParams{Category: CategoryBoats}.Normalized().Matches(l))
}

func TestReviewRefs(t *testing.T) {
	l, err := NewListing(baseParams())
	require.NoError(t, err)
	l.AttachReview("r1")
	l.AttachReview("r1")
	l.AttachReview("r2")
	assert.Equal(t, []ReviewRef{"r1", "r2"}, l.Reviews)
	assert.True(t, l.DetachReview("r1"))
	assert.False(t, l.DetachReview("r1"))
	assert.Equal(t, []ReviewRef{"r2"}, l.Reviews)
}
