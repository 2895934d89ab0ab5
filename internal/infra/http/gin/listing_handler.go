package ginserver

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"stayscape/internal/app/commands"
	"stayscape/internal/app/dto"
	listingapp "stayscape/internal/app/handlers/listings"
	"stayscape/internal/app/queries"
)

const (
	photosField      = "photos"
	maxPhotoMemory   = 32 << 20
	maxPhotosPerCall = 10
)

// ListingHandler wires listing commands and queries to HTTP.
type ListingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Logger   *slog.Logger
}

type listingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Price       int64    `json:"price"`
	Location    string   `json:"location"`
	Country     string   `json:"country"`
	Longitude   float64  `json:"longitude"`
	Latitude    float64  `json:"latitude"`
	Category    string   `json:"category"`
	Amenities   []string `json:"amenities"`
}

func (r listingRequest) payload() listingapp.ListingPayload {
	return listingapp.ListingPayload{
		Title:       r.Title,
		Description: r.Description,
		Price:       r.Price,
		Location:    r.Location,
		Country:     r.Country,
		Longitude:   r.Longitude,
		Latitude:    r.Latitude,
		Category:    r.Category,
		Amenities:   r.Amenities,
	}
}

func searchQuery(c *gin.Context) (listingapp.SearchListingsQuery, error) {
	limit, err := queryInt(c, "limit")
	if err != nil {
		return listingapp.SearchListingsQuery{}, err
	}
	offset, err := queryInt(c, "offset")
	if err != nil {
		return listingapp.SearchListingsQuery{}, err
	}
	minPrice, err := queryInt64Ptr(c, "minPrice")
	if err != nil {
		return listingapp.SearchListingsQuery{}, err
	}
	maxPrice, err := queryInt64Ptr(c, "maxPrice")
	if err != nil {
		return listingapp.SearchListingsQuery{}, err
	}
	return listingapp.SearchListingsQuery{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Location: c.Query("location"),
		Limit:    limit,
		Offset:   offset,
	}, nil
}

// Search responds with a filtered page of listings.
func (h ListingHandler) Search(c *gin.Context) {
	q, err := searchQuery(c)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	result, err := queries.Ask[listingapp.SearchListingsQuery, dto.ListingCatalog](c.Request.Context(), h.Queries, q)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Map responds with every matching listing as GeoJSON.
func (h ListingHandler) Map(c *gin.Context) {
	q, err := searchQuery(c)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	result, err := queries.Ask[listingapp.ListingsMapQuery, dto.FeatureCollection](c.Request.Context(), h.Queries, listingapp.ListingsMapQuery{SearchListingsQuery: q})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Get(c *gin.Context) {
	result, err := queries.Ask[listingapp.GetListingQuery, dto.ListingDetail](c.Request.Context(), h.Queries, listingapp.GetListingQuery{ID: c.Param("id")})
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h ListingHandler) Create(c *gin.Context) {
	var req listingRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := listingapp.CreateListingCommand{OwnerID: actorID(c), Payload: req.payload()}
	result, err := commands.Dispatch[listingapp.CreateListingCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h ListingHandler) Update(c *gin.Context) {
	var req listingRequest
	if err := bindJSON(c, &req); err != nil {
		respondError(c, h.Logger, err)
		return
	}
	cmd := listingapp.UpdateListingCommand{ListingID: c.Param("id"), ActorIDV: actorID(c), Payload: req.payload()}
	result, err := commands.Dispatch[listingapp.UpdateListingCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Delete removes the listing together with its reviews.
func (h ListingHandler) Delete(c *gin.Context) {
	cmd := listingapp.DeleteListingCommand{ListingID: c.Param("id"), ActorIDV: actorID(c)}
	result, err := commands.Dispatch[listingapp.DeleteListingCommand, listingapp.DeleteListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// UploadPhotos reads multipart files from the "photos" field.
func (h ListingHandler) UploadPhotos(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			respondError(c, h.Logger, fmt.Errorf("%w: multipart form expected", errBadRequest))
			return
		}
		respondError(c, h.Logger, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	headers := form.File[photosField]
	if len(headers) > maxPhotosPerCall {
		respondError(c, h.Logger, fmt.Errorf("%w: at most %d photos per upload", errBadRequest, maxPhotosPerCall))
		return
	}
	files := make([]listingapp.PhotoFile, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			respondError(c, h.Logger, fmt.Errorf("%w: open %s: %v", errBadRequest, fh.Filename, err))
			return
		}
		defer closeQuietly(f)
		files = append(files, listingapp.PhotoFile{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Reader:      f,
		})
	}
	cmd := listingapp.UploadListingPhotosCommand{ListingID: c.Param("id"), ActorIDV: actorID(c), Files: files}
	result, err := commands.Dispatch[listingapp.UploadListingPhotosCommand, dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func closeQuietly(f multipart.File) {
	_ = f.Close()
}

var _ ListingHTTP = ListingHandler{}
