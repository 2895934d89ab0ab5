package listings

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"stayscape/internal/app/commands"
	"stayscape/internal/app/dto"
	"stayscape/internal/app/uow"
	domainlistings "stayscape/internal/domain/listings"
	domainuser "stayscape/internal/domain/user"
	"stayscape/internal/infra/storage/s3"
)

const UploadListingPhotosKey = "listings.photos.upload"

var (
	ErrNoPhotos        = errors.New("listings: at least one photo is required")
	ErrUnsupportedType = errors.New("listings: unsupported photo type")
)

type PhotoFile struct {
	Filename    string
	ContentType string
	Reader      io.Reader
}

type UploadListingPhotosCommand struct {
	ListingID string `validate:"required"`
	ActorIDV  string `validate:"required"`
	Files     []PhotoFile
}

func (c UploadListingPhotosCommand) Key() string      { return UploadListingPhotosKey }
func (c UploadListingPhotosCommand) ActorID() string  { return c.ActorIDV }
func (c UploadListingPhotosCommand) SelfScoped() bool { return true }

// UploadListingPhotosHandler never holds a unit of work during uploads. It
// checks ownership in a read-only unit, uploads, then attaches the images in a
// short write unit. Objects are removed again when attaching fails.
type UploadListingPhotosHandler struct {
	UoWFactory uow.UoWFactory
	Uploader   s3.Uploader
	TxTimeout  time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// Handle stores each file in the bucket and attaches it to the listing. The
// first photo becomes primary when the listing has none.
func (h *UploadListingPhotosHandler) Handle(ctx context.Context, cmd UploadListingPhotosCommand) (dto.Listing, error) {
	if h.Uploader == nil {
		return dto.Listing{}, errors.New("listings: photo uploader unavailable")
	}
	if len(cmd.Files) == 0 {
		return dto.Listing{}, ErrNoPhotos
	}
	for _, file := range cmd.Files {
		if !isImage(file.ContentType) {
			return dto.Listing{}, fmt.Errorf("%w: %s", ErrUnsupportedType, file.ContentType)
		}
	}
	listingID := domainlistings.ListingID(cmd.ListingID)
	actor := domainlistings.HostID(cmd.ActorIDV)
	if err := h.checkOwner(ctx, listingID, actor); err != nil {
		return dto.Listing{}, err
	}

	images := make([]domainlistings.Image, 0, len(cmd.Files))
	for _, file := range cmd.Files {
		key := objectKey(listingID, file.Filename)
		url, err := h.Uploader.Upload(ctx, key, file.Reader, file.ContentType)
		if err != nil {
			h.removeObjects(ctx, images)
			return dto.Listing{}, fmt.Errorf("upload photo: %w", err)
		}
		images = append(images, domainlistings.Image{URL: url, Filename: key})
	}

	res, err := h.attach(ctx, listingID, actor, images)
	if err != nil {
		h.removeObjects(ctx, images)
		return dto.Listing{}, err
	}
	logger(h.Logger).Info("listing photos uploaded", "listing_id", listingID, "count", len(images))
	return res, nil
}

func (h *UploadListingPhotosHandler) checkOwner(ctx context.Context, id domainlistings.ListingID, actor domainlistings.HostID) error {
	unit, execCtx, release, err := uow.BeginReadOnly(ctx, h.UoWFactory)
	if err != nil {
		return err
	}
	defer release()
	listing, err := unit.Listings().ByID(execCtx, id)
	if err != nil {
		return err
	}
	return listing.EnsureOwner(actor)
}

// attach reloads the listing, since it may have changed during the uploads.
func (h *UploadListingPhotosHandler) attach(ctx context.Context, id domainlistings.ListingID, actor domainlistings.HostID, images []domainlistings.Image) (dto.Listing, error) {
	if h.UoWFactory == nil {
		return dto.Listing{}, uow.ErrUnitOfWorkMissing
	}
	if h.TxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.TxTimeout)
		defer cancel()
	}
	unit, err := h.UoWFactory.Begin(ctx, uow.TxOptions{Timeout: h.TxTimeout})
	if err != nil {
		return dto.Listing{}, fmt.Errorf("%w: begin %s: %w", uow.ErrTxFailed, UploadListingPhotosKey, err)
	}
	execCtx := uow.Bind(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(context.WithoutCancel(execCtx))
		}
	}()

	listing, err := unit.Listings().ByID(execCtx, id)
	if err != nil {
		return dto.Listing{}, err
	}
	if err := listing.EnsureOwner(actor); err != nil {
		return dto.Listing{}, err
	}
	listing.AddImages(images)
	listing.UpdatedAt = clock(h.Now).UTC()
	if err := unit.Listings().Save(execCtx, listing); err != nil {
		return dto.Listing{}, err
	}
	owner, err := unit.Users().ByID(execCtx, domainuser.ID(listing.Owner))
	if err != nil {
		owner = nil
	}
	if err := unit.Commit(execCtx); err != nil {
		return dto.Listing{}, fmt.Errorf("%w: commit %s: %w", uow.ErrTxFailed, UploadListingPhotosKey, err)
	}
	committed = true
	return dto.MapListing(listing, owner), nil
}

func (h *UploadListingPhotosHandler) removeObjects(ctx context.Context, images []domainlistings.Image) {
	ctx = context.WithoutCancel(ctx)
	for _, img := range images {
		if err := h.Uploader.Remove(ctx, img.Filename); err != nil {
			logger(h.Logger).Warn("orphaned photo not removed", "key", img.Filename, "error", err)
		}
	}
}

func objectKey(id domainlistings.ListingID, filename string) string {
	ext := strings.ToLower(path.Ext(strings.TrimSpace(filename)))
	return fmt.Sprintf("listings/%s/%s%s", id, uuid.NewString(), ext)
}

func isImage(contentType string) bool {
	switch strings.ToLower(strings.TrimSpace(contentType)) {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "image/avif":
		return true
	default:
		return false
	}
}

var _ commands.Handler[UploadListingPhotosCommand, dto.Listing] = (*UploadListingPhotosHandler)(nil)
