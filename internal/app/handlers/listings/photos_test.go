package listings

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stayscape/internal/app/uow"
	domainlistings "stayscape/internal/domain/listings"
	"stayscape/internal/infra/storage/memory"
	"stayscape/internal/infra/storage/s3"
)

func seedListing(t *testing.T, factory uow.UoWFactory) {
	t.Helper()
	ctx := context.Background()
	l, err := domainlistings.NewListing(domainlistings.CreateListingParams{
		ID:       "l1",
		Owner:    "host",
		Title:    "Cabin",
		Price:    100,
		Location: "Lakeside",
		Country:  "Norway",
		Now:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	l.Drain()
	unit, err := factory.Begin(ctx, uow.TxOptions{})
	require.NoError(t, err)
	require.NoError(t, unit.Listings().Save(ctx, l))
	require.NoError(t, unit.Commit(ctx))
}

func photos(names ...string) []PhotoFile {
	out := make([]PhotoFile, 0, len(names))
	for _, name := range names {
		out = append(out, PhotoFile{Filename: name, ContentType: "image/png", Reader: strings.NewReader(name)})
	}
	return out
}

// gatedUploader signals each upload and can fail the nth one.
type gatedUploader struct {
	*s3.MemoryUploader
	uploaded chan string
	failAt   int
	calls    int
}

func (g *gatedUploader) Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error) {
	g.calls++
	if g.failAt > 0 && g.calls == g.failAt {
		return "", errors.New("bucket unreachable")
	}
	url, err := g.MemoryUploader.Upload(ctx, key, r, contentType)
	if g.uploaded != nil {
		g.uploaded <- key
	}
	return url, err
}

type readOnlyFactory struct{ uow.UoWFactory }

func (f readOnlyFactory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if !opts.ReadOnly {
		return nil, errors.New("disk full")
	}
	return f.UoWFactory.Begin(ctx, opts)
}

func TestUploadPhotosRunsOutsideWriterSlot(t *testing.T) {
	factory := memory.Factory{Store: memory.NewStore()}
	seedListing(t, factory)
	uploader := &gatedUploader{MemoryUploader: &s3.MemoryUploader{BaseURL: "http://files"}, uploaded: make(chan string, 1)}
	h := &UploadListingPhotosHandler{UoWFactory: factory, Uploader: uploader}

	holder, err := factory.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := h.Handle(context.Background(), UploadListingPhotosCommand{ListingID: "l1", ActorIDV: "host", Files: photos("a.png")})
		done <- err
	}()

	select {
	case <-uploader.uploaded:
	case <-time.After(2 * time.Second):
		t.Fatal("upload waited for the writer slot")
	}
	require.NoError(t, holder.Rollback(context.Background()))
	require.NoError(t, <-done)

	reader, err := factory.Begin(context.Background(), uow.TxOptions{ReadOnly: true})
	require.NoError(t, err)
	l, err := reader.Listings().ByID(context.Background(), "l1")
	require.NoError(t, err)
	require.False(t, l.Image.Empty())
	_, stored := uploader.Object(l.Image.Filename)
	assert.True(t, stored)
}

func TestUploadPhotosRemovesObjectsWhenAttachFails(t *testing.T) {
	store := memory.NewStore()
	seedListing(t, memory.Factory{Store: store})
	uploader := &gatedUploader{MemoryUploader: &s3.MemoryUploader{BaseURL: "http://files"}, uploaded: make(chan string, 2)}
	h := &UploadListingPhotosHandler{UoWFactory: readOnlyFactory{memory.Factory{Store: store}}, Uploader: uploader}

	_, err := h.Handle(context.Background(), UploadListingPhotosCommand{ListingID: "l1", ActorIDV: "host", Files: photos("a.png", "b.png")})
	require.ErrorIs(t, err, uow.ErrTxFailed)

	close(uploader.uploaded)
	for key := range uploader.uploaded {
		_, stored := uploader.Object(key)
		assert.False(t, stored, key)
	}
}

func TestUploadPhotosRemovesEarlierObjectsWhenUploadFails(t *testing.T) {
	factory := memory.Factory{Store: memory.NewStore()}
	seedListing(t, factory)
	uploader := &gatedUploader{MemoryUploader: &s3.MemoryUploader{BaseURL: "http://files"}, uploaded: make(chan string, 2), failAt: 2}
	h := &UploadListingPhotosHandler{UoWFactory: factory, Uploader: uploader}

	_, err := h.Handle(context.Background(), UploadListingPhotosCommand{ListingID: "l1", ActorIDV: "host", Files: photos("a.png", "b.png")})
	require.Error(t, err)

	first := <-uploader.uploaded
	_, stored := uploader.Object(first)
	assert.False(t, stored)
}

func TestUploadPhotosChecksOwnerBeforeUploading(t *testing.T) {
	factory := memory.Factory{Store: memory.NewStore()}
	seedListing(t, factory)
	uploader := &gatedUploader{MemoryUploader: &s3.MemoryUploader{BaseURL: "http://files"}}
	h := &UploadListingPhotosHandler{UoWFactory: factory, Uploader: uploader}

	_, err := h.Handle(context.Background(), UploadListingPhotosCommand{ListingID: "l1", ActorIDV: "intruder", Files: photos("a.png")})
	assert.ErrorIs(t, err, domainlistings.ErrNotOwner)
	assert.Zero(t, uploader.calls)
}
