package firebase

import (
	"context"
	"io"
)

const (
	FolderProducts = "products"
	FolderSliders  = "sliders"
)

// Storage is the object store the admin image endpoints write to.
type Storage interface {
	Upload(ctx context.Context, folder string, r io.Reader, filename, contentType string) (string, error)
	ImportFromURL(ctx context.Context, folder, imageURL string) (string, error)
	Delete(ctx context.Context, objectPath string) error
}
