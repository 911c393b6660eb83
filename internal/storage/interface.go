package storage

import (
	"context"
	"path"
	"strings"

	"github.com/timmy/phototag/internal/domain"
)

// ImageSource enumerates the Corpus and serves raw image content.
type ImageSource interface {
	// Name returns a short identifier for logs and index run records.
	// Parameters: none.
	// Returns:
	//   - string: source identifier such as "local:./images".
	Name() string

	// List returns the ImageIDs currently in the collection.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	// Returns:
	//   - []domain.ImageID: ids sorted ascending, without duplicates.
	//   - error: non-nil if the collection cannot be enumerated.
	List(ctx context.Context) ([]domain.ImageID, error)

	// Read loads the content of one image.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - id: image identifier returned by List.
	// Returns:
	//   - domain.RawImage: image bytes and format.
	//   - error: NotFound when the image is gone, or a read failure.
	Read(ctx context.Context, id domain.ImageID) (domain.RawImage, error)
}

// imageFormat maps a file name to the format the indexer can decode, or ""
// when the file is not an image.
func imageFormat(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	case ".bmp":
		return "bmp"
	case ".tif", ".tiff":
		return "tiff"
	default:
		return ""
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
