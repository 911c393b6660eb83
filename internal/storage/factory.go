package storage

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/timmy/phototag/internal/config"
)

// NewImageSource creates the ImageSource selected by cfg.Type.
// Parameters:
//   - fs: filesystem used by the local source.
//   - cfg: storage configuration.
// Returns:
//   - ImageSource: initialized source.
//   - error: non-nil if the type is unknown or the client cannot be created.
func NewImageSource(fs afero.Fs, cfg config.StorageConfig) (ImageSource, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalSource(fs, cfg.Root), nil
	case "s3":
		return NewS3Source(&S3Config{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			Prefix:    cfg.Prefix,
		})
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}
