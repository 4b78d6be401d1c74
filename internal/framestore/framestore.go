package framestore

import (
	"context"
	"fmt"

	"github.com/pratik-mahalle/watchpost/internal/config"
	"github.com/pratik-mahalle/watchpost/internal/domain/camera"
)

// FromConfig builds the store selected by FRAME_STORE
func FromConfig(ctx context.Context, cfg config.CameraConfig) (camera.FrameStore, error) {
	switch cfg.FrameStore {
	case "", "local":
		store, err := NewLocal(cfg.StoragePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		store, err := NewS3(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "gcs":
		store, err := NewGCS(ctx, GCSConfig{
			Bucket:          cfg.GCSBucket,
			CredentialsFile: cfg.GCSCredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported frame store: %s", cfg.FrameStore)
	}
}
