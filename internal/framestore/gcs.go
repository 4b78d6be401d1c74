package framestore

import (
	"context"
	"fmt"
	"image"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/pratik-mahalle/watchpost/internal/vision"
)

// GCSConfig configures the Cloud Storage frame store
type GCSConfig struct {
	Bucket          string
	CredentialsFile string
	CredentialsJSON string
	Prefix          string
}

// GCS uploads frames to a Cloud Storage bucket and returns gs:// URIs
type GCS struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCS creates the storage client
func NewGCS(ctx context.Context, cfg GCSConfig) (*GCS, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCS{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Save implements camera.FrameStore
func (g *GCS) Save(ctx context.Context, kind string, cameraID int64, at time.Time, img image.Image) (string, error) {
	data, err := vision.EncodeJPEG(img, jpegQuality)
	if err != nil {
		return "", fmt.Errorf("JPEG encode failed: %w", err)
	}

	key := g.prefix + ObjectKey(kind, cameraID, at)
	w := g.client.Bucket(g.bucket).Object(key).NewWriter(ctx)
	w.ContentType = "image/jpeg"
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to upload frame to gs://%s/%s: %w", g.bucket, key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to upload frame to gs://%s/%s: %w", g.bucket, key, err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, key), nil
}

// Close releases the storage client
func (g *GCS) Close() error {
	return g.client.Close()
}
