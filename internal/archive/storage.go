package archive

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
)

// uploadTimeout bounds a single object upload.
const uploadTimeout = 2 * time.Minute

// GCSObjectStore is the concrete implementation of ObjectStore that writes
// to Google Cloud Storage with Application Default Credentials.
type GCSObjectStore struct {
	client *storage.Client
}

// Ensure GCSObjectStore implements ObjectStore
var _ ObjectStore = (*GCSObjectStore)(nil)

// NewGCSObjectStore creates a storage client shared by all writes.
func NewGCSObjectStore(ctx context.Context) (*GCSObjectStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("NewGCSObjectStore: create storage client: %w", err)
	}
	return &GCSObjectStore{client: client}, nil
}

// Close closes the storage client.
func (s *GCSObjectStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// WriteObject implements ObjectStore.
func (s *GCSObjectStore) WriteObject(ctx context.Context, bucket, object, contentType string, data []byte) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(bucket).Object(object).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("WriteObject %s/%s: write: %w", bucket, object, err)
	}

	// Close finalizes the upload
	if err := w.Close(); err != nil {
		return fmt.Errorf("WriteObject %s/%s: finalize upload: %w", bucket, object, err)
	}
	return nil
}
