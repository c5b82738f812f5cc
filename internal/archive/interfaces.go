package archive

import "context"

// ObjectStore provides an interface for cloud storage writes.
// This interface enables mocking and testing of storage functionality.
type ObjectStore interface {
	// WriteObject stores data under bucket/object, replacing any existing object.
	WriteObject(ctx context.Context, bucket, object, contentType string, data []byte) error
}
