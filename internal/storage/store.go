// Package storage defines the object-store boundary. The engine reads template
// images and writes rendered certificates through this contract; the concrete
// backend is interchangeable so tests run against the in-memory store.
package storage

import "context"

// ObjectStore is the narrow contract the certificate engine consumes.
type ObjectStore interface {
	// Put uploads bytes under key and returns the public URL.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	// Get fetches an object by its public URL or key.
	Get(ctx context.Context, url string) ([]byte, error)
	// Delete removes an object by its public URL or key. Used to clean up
	// blobs from a participant pipeline that failed after upload.
	Delete(ctx context.Context, url string) error
}
