// Package storage is the object store that holds story media and avatars.
package storage

import (
	"context"
	"errors"
)

const (
	BucketStories = "stories"
	BucketAvatars = "avatars"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
)

//go:generate go run go.uber.org/mock/mockgen -source=storage.go -destination=mocks/mock.go
type ObjectStore interface {
	// Put stores data under bucket/key, replacing any previous object.
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error

	// Get returns the object bytes and content type.
	Get(ctx context.Context, bucket, key string) ([]byte, string, error)

	// List returns every key in a bucket.
	List(ctx context.Context, bucket string) ([]string, error)

	// PublicURL is the address a client can fetch the object from.
	PublicURL(bucket, key string) string
}
