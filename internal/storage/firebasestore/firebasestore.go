// Package firebasestore puts objects into a Firebase Storage (GCS) bucket.
// Logical buckets become name prefixes inside the single Firebase bucket.
package firebasestore

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"github.com/orgball2608/storyshare/internal/storage"
	"github.com/orgball2608/storyshare/pkg/logger"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const downloadBase = "https://firebasestorage.googleapis.com/v0/b/"

type Opts struct {
	Bucket          string
	CredentialsFile string
	// CredentialsJSON may be raw JSON or base64 encoded JSON.
	CredentialsJSON string
	Logger          logger.Logger
}

type Store struct {
	bucket *gcs.BucketHandle
	name   string
	logger logger.Logger
}

var _ storage.ObjectStore = (*Store)(nil)

func New(ctx context.Context, opts Opts) (*Store, error) {
	if opts.Bucket == "" {
		return nil, errors.New("firebase bucket is not configured")
	}

	var clientOpts []option.ClientOption
	switch {
	case opts.CredentialsJSON != "":
		creds, err := decodeCredentials(opts.CredentialsJSON)
		if err != nil {
			return nil, err
		}
		clientOpts = append(clientOpts, option.WithCredentialsJSON(creds))
	case opts.CredentialsFile != "":
		clientOpts = append(clientOpts, option.WithCredentialsFile(opts.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: opts.Bucket}, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("error initializing firebase app: %w", err)
	}
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting storage client: %w", err)
	}
	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("error opening bucket %s: %w", opts.Bucket, err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Store{
		bucket: bucket,
		name:   opts.Bucket,
		logger: log.WithComponent("FirebaseStore"),
	}, nil
}

func decodeCredentials(raw string) ([]byte, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") {
		return []byte(trimmed), nil
	}
	decoded, err := base64.StdEncoding.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to decode base64 firebase credentials: %w", err)
	}
	return decoded, nil
}

func objectName(bucket, key string) (string, error) {
	if bucket == "" || strings.Contains(bucket, "/") || key == "" || strings.HasPrefix(key, "/") {
		return "", storage.ErrInvalidKey
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return "", storage.ErrInvalidKey
		}
	}
	return bucket + "/" + key, nil
}

func (s *Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	name, err := objectName(bucket, key)
	if err != nil {
		return err
	}

	w := s.bucket.Object(name).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to upload %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to finalize %s: %w", name, err)
	}
	s.logger.Debug("Object uploaded", "Name", name, "Size", len(data))
	return nil
}

func (s *Store) Get(ctx context.Context, bucket, key string) ([]byte, string, error) {
	name, err := objectName(bucket, key)
	if err != nil {
		return nil, "", err
	}

	r, err := s.bucket.Object(name).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, "", storage.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, r.Attrs.ContentType, nil
}

func (s *Store) List(ctx context.Context, bucket string) ([]string, error) {
	prefix := bucket + "/"
	it := s.bucket.Objects(ctx, &gcs.Query{Prefix: prefix})

	var keys []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", bucket, err)
		}
		keys = append(keys, strings.TrimPrefix(attrs.Name, prefix))
	}
	sort.Strings(keys)
	return keys, nil
}

func (s *Store) PublicURL(bucket, key string) string {
	return downloadURL(s.name, bucket+"/"+key)
}

func downloadURL(bucketName, object string) string {
	return downloadBase + bucketName + "/o/" + strings.ReplaceAll(url.PathEscape(object), "/", "%2F") + "?alt=media"
}
