package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"

	"github.com/zenGate-Global/palmyra-storefront/platform/go/tenant"
)

// ObjectLocation describes where a blob should live.
type ObjectLocation struct {
	Bucket   string
	FullPath string
}

// ResolveObjectLocation combines the tenant base prefix and a logical key into a bucket/path pair.
// The base prefix already includes envKey (e.g. "dev/store-1/"); logicalKey is tenant-relative
// such as "logos/logo_1700000000000".
func ResolveObjectLocation(space tenant.Space, bucket string, logicalKey string) (ObjectLocation, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return ObjectLocation{}, fmt.Errorf("bucket is required")
	}
	key := strings.TrimPrefix(strings.TrimSpace(logicalKey), "/")
	if key == "" {
		return ObjectLocation{}, fmt.Errorf("logical key is required")
	}

	prefix := space.BasePrefix
	if prefix == "" {
		return ObjectLocation{}, fmt.Errorf("tenant base prefix is missing")
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	return ObjectLocation{Bucket: bucket, FullPath: prefix + key}, nil
}

// ObjectStore persists tenant assets.
type ObjectStore interface {
	// Put writes the object and returns a stable reference to it.
	Put(ctx context.Context, loc ObjectLocation, contentType string, body io.Reader) (string, error)
	// Check verifies the store is reachable.
	Check(ctx context.Context) error
}

// GCSStore writes objects to Google Cloud Storage.
type GCSStore struct {
	client *storage.Client
	bucket string
}

// NewGCSStore constructs a GCSStore for the given bucket.
func NewGCSStore(client *storage.Client, bucket string) *GCSStore {
	if client == nil {
		panic("storage client is required")
	}
	if strings.TrimSpace(bucket) == "" {
		panic("storage bucket is required")
	}
	return &GCSStore{client: client, bucket: bucket}
}

// Bucket returns the configured bucket.
func (s *GCSStore) Bucket() string { return s.bucket }

func (s *GCSStore) Put(ctx context.Context, loc ObjectLocation, contentType string, body io.Reader) (string, error) {
	w := s.client.Bucket(loc.Bucket).Object(loc.FullPath).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, body); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("upload %s: %w", loc.FullPath, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize %s: %w", loc.FullPath, err)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", loc.Bucket, loc.FullPath), nil
}

// Check lists at most one object to verify bucket access.
func (s *GCSStore) Check(ctx context.Context) error {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: ""})
	if _, err := it.Next(); err != nil && err != iterator.Done {
		return fmt.Errorf("list bucket %s: %w", s.bucket, err)
	}
	return nil
}

// LocalStore writes objects under a directory, one sub-directory per bucket.
type LocalStore struct {
	root string
}

// NewLocalStore constructs a LocalStore rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	if strings.TrimSpace(dir) == "" {
		panic("storage local dir is required")
	}
	return &LocalStore{root: dir}
}

func (s *LocalStore) Put(_ context.Context, loc ObjectLocation, _ string, body io.Reader) (string, error) {
	path := filepath.Join(s.root, loc.Bucket, filepath.FromSlash(loc.FullPath))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}
	return "file://" + filepath.ToSlash(path), nil
}

func (s *LocalStore) Check(context.Context) error {
	return os.MkdirAll(s.root, 0o755)
}

var (
	_ ObjectStore = (*GCSStore)(nil)
	_ ObjectStore = (*LocalStore)(nil)
)
