package blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

type gcsStore struct {
	client *storage.Client
	bucket string
	prefix string
}

func newGCSStore(ctx context.Context, bucket, prefix string) (*gcsStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("new storage client: %w", err)
	}
	return &gcsStore{client: client, bucket: bucket, prefix: prefix}, nil
}

func (s *gcsStore) List(ctx context.Context, namePrefix string) ([]string, error) {
	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: s.prefix + namePrefix})
	out := make([]string, 0)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list gs:%s/%s%s: %w", s.bucket, s.prefix, namePrefix, err)
		}
		out = append(out, "gs:"+s.bucket+"/"+attrs.Name)
	}
	return out, nil
}

func (s *gcsStore) Read(ctx context.Context, location string) ([]byte, error) {
	bucket, key, err := splitLocation(location)
	if err != nil {
		return nil, err
	}
	r, err := s.client.Bucket(bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, fmt.Errorf("read %s: %w", location, ErrNotFound)
		}
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	defer r.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", location, err)
	}
	return b, nil
}

func (s *gcsStore) Write(ctx context.Context, location string, content []byte) error {
	bucket, key, err := splitLocation(location)
	if err != nil {
		return err
	}
	w := s.client.Bucket(bucket).Object(key).NewWriter(ctx)
	if _, err := w.Write(content); err != nil {
		_ = w.Close()
		return fmt.Errorf("write %s: %w", location, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("write %s: %w", location, err)
	}
	return nil
}

func splitLocation(location string) (bucket, key string, err error) {
	m := gsRootPatt.FindStringSubmatch(location)
	if m == nil {
		return "", "", fmt.Errorf("not a gs location: %s", location)
	}
	return m[1], m[2], nil
}
