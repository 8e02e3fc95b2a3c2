package blob

import (
	"context"
	"errors"
	"regexp"
)

var ErrNotFound = errors.New("blob not found")

// Store is a uniform read/write/list surface over a working root that
// lives either on the local filesystem or in a GCS bucket. Locations
// returned by List are full location strings accepted by Read and
// Write.
type Store interface {
	List(ctx context.Context, namePrefix string) ([]string, error)
	Read(ctx context.Context, location string) ([]byte, error)
	Write(ctx context.Context, location string, content []byte) error
}

var gsRootPatt = regexp.MustCompile(`^gs:([-a-zA-Z0-9_.]+)/(.*)$`)

// Open selects the backend once from the working root: a root of the
// form "gs:bucket/prefix" yields the GCS store, anything else a local
// directory store.
func Open(ctx context.Context, workingRoot string) (Store, error) {
	if m := gsRootPatt.FindStringSubmatch(workingRoot); m != nil {
		return newGCSStore(ctx, m[1], m[2])
	}
	return &localStore{root: workingRoot}, nil
}
