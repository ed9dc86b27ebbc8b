// Package object contains the object storage interface.
// Implementations include Cloudflare R2 and SQLite.
package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// Object holds metadata about a stored item.
type Object struct {
	Key string
	// Size is the total size of the object, even for ranged reads.
	Size         int64
	ETag         string
	ContentType  string
	CacheControl string
	LastModified time.Time
	CustomMeta   map[string]string
	// Range is the range the backend actually applied, nil for full reads.
	Range *Range
}

// Range represents a byte range [Start, End] inclusive.
// If End < 0 the range is open-ended.
type Range struct {
	Start int64
	End   int64
}

// Length returns the number of bytes covered by a resolved range.
func (r Range) Length() int64 {
	return r.End - r.Start + 1
}

// Page is one page of a prefix listing.
type Page struct {
	Keys []string
	// Cursor continues the listing; empty when this is the last page.
	Cursor string
}

// PutOptions carries HTTP metadata stored alongside an object.
type PutOptions struct {
	ContentType  string
	CacheControl string
	Meta         map[string]string
}

// Common errors returned by implementations.
var (
	ErrNotFound     = errors.New("object not found")
	ErrConflict     = errors.New("object already exists")
	ErrInvalidRange = errors.New("range not satisfiable")
	ErrUnavailable  = errors.New("object store unavailable")
)

// Lifecycle defines init/teardown behavior.
type Lifecycle interface {
	Init(ctx context.Context, param any) error
	Close(ctx context.Context) error
}

// Lister exposes paginated key listing.
type Lister interface {
	// ListPage returns keys under prefix starting after cursor. An empty
	// cursor starts from the beginning.
	ListPage(ctx context.Context, prefix, cursor string) (Page, error)
}

// Reader exposes read-related operations.
type Reader interface {
	// Get returns object metadata and a stream the caller must close.
	Get(ctx context.Context, key string, rng *Range) (Object, io.ReadCloser, error)
	// Stat returns metadata without streaming the body.
	Stat(ctx context.Context, key string) (Object, error)
}

// Writer exposes write-related operations.
type Writer interface {
	// Put uploads content and returns stored metadata.
	Put(ctx context.Context, key string, r io.Reader, sizeHint int64, opts PutOptions) (Object, error)
	// MultipartPut streams large content in parts; implementations may tune part handling internally.
	MultipartPut(ctx context.Context, key string, r io.Reader, partSize int64, opts PutOptions) (Object, error)
}

// ObjectStorage aggregates the full contract for object backends.
type ObjectStorage interface {
	Lifecycle
	Lister
	Reader
	Writer
}

// ResolveRange clamps rng against an object of the given size and returns
// the inclusive range that will be served. A nil rng resolves to nil.
func ResolveRange(rng *Range, size int64) (*Range, error) {
	if rng == nil {
		return nil, nil
	}
	if rng.Start < 0 || rng.Start >= size {
		return nil, ErrInvalidRange
	}
	end := rng.End
	if end < 0 || end >= size {
		end = size - 1
	}
	if end < rng.Start {
		return nil, ErrInvalidRange
	}
	return &Range{Start: rng.Start, End: end}, nil
}
