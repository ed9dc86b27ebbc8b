package object

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ListKeys pages through every key under prefix. Pages are fetched one after
// another since each cursor comes from the previous response. Any page
// failure aborts the listing and is reported as ErrUnavailable.
func ListKeys(ctx context.Context, l Lister, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor string
	)
	for page := 1; ; page++ {
		p, err := l.ListPage(ctx, prefix, cursor)
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				return nil, fmt.Errorf("object: list %q page %d: %w", prefix, page, err)
			}
			return nil, fmt.Errorf("object: list %q page %d: %w: %w", prefix, page, ErrUnavailable, err)
		}
		keys = append(keys, p.Keys...)
		if p.Cursor == "" {
			return keys, nil
		}
		if p.Cursor == cursor {
			return nil, fmt.Errorf("object: list %q page %d: %w: cursor did not advance", prefix, page, ErrUnavailable)
		}
		cursor = p.Cursor
	}
}

// IsDirMarker reports whether key is a directory placeholder rather than a blob.
func IsDirMarker(key string) bool {
	return strings.HasSuffix(key, "/")
}

// BaseName returns the final path segment of key.
func BaseName(key string) string {
	if i := strings.LastIndex(key, "/"); i >= 0 && i < len(key)-1 {
		return key[i+1:]
	}
	return strings.TrimSuffix(key, "/")
}
