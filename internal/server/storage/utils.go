package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"

	"github.com/Fwea-Go/remix-exp/pkg/object"
)

const (
	multipartThreshold = 100 << 20 // 100 MB
	partSize           = 8 << 20
)

// trackKey places the final segment of name under prefix.
func trackKey(prefix, name string) (string, error) {
	base := sanitizeFilename(name)
	if base == "" {
		return "", errors.New("file name is empty")
	}
	return prefix + base, nil
}

// sanitizeFilename extracts the base filename and drops control characters.
func sanitizeFilename(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	base := path.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, base)
}

// contentType prefers the declared part type unless it is the generic
// binary default, then falls back to the extension and finally audio/mpeg.
func contentType(declared, name string) string {
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if ct := mime.TypeByExtension(strings.ToLower(path.Ext(name))); ct != "" {
		return ct
	}
	return "audio/mpeg"
}

// opupload writes r under key, streaming in parts when the upload is large.
func opupload(ctx context.Context, store object.Writer, key string, r io.Reader, size int64, ct string) (object.Object, error) {
	opts := object.PutOptions{ContentType: ct}
	if size > multipartThreshold {
		obj, err := store.MultipartPut(ctx, key, r, partSize, opts)
		if err != nil {
			return object.Object{}, fmt.Errorf("storage: multipart upload %q: %w", key, err)
		}
		return obj, nil
	}
	obj, err := store.Put(ctx, key, r, size, opts)
	if err != nil {
		return object.Object{}, fmt.Errorf("storage: upload %q: %w", key, err)
	}
	return obj, nil
}
