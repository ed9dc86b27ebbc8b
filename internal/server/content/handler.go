// Package content streams stored tracks over HTTP with byte-range support
// and proxies remote audio.
package content

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/Fwea-Go/remix-exp/internal/logger"
	"github.com/Fwea-Go/remix-exp/internal/metrics"
	"github.com/Fwea-Go/remix-exp/internal/server/respond"
	"github.com/Fwea-Go/remix-exp/pkg/object"
)

const (
	defaultContentType = "audio/mpeg"
	cacheControl       = "public, max-age=3600"
)

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Handler serves GET and HEAD for stored objects. The key is taken from the
// "key" path wildcard.
type Handler struct {
	store object.Reader
}

func NewHandler(store object.Reader) *Handler {
	return &Handler{store: store}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" || object.IsDirMarker(key) {
		respond.Text(w, r, http.StatusNotFound, "Not found")
		return
	}
	rng := ParseRange(r.Header.Get("Range"))

	if r.Method == http.MethodHead {
		h.head(w, r, key, rng)
		return
	}

	obj, body, err := h.store.Get(r.Context(), key, rng)
	if err != nil {
		h.fail(w, r, key, err)
		return
	}
	defer body.Close()

	status := writeHeaders(w, key, obj)
	w.WriteHeader(status)
	n, err := io.Copy(w, body)
	metrics.BytesServedTotal.Add(float64(n))
	if err != nil {
		logger.Ctx(r.Context()).Debug().Err(err).Str("key", key).Int64("written", n).Msg("content stream ended early")
	}
}

// head answers from metadata alone; the body is never read.
func (h *Handler) head(w http.ResponseWriter, r *http.Request, key string, rng *object.Range) {
	obj, err := h.store.Stat(r.Context(), key)
	if err != nil {
		h.fail(w, r, key, err)
		return
	}
	applied, err := object.ResolveRange(rng, obj.Size)
	if err != nil {
		h.unsatisfiable(w, r, obj.Size)
		return
	}
	obj.Range = applied
	w.WriteHeader(writeHeaders(w, key, obj))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, key string, err error) {
	log := logger.Ctx(r.Context())
	switch {
	case errors.Is(err, object.ErrNotFound):
		log.Debug().Str("key", key).Msg("content not found")
		respond.Text(w, r, http.StatusNotFound, "Not found")
	case errors.Is(err, object.ErrInvalidRange):
		size := int64(-1)
		if obj, serr := h.store.Stat(r.Context(), key); serr == nil {
			size = obj.Size
		}
		h.unsatisfiable(w, r, size)
	case errors.Is(err, context.Canceled):
		log.Debug().Str("key", key).Msg("client went away before content was read")
	case errors.Is(err, object.ErrUnavailable):
		log.Warn().Err(err).Str("key", key).Msg("object store unavailable")
		respond.Error(w, r, http.StatusServiceUnavailable, "object store unavailable")
	default:
		log.Error().Err(err).Str("key", key).Msg("reading content failed")
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

// unsatisfiable answers 416. size < 0 means the total is unknown.
func (h *Handler) unsatisfiable(w http.ResponseWriter, r *http.Request, size int64) {
	metrics.RangeRequestsTotal.WithLabelValues("unsatisfiable").Inc()
	if size >= 0 {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
	}
	respond.Text(w, r, http.StatusRequestedRangeNotSatisfiable, "Range not satisfiable")
}

// writeHeaders sets the response headers for obj and returns the status
// to send.
func writeHeaders(w http.ResponseWriter, key string, obj object.Object) int {
	hdr := w.Header()
	ct := obj.ContentType
	if ct == "" {
		ct = defaultContentType
	}
	hdr.Set("Content-Type", ct)
	hdr.Set("Accept-Ranges", "bytes")
	hdr.Set("Cache-Control", cacheControl)
	if obj.ETag != "" {
		hdr.Set("ETag", obj.ETag)
	}
	if !obj.LastModified.IsZero() {
		hdr.Set("Last-Modified", obj.LastModified.UTC().Format(http.TimeFormat))
	}
	hdr.Set("Content-Disposition", `inline; filename="`+quoteEscaper.Replace(object.BaseName(key))+`"`)

	if obj.Range != nil {
		metrics.RangeRequestsTotal.WithLabelValues("partial").Inc()
		hdr.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", obj.Range.Start, obj.Range.End, obj.Size))
		hdr.Set("Content-Length", strconv.FormatInt(obj.Range.Length(), 10))
		return http.StatusPartialContent
	}
	metrics.RangeRequestsTotal.WithLabelValues("full").Inc()
	hdr.Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	return http.StatusOK
}
