// Package storage provides admin routes for managing the track library.
package storage

import (
	"context"
	"errors"
	"net/http"

	"github.com/Fwea-Go/remix-exp/internal/logger"
	"github.com/Fwea-Go/remix-exp/internal/server/auth"
	"github.com/Fwea-Go/remix-exp/internal/server/respond"
	"github.com/Fwea-Go/remix-exp/pkg/api"
	"github.com/Fwea-Go/remix-exp/pkg/object"
	"github.com/Fwea-Go/remix-exp/pkg/pairing"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// Banks names the key prefixes tracks are uploaded under.
type Banks struct {
	Originals string
	Remixes   string
}

func (b Banks) prefix(bank string) (string, bool) {
	switch bank {
	case "", "originals", "original":
		return b.Originals, true
	case "remixes", "remix":
		return b.Remixes, true
	}
	return "", false
}

// StorageHandler serves POST /upload and GET /list. Both require the admin
// decision stored by auth.Middleware.
func StorageHandler(store object.ObjectStorage, banks Banks) http.Handler {
	h := &handler{store: store, banks: banks}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", adminOnly(h.upload))
	mux.HandleFunc("GET /list", adminOnly(h.list))
	return mux
}

type handler struct {
	store object.ObjectStorage
	banks Banks
}

func adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			respond.Error(w, r, http.StatusUnauthorized, "unauthorized, admin token required")
			return
		}
		next(w, r)
	}
}

// upload stores one track under the bank prefix.
// file: multipart/form-data
// bank: originals (default) or remixes
// name: optional file name override
func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	log := logger.Ctx(r.Context())

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "failed to parse form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "missing file: "+err.Error())
		return
	}
	defer file.Close()

	prefix, ok := h.banks.prefix(r.FormValue("bank"))
	if !ok {
		respond.Error(w, r, http.StatusBadRequest, "bank must be originals or remixes")
		return
	}
	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}
	key, err := trackKey(prefix, name)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, err.Error())
		return
	}

	log.Info().Str("key", key).Str("size", humanize.Bytes(uint64(max(header.Size, 0)))).Msg("uploading track")
	obj, err := opupload(r.Context(), h.store, key, file, header.Size, contentType(header.Header.Get("Content-Type"), name))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, object.ErrUnavailable) {
			status = http.StatusServiceUnavailable
		}
		log.Error().Err(err).Str("key", key).Msg("upload failed")
		respond.Error(w, r, status, "upload failed")
		return
	}

	respond.JSON(w, r, http.StatusCreated, api.UploadResponse{Key: key, Size: obj.Size, ETag: obj.ETag}, false)
}

// list returns the tracks in both banks in natural order.
func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	var resp api.LibraryResponse
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		keys, err := tracks(ctx, h.store, h.banks.Originals)
		resp.Originals = keys
		return err
	})
	g.Go(func() error {
		keys, err := tracks(ctx, h.store, h.banks.Remixes)
		resp.Remixes = keys
		return err
	})
	if err := g.Wait(); err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("listing library failed")
		respond.Error(w, r, http.StatusServiceUnavailable, "object store unavailable")
		return
	}
	respond.JSON(w, r, http.StatusOK, resp, true)
}

func tracks(ctx context.Context, l object.Lister, prefix string) ([]string, error) {
	keys, err := object.ListKeys(ctx, l, prefix)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !object.IsDirMarker(k) {
			out = append(out, k)
		}
	}
	pairing.NaturalSort(out)
	return out, nil
}
