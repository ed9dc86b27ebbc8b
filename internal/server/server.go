// Package server wires the HTTP routes of the playlist service.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Fwea-Go/remix-exp/internal/config"
	"github.com/Fwea-Go/remix-exp/internal/logger"
	"github.com/Fwea-Go/remix-exp/internal/metrics"
	"github.com/Fwea-Go/remix-exp/internal/playlist"
	"github.com/Fwea-Go/remix-exp/internal/server/auth"
	"github.com/Fwea-Go/remix-exp/internal/server/content"
	"github.com/Fwea-Go/remix-exp/internal/server/respond"
	"github.com/Fwea-Go/remix-exp/internal/server/storage"
	"github.com/Fwea-Go/remix-exp/pkg/api"
	"github.com/Fwea-Go/remix-exp/pkg/object"
)

var endpoints = []string{
	"/playlist?originals=&remixes=&shuffle=1",
	"/playlist/generate?dryrun=1",
	"/r2/<key>",
	"/audio?src=…",
	"/health",
	"/metrics",
}

// Server holds the handlers for one configuration. It is safe for
// concurrent use.
type Server struct {
	cfg       config.Config
	store     object.ObjectStorage
	resolver  *playlist.Resolver
	generator *playlist.Generator
	checker   *auth.Checker
	handler   http.Handler
}

// New builds the service around store. A nil store leaves the server
// running with store-backed routes answering 503.
func New(cfg config.Config, store object.ObjectStorage, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		store:   store,
		checker: auth.NewChecker(cfg.AdminToken, cfg.AdminTokenHash),
	}
	popts := playlist.Options{
		ManifestKey:     cfg.ManifestKey,
		URLs:            playlist.URLBuilder{Base: cfg.PublicBaseURL},
		OriginalsPrefix: cfg.OriginalsPrefix,
		RemixesPrefix:   cfg.RemixesPrefix,
	}
	for _, o := range opts {
		o(&popts)
	}
	if store != nil {
		s.resolver = playlist.NewResolver(store, popts)
		s.generator = playlist.NewGenerator(store, popts)
	}

	mux := http.NewServeMux()
	adminCtx := auth.Middleware(s.checker)
	handle(mux, "GET /playlist", http.HandlerFunc(s.playlist), s.requireStore)
	handle(mux, "GET /playlist/generate", http.HandlerFunc(s.generate), s.requireStore, adminCtx)
	handle(mux, "POST /playlist/generate", http.HandlerFunc(s.generate), s.requireStore, adminCtx)
	handle(mux, "GET /r2/{key...}", content.NewHandler(store), s.requireStore)
	handle(mux, "GET /audio", content.NewProxy(cfg.ProxyTimeout))
	handle(mux, "/storage/", http.StripPrefix("/storage", storage.StorageHandler(store, storage.Banks{
		Originals: cfg.OriginalsPrefix,
		Remixes:   cfg.RemixesPrefix,
	})), s.requireStore, adminCtx)
	handle(mux, "GET /health", http.HandlerFunc(s.health))
	handle(mux, "GET /metrics", metrics.Handler())
	handle(mux, "/", http.HandlerFunc(index))

	s.handler = requestLog(cors(mux))
	return s
}

// Option adjusts the playlist options derived from the config.
type Option func(*playlist.Options)

// WithPlaylistOptions lets callers inject pairing rules or a random source.
func WithPlaylistOptions(f func(*playlist.Options)) Option {
	return Option(f)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Serve listens on cfg.Addr until ctx is done, then drains in-flight
// requests for up to ten seconds.
func Serve(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close(context.Background())
	} else {
		logger.Warn().Msg("no object store configured, store-backed routes will answer 503")
	}

	srv := &http.Server{
		Handler:           New(cfg, store),
		ReadHeaderTimeout: 10 * time.Second,
	}
	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", cfg.Addr, err)
	}
	logger.Info().Str("addr", lis.Addr().String()).Str("store", cfg.Store.Driver).Msg("starting server")

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(lis) }()

	select {
	case err := <-errc:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

func (s *Server) playlist(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := playlist.Request{
		OriginalsPrefix: orDefault(q.Get("originals"), s.cfg.OriginalsPrefix),
		RemixesPrefix:   orDefault(q.Get("remixes"), s.cfg.RemixesPrefix),
		ForceAuto:       strings.EqualFold(q.Get("mode"), "auto"),
		Shuffle:         truthy(q.Get("shuffle"), "1", "true", "yes"),
	}
	res, err := s.resolver.Resolve(r.Context(), req)
	if err != nil {
		s.fail(w, r, err, "resolving playlist failed")
		return
	}
	respond.JSON(w, r, http.StatusOK, api.PlaylistResponse{Pairs: res.Pairs}, true)
}

// generate previews the manifest for everyone and writes it for admins.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dryrun := truthy(q.Get("dryrun"), "1", "true")
	m, err := s.generator.Build(r.Context(),
		orDefault(q.Get("originals"), s.cfg.OriginalsPrefix),
		orDefault(q.Get("remixes"), s.cfg.RemixesPrefix),
	)
	if err != nil {
		metrics.ManifestCommitsTotal.WithLabelValues("error").Inc()
		s.fail(w, r, err, "building manifest failed")
		return
	}

	if dryrun || !auth.IsAdmin(r.Context()) {
		metrics.ManifestCommitsTotal.WithLabelValues("preview").Inc()
		respond.JSON(w, r, http.StatusOK, api.GenerateResponse{DryRun: &dryrun, Manifest: m}, true)
		return
	}

	n, err := s.generator.Commit(r.Context(), m)
	if err != nil {
		metrics.ManifestCommitsTotal.WithLabelValues("error").Inc()
		s.fail(w, r, err, "writing manifest failed")
		return
	}
	metrics.ManifestCommitsTotal.WithLabelValues("written").Inc()
	respond.JSON(w, r, http.StatusOK, api.GenerateResponse{Wrote: true, Key: s.generator.Key(), Bytes: n, Manifest: m}, true)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, api.HealthResponse{OK: true, R2: s.store != nil}, false)
}

func index(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, r, http.StatusOK, api.IndexResponse{OK: true, Endpoints: endpoints}, false)
}

// fail maps store errors to a status. A cancelled request gets no body.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	log := logger.Ctx(r.Context())
	switch {
	case errors.Is(err, context.Canceled):
		log.Debug().Err(err).Msg(msg)
	case errors.Is(err, object.ErrUnavailable):
		log.Warn().Err(err).Msg(msg)
		respond.Error(w, r, http.StatusServiceUnavailable, "object store unavailable")
	default:
		log.Error().Err(err).Msg(msg)
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func truthy(v string, accepted ...string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	for _, a := range accepted {
		if v == a {
			return true
		}
	}
	return false
}
