package server

import (
	"net/http"
	"time"

	"github.com/Fwea-Go/remix-exp/internal/logger"
	"github.com/Fwea-Go/remix-exp/internal/metrics"
	"github.com/Fwea-Go/remix-exp/internal/server/respond"

	"github.com/google/uuid"
)

type middleware func(next http.Handler) http.Handler

func handle(mux *http.ServeMux, pattern string, handler http.Handler, middlewares ...middleware) {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](http.Handler(handler))
	}
	mux.Handle(pattern, handler)
}

const (
	allowMethods  = "GET, HEAD, POST, OPTIONS"
	exposeHeaders = "Content-Length, Content-Range, Accept-Ranges, Content-Type, ETag, Last-Modified"
)

// cors adds the cross-origin headers players need for ranged audio and
// answers every preflight with 204.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", allowMethods)
		if acrh := r.Header.Get("Access-Control-Request-Headers"); acrh != "" {
			h.Set("Access-Control-Allow-Headers", acrh)
		} else {
			h.Set("Access-Control-Allow-Headers", "*")
		}
		h.Set("Access-Control-Expose-Headers", exposeHeaders)
		h.Set("Cross-Origin-Resource-Policy", "cross-origin")
		h.Set("Timing-Allow-Origin", "*")
		h.Set("Vary", "Origin, Access-Control-Request-Headers")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder remembers the status and body size written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(p []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	n, err := s.ResponseWriter.Write(p)
	s.bytes += int64(n)
	return n, err
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// requestLog attaches a request-scoped logger carrying a request id and
// records the outcome once the handler returns.
func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)

		l := logger.Global().With().
			Str("request_id", id).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		r = r.WithContext(logger.WithLogger(r.Context(), &l))

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}

		elapsed := time.Since(start)
		metrics.ObserveRequest(r.Pattern, rec.status, elapsed)
		ev := l.Info()
		if rec.status >= http.StatusInternalServerError {
			ev = l.Warn()
		}
		ev.Int("status", rec.status).
			Int64("bytes", rec.bytes).
			Dur("elapsed", elapsed).
			Msg("request")
	})
}

// requireStore answers 503 while no object store is configured.
func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.store == nil {
			respond.Error(w, r, http.StatusServiceUnavailable, "object store not configured")
			return
		}
		next.ServeHTTP(w, r)
	})
}
