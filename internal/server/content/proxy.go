package content

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Fwea-Go/remix-exp/internal/logger"
	"github.com/Fwea-Go/remix-exp/internal/metrics"
	"github.com/Fwea-Go/remix-exp/internal/server/respond"
)

// relayedHeaders are copied from the upstream response when present.
var relayedHeaders = []string{"Content-Range", "Content-Length", "ETag", "Last-Modified"}

// Proxy streams remote audio given in the src query parameter, forwarding
// the client's Range header.
type Proxy struct {
	client *http.Client
}

// NewProxy returns a proxy whose upstream requests give up when response
// headers take longer than timeout. Bodies stream without a deadline.
func NewProxy(timeout time.Duration) *Proxy {
	return &Proxy{client: &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			ResponseHeaderTimeout: timeout,
		},
	}}
}

// NewProxyWithClient uses client for upstream requests.
func NewProxyWithClient(client *http.Client) *Proxy {
	return &Proxy{client: client}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	log := logger.Ctx(r.Context())

	src, err := url.Parse(r.URL.Query().Get("src"))
	if err != nil || (src.Scheme != "http" && src.Scheme != "https") || src.Host == "" {
		respond.Error(w, r, http.StatusBadRequest, "Missing src")
		return
	}

	method := http.MethodGet
	if r.Method == http.MethodHead {
		method = http.MethodHead
	}
	req, err := http.NewRequestWithContext(r.Context(), method, src.String(), nil)
	if err != nil {
		respond.Error(w, r, http.StatusBadRequest, "Missing src")
		return
	}
	if rh := r.Header.Get("Range"); rh != "" {
		req.Header.Set("Range", rh)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		metrics.ProxyRequestsTotal.WithLabelValues("error").Inc()
		log.Warn().Err(err).Str("src", src.Redacted()).Msg("upstream fetch failed")
		respond.Error(w, r, http.StatusBadGateway, "upstream unreachable")
		return
	}
	defer resp.Body.Close()
	metrics.ProxyRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	hdr := w.Header()
	hdr.Set("Content-Type", headerOr(resp.Header, "Content-Type", defaultContentType))
	hdr.Set("Accept-Ranges", headerOr(resp.Header, "Accept-Ranges", "bytes"))
	hdr.Set("Cache-Control", cacheControl)
	for _, name := range relayedHeaders {
		if v := resp.Header.Get(name); v != "" {
			hdr.Set(name, v)
		}
	}

	status := resp.StatusCode
	switch {
	case status == http.StatusOK && resp.Header.Get("Content-Range") != "":
		status = http.StatusPartialContent
	case status == http.StatusOK, status == http.StatusPartialContent:
	default:
		log.Debug().Int("status", status).Str("src", src.Redacted()).Msg("relaying upstream error status")
	}
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if n, err := io.Copy(w, resp.Body); err != nil {
		log.Debug().Err(err).Int64("written", n).Msg("proxy stream ended early")
	}
}

func headerOr(h http.Header, name, def string) string {
	if v := h.Get(name); v != "" {
		return v
	}
	return def
}
