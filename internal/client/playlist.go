package client

import (
	"context"
	"net/http"
	"net/url"

	"github.com/Fwea-Go/remix-exp/pkg/api"
)

// PlaylistQuery mirrors the /playlist and /playlist/generate parameters.
type PlaylistQuery struct {
	Originals string
	Remixes   string
	Shuffle   bool
	Auto      bool
	DryRun    bool
}

func (q PlaylistQuery) values() url.Values {
	v := url.Values{}
	if q.Originals != "" {
		v.Set("originals", q.Originals)
	}
	if q.Remixes != "" {
		v.Set("remixes", q.Remixes)
	}
	if q.Shuffle {
		v.Set("shuffle", "1")
	}
	if q.Auto {
		v.Set("mode", "auto")
	}
	if q.DryRun {
		v.Set("dryrun", "1")
	}
	return v
}

func withQuery(route string, v url.Values) string {
	if len(v) == 0 {
		return BaseURL + route
	}
	return BaseURL + route + "?" + v.Encode()
}

// Playlist fetches the resolved pairs.
func Playlist(ctx context.Context, q PlaylistQuery) (*api.PlaylistResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, withQuery("/playlist", q.values()), nil)
	if err != nil {
		return nil, err
	}
	var out api.PlaylistResponse
	if err := do(req, "", http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Generate asks the server to build the manifest. Without a token the
// server only previews it.
func Generate(ctx context.Context, q PlaylistQuery, token string) (*api.GenerateResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, withQuery("/playlist/generate", q.values()), nil)
	if err != nil {
		return nil, err
	}
	var out api.GenerateResponse
	if err := do(req, token, http.StatusOK, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
