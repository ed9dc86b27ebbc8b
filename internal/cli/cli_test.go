package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Fwea-Go/remix-exp/internal/client"
	"github.com/Fwea-Go/remix-exp/internal/config"
	"github.com/Fwea-Go/remix-exp/pkg/api"
	"github.com/Fwea-Go/remix-exp/pkg/object"
	"github.com/Fwea-Go/remix-exp/pkg/sqlite"
)

func useServer(t *testing.T, h http.HandlerFunc) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	prev := client.BaseURL
	client.BaseURL = srv.URL
	t.Cleanup(func() { client.BaseURL = prev })
}

func TestPlaylistTable(t *testing.T) {
	useServer(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.PlaylistResponse{Pairs: []api.TrackPair{
			{Index: 0, Title: "Track 01", OriginalURL: "/r2/originals/a.mp3", RemixURL: "/r2/remixes/a.mp3"},
		}})
	})

	var out bytes.Buffer
	require.NoError(t, Playlist(context.Background(), &out, PlaylistFlags{}))
	assert.Contains(t, out.String(), "TITLE")
	assert.Contains(t, out.String(), "/r2/originals/a.mp3")
}

func TestPlaylistEmpty(t *testing.T) {
	useServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pairs":[]}`))
	})

	var out bytes.Buffer
	require.NoError(t, Playlist(context.Background(), &out, PlaylistFlags{}))
	assert.Equal(t, "no pairs\n", out.String())
}

func TestGenerateUsesEnvToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(TokenEnv, "from-env")
	useServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer from-env", r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(api.GenerateResponse{Wrote: true, Key: "playlist.json", Bytes: 2048})
	})

	var out bytes.Buffer
	require.NoError(t, Generate(context.Background(), &out, GenerateFlags{}))
	assert.Contains(t, out.String(), "wrote playlist.json (2.0 kB)")
}

func TestAdminTokenOrder(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(TokenEnv, "")
	assert.Empty(t, adminToken(""))

	require.NoError(t, client.WriteToken("saved"))
	assert.Equal(t, "saved", adminToken(""))
	t.Setenv(TokenEnv, "env")
	assert.Equal(t, "env", adminToken(""))
	assert.Equal(t, "flag", adminToken("flag"))
}

func TestLoginLogout(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	var out bytes.Buffer
	require.NoError(t, Login(&out, "tok"))
	assert.Equal(t, "tok", client.ReadToken())

	out.Reset()
	require.NoError(t, Login(&out, "other"))
	assert.Contains(t, out.String(), "already saved")
	assert.Equal(t, "tok", client.ReadToken())

	require.NoError(t, Logout(&out))
	assert.Empty(t, client.ReadToken())
}

func TestHashToken(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, HashToken(&out, "s3cret"))
	hash := strings.TrimSpace(out.String())
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("s3cret")))
}

func TestUploadNeedsToken(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv(TokenEnv, "")

	err := Upload(context.Background(), &bytes.Buffer{}, UploadFlags{Bank: "originals"}, []string{"a.mp3"})
	assert.ErrorContains(t, err, "no admin token")
	assert.Error(t, Upload(context.Background(), &bytes.Buffer{}, UploadFlags{}, nil))
}

func TestPairPrintsPhases(t *testing.T) {
	source := "file:" + filepath.Join(t.TempDir(), "objects.db")
	s := &sqlite.Storage{}
	require.NoError(t, s.Init(context.Background(), sqlite.Config{Source: source}))
	for _, k := range []string{"originals/03 - Song.mp3", "originals/Nightfall.mp3", "remixes/03_Song_Remix.mp3", "remixes/nightfall remix.wav"} {
		_, err := s.Put(context.Background(), k, strings.NewReader("x"), 1, object.PutOptions{})
		require.NoError(t, err)
	}
	require.NoError(t, s.Close(context.Background()))

	cfg, err := config.Load("", nil)
	require.NoError(t, err)
	cfg.Store = config.Store{Driver: config.DriverSQLite, SQLite: config.SQLite{Source: source}}
	cfg.OriginalsPrefix, cfg.RemixesPrefix = "originals/", "remixes/"
	cfg.PublicBaseURL = ""

	var out bytes.Buffer
	require.NoError(t, Pair(context.Background(), &out, cfg))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "number")
	assert.Contains(t, lines[1], "03 - Song.mp3")
	assert.Contains(t, lines[2], "stem")
	assert.Contains(t, lines[2], "nightfall remix.wav")
}
