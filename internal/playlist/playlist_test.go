package playlist

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/Fwea-Go/remix-exp/pkg/api"
	"github.com/Fwea-Go/remix-exp/pkg/object"
	"github.com/Fwea-Go/remix-exp/pkg/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const manifestKey = "playlist.json"

func newStore(t *testing.T, keys ...string) *sqlite.Storage {
	t.Helper()
	s := &sqlite.Storage{}
	require.NoError(t, s.Init(context.Background(), sqlite.Config{
		Source:         "file:" + filepath.Join(t.TempDir(), "objects.db"),
		AllowOverwrite: true,
		PageSize:       2,
	}))
	t.Cleanup(func() { s.Close(context.Background()) })
	for _, k := range keys {
		put(t, s, k, "audio:"+k)
	}
	return s
}

func put(t *testing.T, s object.Writer, key, body string) {
	t.Helper()
	_, err := s.Put(context.Background(), key, strings.NewReader(body), int64(len(body)), object.PutOptions{})
	require.NoError(t, err)
}

var library = []string{
	"originals/",
	"originals/01 - Dawn.mp3",
	"originals/Nightfall (Radio Edit).mp3",
	"originals/zz extra.mp3",
	"remixes/",
	"remixes/01_Dawn_Remix.mp3",
	"remixes/nightfall remix.wav",
}

func defaultRequest() Request {
	return Request{OriginalsPrefix: "originals/", RemixesPrefix: "remixes/"}
}

func TestResolveAuto(t *testing.T) {
	s := newStore(t, library...)
	r := NewResolver(s, Options{ManifestKey: manifestKey})

	res, err := r.Resolve(context.Background(), defaultRequest())
	require.NoError(t, err)

	assert.Equal(t, SourceAuto, res.Source)
	require.Len(t, res.Pairs, 2)
	assert.Equal(t, api.TrackPair{
		Index:         0,
		Title:         "Track 01",
		OriginalLabel: "Original 01",
		RemixLabel:    "Remix 01",
		OriginalURL:   "/r2/originals%2F01%20-%20Dawn.mp3",
		RemixURL:      "/r2/remixes%2F01_Dawn_Remix.mp3",
	}, res.Pairs[0])
	assert.Equal(t, 1, res.Pairs[1].Index)
	assert.Equal(t, "Track 02", res.Pairs[1].Title)
	assert.Equal(t, "/r2/remixes%2Fnightfall%20remix.wav", res.Pairs[1].RemixURL)
	for _, p := range res.Pairs {
		assert.NotContains(t, p.OriginalLabel, "Dawn", "generic labels do not leak file names")
	}
}

func TestResolveAutoAbsoluteBase(t *testing.T) {
	s := newStore(t, library...)
	r := NewResolver(s, Options{ManifestKey: manifestKey, URLs: URLBuilder{Base: "https://audio.example.com"}})

	res, err := r.Resolve(context.Background(), defaultRequest())
	require.NoError(t, err)
	require.NotEmpty(t, res.Pairs)
	assert.Equal(t, "https://audio.example.com/r2/originals%2F01%20-%20Dawn.mp3", res.Pairs[0].OriginalURL)
}

func TestResolveManifestIsAuthoritative(t *testing.T) {
	s := newStore(t, library...)
	put(t, s, manifestKey, `{"pairs": [
		{"index": 7, "title": "Closer", "originalLabel": "A", "remixLabel": "B",
		 "originalUrl": "originals/zz extra.mp3", "remixUrl": "https://cdn.example.com/x.mp3"},
		{"originalUrl": "/r2/originals%2F01%20-%20Dawn.mp3", "remixUrl": "elsewhere/y.mp3"}
	]}`)
	r := NewResolver(s, Options{ManifestKey: manifestKey})

	res, err := r.Resolve(context.Background(), defaultRequest())
	require.NoError(t, err)

	assert.Equal(t, SourceManifest, res.Source)
	assert.Equal(t, []api.TrackPair{
		{
			Index: 7, Title: "Closer", OriginalLabel: "A", RemixLabel: "B",
			OriginalURL: "/r2/originals%2Fzz%20extra.mp3",
			RemixURL:    "https://cdn.example.com/x.mp3",
		},
		{
			Index: 1, Title: "", OriginalLabel: "Original", RemixLabel: "Remix",
			OriginalURL: "/r2/originals%2F01%20-%20Dawn.mp3",
			RemixURL:    "elsewhere/y.mp3",
		},
	}, res.Pairs)

	// New uploads do not change a stored pairs list.
	put(t, s, "originals/00 new.mp3", "x")
	put(t, s, "remixes/00 new remix.mp3", "x")
	again, err := r.Resolve(context.Background(), defaultRequest())
	require.NoError(t, err)
	assert.Equal(t, res.Pairs, again.Pairs)
}

func TestResolveForceAuto(t *testing.T) {
	s := newStore(t, library...)
	put(t, s, manifestKey, `{"pairs": [{"originalUrl": "a", "remixUrl": "b"}]}`)
	r := NewResolver(s, Options{ManifestKey: manifestKey})

	req := defaultRequest()
	req.ForceAuto = true
	res, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, SourceAuto, res.Source)
	assert.Len(t, res.Pairs, 2)
}

func TestResolveBanks(t *testing.T) {
	s := newStore(t, library...)
	put(t, s, manifestKey, `{
		"originals": ["originals/a.mp3", {"name": "X", "url": "https://cdn.example.com/x.mp3"}],
		"remixes": [{"name": "a", "url": "/r2/remixes%2Fa.mp3"}],
		"pairs": []
	}`)
	r := NewResolver(s, Options{ManifestKey: manifestKey})

	res, err := r.Resolve(context.Background(), defaultRequest())
	require.NoError(t, err)

	assert.Equal(t, SourceBanks, res.Source)
	assert.Equal(t, []api.TrackPair{{
		Index: 0, Title: "Track 01", OriginalLabel: "Original 01", RemixLabel: "Remix 01",
		OriginalURL: "/r2/originals%2Fa.mp3",
		RemixURL:    "/r2/remixes%2Fa.mp3",
	}}, res.Pairs)
}

func TestResolveUnusableManifestFallsBack(t *testing.T) {
	for name, doc := range map[string]string{
		"malformed":   `{"pairs": [`,
		"empty pairs": `{"pairs": []}`,
		"array":       `[1, 2]`,
		"bad entry":   `{"originals": [1], "remixes": []}`,
	} {
		t.Run(name, func(t *testing.T) {
			s := newStore(t, library...)
			put(t, s, manifestKey, doc)
			r := NewResolver(s, Options{ManifestKey: manifestKey})

			res, err := r.Resolve(context.Background(), defaultRequest())
			require.NoError(t, err)
			assert.Equal(t, SourceAuto, res.Source)
			assert.Len(t, res.Pairs, 2)
		})
	}
}

func TestResolveShuffle(t *testing.T) {
	keys := []string{}
	for _, n := range []string{"01", "02", "03", "04", "05", "06"} {
		keys = append(keys, "originals/"+n+" o.mp3", "remixes/"+n+" r.mp3")
	}
	s := newStore(t, keys...)

	plain, err := NewResolver(s, Options{ManifestKey: manifestKey}).Resolve(context.Background(), defaultRequest())
	require.NoError(t, err)

	r := NewResolver(s, Options{ManifestKey: manifestKey, Rand: rand.New(rand.NewPCG(7, 11))})
	req := defaultRequest()
	req.Shuffle = true
	shuffled, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)

	want := slices.Clone(plain.Pairs)
	rand.New(rand.NewPCG(7, 11)).Shuffle(len(want), func(i, j int) { want[i], want[j] = want[j], want[i] })
	for i := range want {
		want[i].Index = i
	}
	assert.Equal(t, want, shuffled.Pairs)
}

func TestResolveShuffleKeepsStoredIndex(t *testing.T) {
	s := newStore(t, library...)
	put(t, s, manifestKey, `{"pairs": [
		{"index": 10, "originalUrl": "originals/a.mp3", "remixUrl": "remixes/a.mp3"},
		{"index": 20, "originalUrl": "originals/b.mp3", "remixUrl": "remixes/b.mp3"},
		{"index": 30, "originalUrl": "originals/c.mp3", "remixUrl": "remixes/c.mp3"}
	]}`)
	r := NewResolver(s, Options{ManifestKey: manifestKey, Rand: rand.New(rand.NewPCG(3, 4))})

	req := defaultRequest()
	req.Shuffle = true
	res, err := r.Resolve(context.Background(), req)
	require.NoError(t, err)

	var idx []int
	for _, p := range res.Pairs {
		idx = append(idx, p.Index)
	}
	assert.ElementsMatch(t, []int{10, 20, 30}, idx)
}

func TestResolveManifestUsesConfiguredPrefixes(t *testing.T) {
	s := newStore(t, "lib/o/a.mp3", "lib/r/a.mp3")
	put(t, s, manifestKey, `{"pairs": [
		{"originalUrl": "lib/o/a.mp3", "remixUrl": "lib/r/a.mp3"},
		{"originalUrl": "originals/b.mp3", "remixUrl": "q/b.mp3"}
	]}`)
	r := NewResolver(s, Options{ManifestKey: manifestKey, OriginalsPrefix: "lib/o/", RemixesPrefix: "lib/r/"})

	// Request prefixes only steer auto mode.
	res, err := r.Resolve(context.Background(), Request{OriginalsPrefix: "q/", RemixesPrefix: "q/"})
	require.NoError(t, err)
	require.Equal(t, SourceManifest, res.Source)
	assert.Equal(t, "/r2/lib%2Fo%2Fa.mp3", res.Pairs[0].OriginalURL)
	assert.Equal(t, "/r2/lib%2Fr%2Fa.mp3", res.Pairs[0].RemixURL)
	assert.Equal(t, "originals/b.mp3", res.Pairs[1].OriginalURL)
	assert.Equal(t, "q/b.mp3", res.Pairs[1].RemixURL)
}

func TestGeneratorRoundTrip(t *testing.T) {
	s := newStore(t, library...)
	opts := Options{ManifestKey: manifestKey}
	g := NewGenerator(s, opts)

	m, err := g.Build(context.Background(), "originals/", "remixes/")
	require.NoError(t, err)
	require.Len(t, m.Pairs, 2)
	assert.Equal(t, []api.BankEntry{
		{Name: "01 - Dawn.mp3", URL: "/r2/originals%2F01%20-%20Dawn.mp3"},
		{Name: "Nightfall (Radio Edit).mp3", URL: m.Pairs[1].OriginalURL},
		{Name: "zz extra.mp3", URL: "/r2/originals%2Fzz%20extra.mp3"},
	}, m.Originals, "banks keep unpaired tracks")
	require.Len(t, m.Remixes, 2)
	assert.Equal(t, "nightfall remix.wav", m.Remixes[1].Name)
	assert.Equal(t, "Remix 02", m.Pairs[1].RemixLabel)

	n, err := g.Commit(context.Background(), m)
	require.NoError(t, err)

	stored, err := s.Stat(context.Background(), manifestKey)
	require.NoError(t, err)
	assert.Equal(t, int64(n), stored.Size)
	assert.Equal(t, "application/json", stored.ContentType)
	assert.Equal(t, "no-store", stored.CacheControl)

	res, err := NewResolver(s, opts).Resolve(context.Background(), defaultRequest())
	require.NoError(t, err)
	assert.Equal(t, SourceManifest, res.Source)
	assert.Equal(t, m.Pairs, res.Pairs)

	// A second commit replaces the first wholesale.
	_, err = g.Commit(context.Background(), api.Manifest{Pairs: m.Pairs[:1]})
	require.NoError(t, err)
	res, err = NewResolver(s, opts).Resolve(context.Background(), defaultRequest())
	require.NoError(t, err)
	assert.Equal(t, m.Pairs[:1], res.Pairs)
}

// flakyStore fails listings and optionally manifest reads.
type flakyStore struct {
	getErr  error
	listErr error
	keys    map[string][]string
}

func (f *flakyStore) ListPage(_ context.Context, prefix, _ string) (object.Page, error) {
	if f.listErr != nil {
		return object.Page{}, f.listErr
	}
	return object.Page{Keys: f.keys[prefix]}, nil
}

func (f *flakyStore) Get(context.Context, string, *object.Range) (object.Object, io.ReadCloser, error) {
	return object.Object{}, nil, f.getErr
}

func (f *flakyStore) Stat(context.Context, string) (object.Object, error) {
	return object.Object{}, f.getErr
}

func TestResolveListFailure(t *testing.T) {
	r := NewResolver(&flakyStore{getErr: object.ErrNotFound, listErr: errors.New("connection reset")}, Options{ManifestKey: manifestKey})

	res, err := r.Resolve(context.Background(), defaultRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, object.ErrUnavailable)
	assert.Empty(t, res.Pairs)
}

func TestResolveManifestReadFailureFallsBack(t *testing.T) {
	r := NewResolver(&flakyStore{
		getErr: object.ErrUnavailable,
		keys: map[string][]string{
			"originals/": {"originals/a.mp3"},
			"remixes/":   {"remixes/a remix.mp3"},
		},
	}, Options{ManifestKey: manifestKey})

	res, err := r.Resolve(context.Background(), defaultRequest())
	require.NoError(t, err)
	assert.Equal(t, SourceAuto, res.Source)
	require.Len(t, res.Pairs, 1)
	assert.Equal(t, "/r2/remixes%2Fa%20remix.mp3", res.Pairs[0].RemixURL)
}
