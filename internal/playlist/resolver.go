// Package playlist resolves the ordered list of original/remix pairs served
// to players and generates the stored manifest document.
package playlist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"

	"github.com/Fwea-Go/remix-exp/internal/logger"
	"github.com/Fwea-Go/remix-exp/internal/metrics"
	"github.com/Fwea-Go/remix-exp/pkg/api"
	"github.com/Fwea-Go/remix-exp/pkg/object"
	"github.com/Fwea-Go/remix-exp/pkg/pairing"

	"golang.org/x/sync/errgroup"
)

// maxManifestSize bounds how much of a stored manifest is read.
const maxManifestSize = 16 << 20

// Default bank prefixes.
const (
	DefaultOriginalsPrefix = "originals/"
	DefaultRemixesPrefix   = "remixes/"
)

// Source reports where a resolved playlist came from.
type Source string

const (
	SourceManifest Source = "manifest"
	SourceBanks    Source = "banks"
	SourceAuto     Source = "auto"
)

// Store is the part of the object store the resolver reads from.
type Store interface {
	object.Lister
	object.Reader
}

// Options configures a Resolver or Generator.
type Options struct {
	// ManifestKey is the object key of the stored manifest.
	ManifestKey string
	URLs        URLBuilder
	// OriginalsPrefix and RemixesPrefix are the configured banks. Raw keys
	// under them in a stored manifest are rewritten to proxy URLs. Empty
	// values fall back to DefaultOriginalsPrefix and DefaultRemixesPrefix.
	OriginalsPrefix string
	RemixesPrefix   string
	// Rules overrides the pairing policy. Nil means pairing.DefaultRules.
	Rules *pairing.Rules
	// Rand drives shuffling. Nil uses the global source.
	Rand *rand.Rand
}

// Request selects the banks to pair and how to return them. The prefixes
// only drive auto mode; stored manifests are read against Options.
type Request struct {
	OriginalsPrefix string
	RemixesPrefix   string
	// ForceAuto skips the stored manifest.
	ForceAuto bool
	Shuffle   bool
}

type Result struct {
	Pairs  []api.TrackPair
	Source Source
}

// Resolver produces playlists from the stored manifest or, failing that,
// from the store listing.
type Resolver struct {
	store       Store
	manifestKey string
	urls        URLBuilder
	known       []string
	rules       *pairing.Rules
	rand        shuffler
}

func NewResolver(store Store, opts Options) *Resolver {
	rules := opts.Rules
	if rules == nil {
		rules = pairing.DefaultRules()
	}
	return &Resolver{
		store:       store,
		manifestKey: opts.ManifestKey,
		urls:        opts.URLs,
		known:       opts.knownPrefixes(),
		rules:       rules,
		rand:        newShuffler(opts.Rand),
	}
}

func (o Options) knownPrefixes() []string {
	op, rp := o.OriginalsPrefix, o.RemixesPrefix
	if op == "" {
		op = DefaultOriginalsPrefix
	}
	if rp == "" {
		rp = DefaultRemixesPrefix
	}
	return []string{op, rp}
}

// Resolve returns the playlist for req. A stored manifest with pairs is
// returned in stored order; one with only banks is paired by position;
// anything else falls back to pairing the listed keys.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Result, error) {
	log := logger.Ctx(ctx)

	var res Result
	if !req.ForceAuto {
		if d, ok := r.readManifest(ctx); ok {
			switch d.Kind {
			case KindPairs:
				res = Result{Pairs: r.normalizePairs(d.Pairs), Source: SourceManifest}
			case KindBanks:
				res = Result{Pairs: r.pairBanks(d.Originals, d.Remixes), Source: SourceBanks}
			default:
				log.Debug().Err(d.Err).Str("key", r.manifestKey).Msg("ignoring unusable manifest")
			}
		}
	}

	if res.Source == "" {
		matches, err := ListAndPair(ctx, r.store, r.rules, req.OriginalsPrefix, req.RemixesPrefix)
		if err != nil {
			return Result{}, err
		}
		res = Result{Pairs: make([]api.TrackPair, len(matches)), Source: SourceAuto}
		for i, m := range matches {
			res.Pairs[i] = genericPair(i, r.urls.ProxyURL(m.Original), r.urls.ProxyURL(m.Remix))
		}
	}

	if req.Shuffle {
		shufflePairs(r.rand, res.Pairs)
		// Generated pairs are numbered by their served position. Stored
		// pairs keep the index they were saved with.
		if res.Source != SourceManifest {
			renumber(res.Pairs)
		}
	}
	metrics.PlaylistResolutionsTotal.WithLabelValues(string(res.Source)).Inc()
	log.Debug().Str("source", string(res.Source)).Int("pairs", len(res.Pairs)).Bool("shuffle", req.Shuffle).Msg("playlist resolved")
	return res, nil
}

// readManifest loads and decodes the stored manifest. It reports false when
// there is nothing to decode; read failures are logged and treated the same.
func (r *Resolver) readManifest(ctx context.Context) (Decoded, bool) {
	log := logger.Ctx(ctx)

	_, body, err := r.store.Get(ctx, r.manifestKey, nil)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			log.Debug().Str("key", r.manifestKey).Msg("no stored manifest")
		} else {
			log.Warn().Err(err).Str("key", r.manifestKey).Msg("reading manifest failed, using auto mode")
		}
		return Decoded{}, false
	}
	defer body.Close()

	data, err := io.ReadAll(io.LimitReader(body, maxManifestSize))
	if err != nil {
		log.Warn().Err(err).Str("key", r.manifestKey).Msg("reading manifest body failed, using auto mode")
		return Decoded{}, false
	}
	return Decode(data), true
}

func (r *Resolver) normalizePairs(pairs []api.TrackPair) []api.TrackPair {
	out := make([]api.TrackPair, len(pairs))
	for i, p := range pairs {
		p.OriginalURL = r.urls.Normalize(p.OriginalURL, r.known...)
		p.RemixURL = r.urls.Normalize(p.RemixURL, r.known...)
		out[i] = p
	}
	return out
}

func (r *Resolver) pairBanks(originals, remixes []api.BankEntry) []api.TrackPair {
	n := min(len(originals), len(remixes))
	out := make([]api.TrackPair, n)
	for i := range n {
		out[i] = genericPair(i,
			r.urls.Normalize(originals[i].URL, r.known...),
			r.urls.Normalize(remixes[i].URL, r.known...),
		)
	}
	return out
}

// ListAndPair lists both prefixes concurrently, drops directory markers and
// runs the pairing engine.
func ListAndPair(ctx context.Context, l object.Lister, rules *pairing.Rules, originalsPrefix, remixesPrefix string) ([]pairing.Match, error) {
	originals, remixes, err := listTracks(ctx, l, originalsPrefix, remixesPrefix)
	if err != nil {
		return nil, err
	}
	return pairTracks(ctx, rules, originals, remixes), nil
}

// listTracks returns the track keys under both prefixes, without directory
// markers.
func listTracks(ctx context.Context, l object.Lister, originalsPrefix, remixesPrefix string) ([]string, []string, error) {
	var originals, remixes []string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		keys, err := object.ListKeys(gctx, l, originalsPrefix)
		originals = keys
		return err
	})
	g.Go(func() error {
		keys, err := object.ListKeys(gctx, l, remixesPrefix)
		remixes = keys
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("playlist: list tracks: %w", err)
	}
	return dropDirMarkers(originals), dropDirMarkers(remixes), nil
}

func pairTracks(ctx context.Context, rules *pairing.Rules, originals, remixes []string) []pairing.Match {
	matches := rules.Pair(originals, remixes)
	for _, m := range matches {
		metrics.PairsTotal.WithLabelValues(m.Phase.String()).Inc()
	}
	logger.Ctx(ctx).Debug().
		Int("originals", len(originals)).
		Int("remixes", len(remixes)).
		Int("pairs", len(matches)).
		Msg("paired listed tracks")
	return matches
}

func dropDirMarkers(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if !object.IsDirMarker(k) {
			out = append(out, k)
		}
	}
	return out
}

// genericPair builds a pair whose labels do not reveal file names.
func genericPair(i int, originalURL, remixURL string) api.TrackPair {
	n := fmt.Sprintf("%02d", i+1)
	return api.TrackPair{
		Index:         i,
		Title:         "Track " + n,
		OriginalLabel: "Original " + n,
		RemixLabel:    "Remix " + n,
		OriginalURL:   originalURL,
		RemixURL:      remixURL,
	}
}
