package playlist

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/Fwea-Go/remix-exp/internal/logger"
	"github.com/Fwea-Go/remix-exp/pkg/api"
	"github.com/Fwea-Go/remix-exp/pkg/object"
	"github.com/Fwea-Go/remix-exp/pkg/pairing"
)

// WriteStore is the part of the object store the generator needs.
type WriteStore interface {
	object.Lister
	object.Writer
}

// Generator builds manifest documents from the store listing and persists
// them under the manifest key.
type Generator struct {
	store       WriteStore
	manifestKey string
	urls        URLBuilder
	rules       *pairing.Rules
}

func NewGenerator(store WriteStore, opts Options) *Generator {
	rules := opts.Rules
	if rules == nil {
		rules = pairing.DefaultRules()
	}
	return &Generator{store: store, manifestKey: opts.ManifestKey, urls: opts.URLs, rules: rules}
}

// Key returns the object key Commit writes to.
func (g *Generator) Key() string { return g.manifestKey }

// Build snapshots the tracks under both prefixes. Banks list every track
// in natural order by file name, paired or not; pairs come from the
// pairing engine and carry generic labels.
func (g *Generator) Build(ctx context.Context, originalsPrefix, remixesPrefix string) (api.Manifest, error) {
	originals, remixes, err := listTracks(ctx, g.store, originalsPrefix, remixesPrefix)
	if err != nil {
		return api.Manifest{}, err
	}
	matches := pairTracks(ctx, g.rules, originals, remixes)

	m := api.Manifest{
		Originals: g.bank(originals),
		Remixes:   g.bank(remixes),
		Pairs:     make([]api.TrackPair, len(matches)),
	}
	for i, match := range matches {
		m.Pairs[i] = genericPair(i, g.urls.ProxyURL(match.Original), g.urls.ProxyURL(match.Remix))
	}
	return m, nil
}

func (g *Generator) bank(keys []string) []api.BankEntry {
	keys = slices.Clone(keys)
	pairing.NaturalSort(keys)
	out := make([]api.BankEntry, len(keys))
	for i, k := range keys {
		out[i] = api.BankEntry{Name: object.BaseName(k), URL: g.urls.ProxyURL(k)}
	}
	return out
}

// Commit replaces the stored manifest with m and returns the number of bytes
// written. Concurrent commits are last-write-wins.
func (g *Generator) Commit(ctx context.Context, m api.Manifest) (int, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("playlist: encode manifest: %w", err)
	}
	_, err = g.store.Put(ctx, g.manifestKey, bytes.NewReader(data), int64(len(data)), object.PutOptions{
		ContentType:  "application/json",
		CacheControl: "no-store",
	})
	if err != nil {
		return 0, fmt.Errorf("playlist: write manifest %q: %w", g.manifestKey, err)
	}
	logger.Ctx(ctx).Info().Str("key", g.manifestKey).Int("bytes", len(data)).Int("pairs", len(m.Pairs)).Msg("manifest written")
	return len(data), nil
}
