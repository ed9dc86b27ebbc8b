package playlist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Fwea-Go/remix-exp/pkg/api"
)

// Kind classifies a stored manifest document.
type Kind int

const (
	// KindInvalid means the document cannot be used and auto mode applies.
	KindInvalid Kind = iota
	// KindPairs means the document carries an authoritative pairs list.
	KindPairs
	// KindBanks means the document only carries original and remix banks.
	KindBanks
)

func (k Kind) String() string {
	switch k {
	case KindPairs:
		return "pairs"
	case KindBanks:
		return "banks"
	default:
		return "invalid"
	}
}

// Decoded is the typed result of reading a manifest document. Err explains
// a KindInvalid result. Pairs have defaults filled in but URLs are left as
// stored.
type Decoded struct {
	Kind      Kind
	Pairs     []api.TrackPair
	Originals []api.BankEntry
	Remixes   []api.BankEntry
	Err       error
}

// storedPair keeps track of which TrackPair fields were present so defaults
// apply only to missing ones.
type storedPair struct {
	Index         *int    `json:"index"`
	Title         *string `json:"title"`
	OriginalLabel *string `json:"originalLabel"`
	RemixLabel    *string `json:"remixLabel"`
	OriginalURL   string  `json:"originalUrl"`
	RemixURL      string  `json:"remixUrl"`
}

func (p storedPair) withDefaults(pos int) api.TrackPair {
	tp := api.TrackPair{
		Index:         pos,
		OriginalLabel: "Original",
		RemixLabel:    "Remix",
		OriginalURL:   p.OriginalURL,
		RemixURL:      p.RemixURL,
	}
	if p.Index != nil {
		tp.Index = *p.Index
	}
	if p.Title != nil {
		tp.Title = *p.Title
	}
	if p.OriginalLabel != nil && *p.OriginalLabel != "" {
		tp.OriginalLabel = *p.OriginalLabel
	}
	if p.RemixLabel != nil && *p.RemixLabel != "" {
		tp.RemixLabel = *p.RemixLabel
	}
	return tp
}

var errNotObject = errors.New("manifest is not a JSON object")

// Decode parses a stored manifest. It never fails; unusable documents come
// back as KindInvalid.
func Decode(data []byte) Decoded {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return invalid(err)
	}
	if raw == nil {
		return invalid(errNotObject)
	}

	if isArray(raw["pairs"]) {
		var pairs []storedPair
		if err := json.Unmarshal(raw["pairs"], &pairs); err != nil {
			return invalid(fmt.Errorf("pairs: %w", err))
		}
		if len(pairs) > 0 {
			out := make([]api.TrackPair, len(pairs))
			for i, p := range pairs {
				out[i] = p.withDefaults(i)
			}
			return Decoded{Kind: KindPairs, Pairs: out}
		}
	}

	if isArray(raw["originals"]) && isArray(raw["remixes"]) {
		var d Decoded
		if err := json.Unmarshal(raw["originals"], &d.Originals); err != nil {
			return invalid(fmt.Errorf("originals: %w", err))
		}
		if err := json.Unmarshal(raw["remixes"], &d.Remixes); err != nil {
			return invalid(fmt.Errorf("remixes: %w", err))
		}
		d.Kind = KindBanks
		return d
	}
	return invalid(errors.New("manifest has neither pairs nor banks"))
}

func invalid(err error) Decoded {
	return Decoded{Kind: KindInvalid, Err: fmt.Errorf("playlist: decode manifest: %w", err)}
}

func isArray(m json.RawMessage) bool {
	m = bytes.TrimSpace(m)
	return len(m) > 0 && m[0] == '['
}
