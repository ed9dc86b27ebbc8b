// Package api holds the JSON documents exchanged with the HTTP service.
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TrackPair is one original/remix pair as served to players. Index is the
// pair's position in the served sequence, except for pairs from a stored
// pairs manifest, which keep the index they were saved with.
type TrackPair struct {
	Index         int    `json:"index"`
	Title         string `json:"title"`
	OriginalLabel string `json:"originalLabel"`
	RemixLabel    string `json:"remixLabel"`
	OriginalURL   string `json:"originalUrl"`
	RemixURL      string `json:"remixUrl"`
}

// BankEntry is one track in a manifest bank. Stored manifests may hold a
// bare URL string instead of an object; both decode into BankEntry.
type BankEntry struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

func (b *BankEntry) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*b = BankEntry{URL: s}
		return nil
	}
	if len(data) == 0 || data[0] != '{' {
		return fmt.Errorf("api: bank entry must be a string or object, got %s", data)
	}
	type plain BankEntry
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*b = BankEntry(p)
	return nil
}

// Manifest is the stored playlist document. A non-empty Pairs is
// authoritative over the banks.
type Manifest struct {
	Originals []BankEntry `json:"originals"`
	Remixes   []BankEntry `json:"remixes"`
	Pairs     []TrackPair `json:"pairs"`
}

// Endpoint: /playlist
type PlaylistResponse struct {
	Pairs []TrackPair `json:"pairs"`
}

// Endpoint: /playlist/generate
type GenerateResponse struct {
	Wrote    bool     `json:"wrote"`
	DryRun   *bool    `json:"dryrun,omitempty"`
	Key      string   `json:"key,omitempty"`
	Bytes    int      `json:"bytes,omitempty"`
	Manifest Manifest `json:"manifest"`
}

// Endpoint: /health
type HealthResponse struct {
	OK bool `json:"ok"`
	R2 bool `json:"r2"`
}

// Endpoint: /
type IndexResponse struct {
	OK        bool     `json:"ok"`
	Endpoints []string `json:"endpoints"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Endpoint: /storage/upload
type UploadResponse struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
	ETag string `json:"etag,omitempty"`
}

// Endpoint: /storage/list
type LibraryResponse struct {
	Originals []string `json:"originals"`
	Remixes   []string `json:"remixes"`
}
