// Package config loads service settings from a .env file, the environment
// and command-line flags.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gnitoahc/go-dotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverR2     = "r2"
	DriverSQLite = "sqlite"
)

// R2 holds Cloudflare R2 credentials.
type R2 struct {
	AccountID       string
	AccessKey       string
	SecretAccessKey string
	Bucket          string
	Endpoint        string
}

// SQLite holds the local object store settings.
type SQLite struct {
	Source string
	Driver string
}

// Store selects and configures the object store. An empty Driver leaves the
// service without a store.
type Store struct {
	Driver string
	R2     R2
	SQLite SQLite
}

type Config struct {
	Addr  string
	Store Store

	AdminToken     string
	AdminTokenHash string

	OriginalsPrefix string
	RemixesPrefix   string
	ManifestKey     string
	PublicBaseURL   string

	ProxyTimeout time.Duration
	LogLevel     string
}

var envBindings = map[string][]string{
	"addr":                {"ADDR"},
	"store.driver":        {"OBJECT_BACKEND_DRIVER", "STORE_DRIVER"},
	"store.r2.account_id": {"CF_ACCOUNT_ID"},
	"store.r2.access_key": {"CF_ACCESS_KEY"},
	"store.r2.secret_key": {"CF_SECRET_ACCESS_KEY"},
	"store.r2.bucket":     {"CF_BUCKET"},
	"store.r2.endpoint":   {"CF_ENDPOINT"},
	"store.sqlite.source": {"OBJECT_STORAGE_SOURCE"},
	"store.sqlite.driver": {"OBJECT_STORAGE_DRIVER"},
	"admin_token":         {"ADMIN_TOKEN", "PLAYLIST_WRITE_TOKEN"},
	"admin_token_hash":    {"ADMIN_TOKEN_HASH"},
	"originals_prefix":    {"ORIGINALS_PREFIX"},
	"remixes_prefix":      {"REMIXES_PREFIX"},
	"manifest_key":        {"MANIFEST_KEY"},
	"public_base_url":     {"PUBLIC_BASE_URL"},
	"proxy_timeout":       {"PROXY_TIMEOUT"},
	"log_level":           {"LOG_LEVEL"},
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("addr", ":3000")
	v.SetDefault("store.driver", "")
	v.SetDefault("store.sqlite.source", "file:objects.db?cache=shared")
	v.SetDefault("store.sqlite.driver", "sqlite")
	v.SetDefault("originals_prefix", "originals/")
	v.SetDefault("remixes_prefix", "remixes/")
	v.SetDefault("manifest_key", "playlist.json")
	v.SetDefault("proxy_timeout", 60*time.Second)
	v.SetDefault("log_level", "info")
}

// Flags declares the serve flags. Flag names match the viper keys so
// BindFlags can wire them directly.
func Flags(fs *pflag.FlagSet) {
	fs.String("addr", ":3000", "Listen address")
	fs.String("store.driver", "", "Object store driver: r2, sqlite or empty for none")
	fs.String("store.sqlite.source", "file:objects.db?cache=shared", "SQLite object store DSN")
	fs.String("originals_prefix", "originals/", "Key prefix of original tracks")
	fs.String("remixes_prefix", "remixes/", "Key prefix of remixed tracks")
	fs.String("manifest_key", "playlist.json", "Object key of the stored manifest")
	fs.String("public_base_url", "", "Absolute base for generated track URLs")
	fs.Duration("proxy_timeout", 60*time.Second, "Upstream timeout for /audio")
	fs.String("log_level", "info", "Log level")
}

// Load reads envFile (if present), binds environment variables and fs onto
// a fresh viper instance and returns the resulting Config. fs may be nil.
func Load(envFile string, fs *pflag.FlagSet) (Config, error) {
	if envFile != "" {
		dotenv.Load(envFile)
	}

	v := viper.New()
	SetDefaults(v)
	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return Config{}, fmt.Errorf("config: bind %s: %w", key, err)
		}
	}
	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return Config{}, fmt.Errorf("config: bind flags: %w", err)
		}
	}
	return FromViper(v), nil
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) Config {
	return Config{
		Addr: v.GetString("addr"),
		Store: Store{
			Driver: strings.ToLower(strings.TrimSpace(v.GetString("store.driver"))),
			R2: R2{
				AccountID:       v.GetString("store.r2.account_id"),
				AccessKey:       v.GetString("store.r2.access_key"),
				SecretAccessKey: v.GetString("store.r2.secret_key"),
				Bucket:          v.GetString("store.r2.bucket"),
				Endpoint:        v.GetString("store.r2.endpoint"),
			},
			SQLite: SQLite{
				Source: v.GetString("store.sqlite.source"),
				Driver: v.GetString("store.sqlite.driver"),
			},
		},
		AdminToken:      v.GetString("admin_token"),
		AdminTokenHash:  v.GetString("admin_token_hash"),
		OriginalsPrefix: v.GetString("originals_prefix"),
		RemixesPrefix:   v.GetString("remixes_prefix"),
		ManifestKey:     v.GetString("manifest_key"),
		PublicBaseURL:   strings.TrimSuffix(v.GetString("public_base_url"), "/"),
		ProxyTimeout:    v.GetDuration("proxy_timeout"),
		LogLevel:        v.GetString("log_level"),
	}
}

// Validate reports settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case "":
	case DriverR2:
		missing := []string{}
		for name, val := range map[string]string{
			"CF_ACCOUNT_ID":        c.Store.R2.AccountID,
			"CF_ACCESS_KEY":        c.Store.R2.AccessKey,
			"CF_SECRET_ACCESS_KEY": c.Store.R2.SecretAccessKey,
			"CF_BUCKET":            c.Store.R2.Bucket,
		} {
			if val == "" {
				missing = append(missing, name)
			}
		}
		if len(missing) > 0 {
			slices.Sort(missing)
			errs = append(errs, fmt.Errorf("r2 store requires %s", strings.Join(missing, ", ")))
		}
	case DriverSQLite:
		if c.Store.SQLite.Source == "" {
			errs = append(errs, errors.New("sqlite store requires a source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	if c.OriginalsPrefix == "" || c.RemixesPrefix == "" {
		errs = append(errs, errors.New("originals and remixes prefixes must be set"))
	} else if c.OriginalsPrefix == c.RemixesPrefix {
		errs = append(errs, errors.New("originals and remixes prefixes must differ"))
	}
	if c.ManifestKey == "" {
		errs = append(errs, errors.New("manifest key must be set"))
	}
	if c.PublicBaseURL != "" {
		u, err := url.Parse(c.PublicBaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("public base url %q is not absolute", c.PublicBaseURL))
		}
	}
	if c.ProxyTimeout <= 0 {
		errs = append(errs, errors.New("proxy timeout must be positive"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
