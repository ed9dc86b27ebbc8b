package server

import (
	"context"
	"fmt"

	"github.com/Fwea-Go/remix-exp/internal/config"
	"github.com/Fwea-Go/remix-exp/internal/logger"
	"github.com/Fwea-Go/remix-exp/pkg/object"
	"github.com/Fwea-Go/remix-exp/pkg/r2"
	"github.com/Fwea-Go/remix-exp/pkg/sqlite"
)

// OpenStore initializes the configured object store. An empty driver
// returns a nil store and no error.
func OpenStore(ctx context.Context, cfg config.Store) (object.ObjectStorage, error) {
	var (
		store object.ObjectStorage
		param any
	)
	switch cfg.Driver {
	case "":
		return nil, nil
	case config.DriverR2:
		logger.Info().Str("bucket", cfg.R2.Bucket).Msg("using R2 as object storage backend")
		store = &r2.Storage{}
		param = r2.Config{
			AccountID:        cfg.R2.AccountID,
			AccessKey:        cfg.R2.AccessKey,
			SecretAccessKey:  cfg.R2.SecretAccessKey,
			Bucket:           cfg.R2.Bucket,
			EndpointOverride: cfg.R2.Endpoint,
		}
	case config.DriverSQLite:
		logger.Info().Str("driver", cfg.SQLite.Driver).Msg("using SQLite as object storage backend")
		store = &sqlite.Storage{}
		param = sqlite.Config{
			Source:         cfg.SQLite.Source,
			Driver:         cfg.SQLite.Driver,
			AllowOverwrite: true,
		}
	default:
		return nil, fmt.Errorf("server: unknown store driver %q", cfg.Driver)
	}
	if err := store.Init(ctx, param); err != nil {
		return nil, fmt.Errorf("server: open %s store: %w", cfg.Driver, err)
	}
	return store, nil
}
