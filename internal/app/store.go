package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/evgeniyfimushkin/event-planner/internal/config"
	"github.com/evgeniyfimushkin/event-planner/internal/credentials"
	"github.com/evgeniyfimushkin/event-planner/internal/credentials/file"
	credredis "github.com/evgeniyfimushkin/event-planner/internal/credentials/redis"
	"github.com/evgeniyfimushkin/event-planner/internal/credentials/sqlite"
)

// OpenStore открывает хранилище учётных данных сайта по конфигурации.
// Возвращаемый io.Closer (может быть nil) закрывает ресурсы драйвера.
func OpenStore(ctx context.Context, cfg config.StoreConfig, site string) (credentials.Store, io.Closer, error) {
	const op = "app.OpenStore"

	switch cfg.Driver {
	case config.DriverMemory:
		return credentials.NewMemory().Site(site), nil, nil

	case config.DriverFile:
		path, err := cfg.FilePath()
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		s, err := file.New(path, site)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		return s, nil, nil

	case config.DriverSQLite:
		path, err := cfg.FilePath()
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		if path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
				return nil, nil, fmt.Errorf("%s: %w", op, err)
			}
		}
		db, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		return db.Site(site), db, nil

	case config.DriverRedis:
		c, err := credredis.New(ctx, cfg.RedisURL, cfg.Prefix, cfg.TTL)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", op, err)
		}
		return c.Site(site), c, nil

	default:
		return nil, nil, fmt.Errorf("%s: %w: %q", op, config.ErrUnknownDriver, cfg.Driver)
	}
}
