// Package storage picks the ReviewStore implementation named by configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
	"flex_reviews/internal/shared"
	"flex_reviews/internal/storage/memory"
	mysqlrepo "flex_reviews/internal/storage/mysql"
	"flex_reviews/internal/storage/postgres"
)

// Open connects to the configured store. On success the returned close func
// releases the underlying connections and is never nil.
func Open(ctx context.Context, cfg shared.Config) (domain.ReviewStore, func(), error) {
	switch cfg.StoreDriver {
	case "mysql", "":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("mysql ping: %w", err)
		}
		log.Info().Str("driver", "mysql").Msg("database connection ok")
		return mysqlrepo.New(db), func() { _ = db.Close() }, nil

	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN, int32(cfg.PGMaxConns), "15m")
		if err != nil {
			return nil, nil, fmt.Errorf("postgres pool: %w", err)
		}
		log.Info().Str("driver", "postgres").Msg("database connection ok")
		return postgres.New(pool), pool.Close, nil

	case "memory":
		log.Warn().Msg("using in-memory store; data is lost on exit")
		return memory.New(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}
