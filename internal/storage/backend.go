// Package storage selects the snapshot backend named by configuration.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"hostaway_reviews/internal/domain"
	"hostaway_reviews/internal/shared"
	"hostaway_reviews/internal/storage/file"
	mysqlrepo "hostaway_reviews/internal/storage/mysql"
)

// Open returns the configured SnapshotStore and a closer for its resources.
func Open(ctx context.Context, cfg shared.Config) (domain.SnapshotStore, func() error, error) {
	switch cfg.StoreBackend {
	case "", "file":
		log.Info().Str("path", cfg.DBFile).Msg("using file snapshot store")
		return file.New(cfg.DBFile), func() error { return nil }, nil

	case "mysql":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pctx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("db.Ping: %w", err)
		}
		log.Info().Msg("database connection ok")
		return mysqlrepo.New(db), db.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}
