// README: Postgres connection pool initialization using pgxpool, with sql-migrate migrations.
package infra

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	migrate "github.com/rubenv/sql-migrate"

	"dispatch/internal/config"
)

func NewDB(ctx context.Context, cfg config.Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	if cfg.DB.DSN == "" {
		return nil, errors.New("database DSN is empty")
	}
	if cfg.DB.RunMigrations {
		n, err := Migrate(ctx, cfg.DB.DSN, cfg.DB.MigrationsDir)
		if err != nil {
			return nil, fmt.Errorf("running migrations: %w", err)
		}
		if n > 0 {
			log.Info().Int("applied", n).Msg("migrations executed")
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns
	poolCfg.MaxConnIdleTime = cfg.DB.MaxConnIdleTime
	if poolCfg.ConnConfig.RuntimeParams == nil {
		poolCfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.AppName
	poolCfg.ConnConfig.RuntimeParams["timezone"] = "UTC"

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// Migrate applies pending migrations from dir and returns how many ran.
func Migrate(ctx context.Context, dsn, dir string) (int, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return 0, fmt.Errorf("opening sql connection: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return 0, fmt.Errorf("ping database: %w", err)
	}
	return migrate.ExecContext(ctx, db, "postgres", &migrate.FileMigrationSource{Dir: dir}, migrate.Up)
}
