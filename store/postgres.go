package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // database/sql ドライバ "pgx" を登録

	"github.com/stsysd/dosesim/config"
	"github.com/stsysd/dosesim/db"
)

// NewPostgresStore はPostgreSQL版のSQLStoreを作成します。
// migrateがnilの場合は埋め込みスキーマのマイグレーションを実行します。
func NewPostgresStore(ctx context.Context, dsn string, migrate MigrateFunc) (*SQLStore, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if migrate == nil {
		migrate = func(conn *sql.DB) error { return db.Migrate(conn, db.DialectPostgres) }
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database tables: %w", err)
	}

	return &SQLStore{conn: conn, dialect: db.DialectPostgres}, nil
}

// Open は設定に応じてSQLiteまたはPostgreSQLのストアを開きます。
func Open(ctx context.Context, cfg *config.Config) (*SQLStore, error) {
	if cfg.UsePostgres() {
		return NewPostgresStore(ctx, cfg.DatabaseURL, nil)
	}
	return NewSQLiteStore(cfg.DataDir, nil)
}
