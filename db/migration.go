// Package db はデータベーススキーマとマイグレーションを提供します。
package db

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"
)

//go:embed schema/*.sql
var embedMigrations embed.FS

// goose のダイアレクト名
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// Migrate はデータベースに対してマイグレーションを実行します。
func Migrate(conn *sql.DB, dialect string) error {
	if dialect == DialectSQLite {
		// 外部キー制約を有効化
		if _, err := conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
			return fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	// goose の設定
	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	// マイグレーションを実行
	if err := goose.Up(conn, "schema"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Version は適用済みのスキーマバージョンを返します。
func Version(conn *sql.DB, dialect string) (int64, error) {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(dialect); err != nil {
		return 0, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	v, err := goose.GetDBVersion(conn)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}
