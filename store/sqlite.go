// Package store は、データの永続化機能を提供します。
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/stsysd/dosesim/db"
)

// SQLiteFile はデータディレクトリ内のデータベースファイル名です。
const SQLiteFile = "dosesim.db"

// NewSQLiteStore は新しいSQLite版のSQLStoreを作成します。
// migrateがnilの場合は埋め込みスキーマのマイグレーションを実行します。
func NewSQLiteStore(dataDir string, migrate MigrateFunc) (*SQLStore, error) {
	// データディレクトリの作成（存在しない場合）
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// SQLiteデータベースファイルのパス
	dbPath := filepath.Join(dataDir, SQLiteFile)

	// SQLiteデータベースへの接続
	conn, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000", dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite database: %w", err)
	}
	// 書き込みの競合を避けるため接続は1本に絞る
	conn.SetMaxOpenConns(1)

	if migrate == nil {
		migrate = func(conn *sql.DB) error { return db.Migrate(conn, db.DialectSQLite) }
	}
	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize database tables: %w", err)
	}

	return &SQLStore{conn: conn, dialect: db.DialectSQLite}, nil
}
