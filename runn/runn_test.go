package runn

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/k1LoW/runn"

	"github.com/stsysd/dosesim/api"
	"github.com/stsysd/dosesim/config"
	"github.com/stsysd/dosesim/metrics"
	"github.com/stsysd/dosesim/seed"
	"github.com/stsysd/dosesim/store"
)

const testAPIKey = "test-token"

func TestRouter(t *testing.T) {
	cfg := config.Default()
	cfg.DataDir = t.TempDir()
	cfg.APIKey = testAPIKey

	// SQLiteストアの初期化（埋め込みスキーマでマイグレーション）
	sqliteStore, err := store.NewSQLiteStore(cfg.DataDir, nil)
	if err != nil {
		t.Fatalf("Failed to initialize SQLite store: %v", err)
	}
	defer sqliteStore.Close()

	ctx := context.Background()

	// 組み込みカタログの投入
	subs, err := seed.Builtin()
	if err != nil {
		t.Fatalf("Failed to load builtin catalog: %v", err)
	}
	if _, err := seed.NewSeeder(sqliteStore, nil).Seed(ctx, subs); err != nil {
		t.Fatalf("Failed to seed store: %v", err)
	}

	// サーバーインスタンスの作成
	server := api.NewServer(sqliteStore, cfg, api.WithMetrics(metrics.New()))

	ts := httptest.NewServer(server)
	t.Cleanup(func() {
		ts.Close()
	})
	opts := []runn.Option{
		runn.T(t),
		runn.Runner("req", ts.URL),
		runn.Var("api_key", testAPIKey),
	}
	o, err := runn.Load("./testdata/*.yml", opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := o.RunN(ctx); err != nil {
		t.Fatal(err)
	}
}
