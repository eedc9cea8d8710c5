// Package archive は保存済みシミュレーションを書き込み専用のJSONとして保管します。
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"

	"github.com/stsysd/dosesim/config"
	"github.com/stsysd/dosesim/model"
)

// ErrExists は同じキーのアーカイブが既に存在する場合のエラーです。
var ErrExists = errors.New("archive already exists")

const (
	DriverFS = "fs"
	DriverS3 = "s3"
)

// Store はシミュレーション結果のアーカイブ先です。
type Store interface {
	// Put はシミュレーションをJSONで保存し、保存先のキーを返します。
	// 同じシミュレーションを2回保存するとErrExistsを返します。
	Put(ctx context.Context, sim *model.Simulation) (string, error)
	Driver() string
}

// Key はシミュレーションの保存先キーを返します。作成日 (UTC) ごとに分かれます。
func Key(sim *model.Simulation) string {
	return path.Join("simulations", sim.CreatedAt.UTC().Format("2006/01/02"), sim.ID.String()+".json")
}

func encode(sim *model.Simulation) ([]byte, error) {
	data, err := json.MarshalIndent(sim, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode simulation: %w", err)
	}
	return data, nil
}

// OpenFromConfig は設定に従ってアーカイブを開きます。
// Driverが空の場合はアーカイブ無効としてnilを返します。
func OpenFromConfig(ctx context.Context, cfg config.ArchiveConfig) (Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case DriverFS:
		return NewFSStore(cfg.Dir)
	case DriverS3:
		return NewS3Store(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown archive driver: %s", cfg.Driver)
	}
}
