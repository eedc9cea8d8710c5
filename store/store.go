// Package store は、データの永続化機能を提供します。
package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/stsysd/dosesim/model"
)

// SubstanceStore は物質カタログの保存と取得を行うインターフェースです。
type SubstanceStore interface {
	// UpsertSubstance は名前をキーに物質を作成または更新します。
	// 既存の物質を更新した場合、substanceのIDと作成日時は既存のものに置き換わります。
	UpsertSubstance(ctx context.Context, substance *model.Substance) (created bool, err error)
	// UpsertSubstances は複数の物質をまとめて作成または更新します。
	// 結果は入力と同じ順で、作成した場合にtrueです。失敗した場合は何も書き込みません。
	UpsertSubstances(ctx context.Context, substances []*model.Substance) (created []bool, err error)
	// GetSubstance は指定されたIDの物質を取得します。
	GetSubstance(ctx context.Context, id uuid.UUID) (*model.Substance, error)
	// GetSubstanceByName は指定された名前の物質を取得します。
	GetSubstanceByName(ctx context.Context, name string) (*model.Substance, error)
	// ListSubstances はすべての物質を名前順に取得します。
	ListSubstances(ctx context.Context) ([]*model.Substance, error)
}

// SimulationStore はシミュレーション結果の保存と取得を行うインターフェースです。
type SimulationStore interface {
	// CreateSimulation は新しいシミュレーション結果を保存します。
	CreateSimulation(ctx context.Context, simulation *model.Simulation) error
	// GetSimulation はタイムラインを含むシミュレーション結果を取得します。
	GetSimulation(ctx context.Context, id uuid.UUID) (*model.Simulation, error)
	// ListSimulations は新しい順にシミュレーション結果を取得します。タイムラインは含みません。
	ListSimulations(ctx context.Context, params ListSimulationsParams) ([]*model.Simulation, error)
	// DeleteSimulation は指定されたIDのシミュレーション結果を削除します。
	DeleteSimulation(ctx context.Context, id uuid.UUID) error
}

// Store はアプリケーションが使うすべての永続化操作をまとめたインターフェースです。
type Store interface {
	SubstanceStore
	SimulationStore
	// Close はストアの接続を閉じます。
	Close() error
}

// ListSimulationsParams はシミュレーション一覧の取得条件です。
type ListSimulationsParams struct {
	// nilの場合はすべての物質
	SubstanceID *uuid.UUID
	// nilの場合は既定のページング
	Pagination *model.Pagination
}

func (p ListSimulationsParams) limitOffset() (int, int) {
	if p.Pagination == nil {
		d, _ := model.NewPagination("", "")
		return d.Limit(), d.Offset()
	}
	return p.Pagination.Limit(), p.Pagination.Offset()
}

// MigrateFunc はストア作成時にスキーマを適用する関数です。
type MigrateFunc func(conn *sql.DB) error
