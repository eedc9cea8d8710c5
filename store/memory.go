package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/stsysd/dosesim/model"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore はプロセス内のマップに保存するStoreの実装です。
// APIやseedのテスト、およびライブラリとして組み込む場合の永続化不要な用途に使います。
type MemoryStore struct {
	mu          sync.RWMutex
	substances  map[uuid.UUID]model.Substance
	simulations map[uuid.UUID]model.Simulation
}

// NewMemoryStore は空のMemoryStoreを作成します。
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		substances:  map[uuid.UUID]model.Substance{},
		simulations: map[uuid.UUID]model.Simulation{},
	}
}

// Close は何もしません。
func (m *MemoryStore) Close() error { return nil }

// UpsertSubstance は名前をキーに物質を作成または更新します。
func (m *MemoryStore) UpsertSubstance(ctx context.Context, substance *model.Substance) (bool, error) {
	created, err := m.UpsertSubstances(ctx, []*model.Substance{substance})
	if err != nil {
		return false, err
	}
	return created[0], nil
}

// UpsertSubstances は複数の物質をまとめて作成または更新します。
// すべて検証してからロックを取って書き込むため、途中で失敗することはありません。
func (m *MemoryStore) UpsertSubstances(_ context.Context, substances []*model.Substance) ([]bool, error) {
	for _, sub := range substances {
		if err := sub.Validate(); err != nil {
			return nil, err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	created := make([]bool, len(substances))
	for i, substance := range substances {
		existing, found := lo.Find(lo.Values(m.substances), func(s model.Substance) bool {
			return s.Name == substance.Name
		})
		if found {
			substance.ID = existing.ID
			substance.CreatedAt = existing.CreatedAt
			substance.UpdatedAt = time.Now()
		}
		m.substances[substance.ID] = *substance
		created[i] = !found
	}
	return created, nil
}

// GetSubstance は指定されたIDの物質を取得します。
func (m *MemoryStore) GetSubstance(_ context.Context, id uuid.UUID) (*model.Substance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.substances[id]
	if !ok {
		return nil, model.ErrSubstanceNotFound
	}
	return &s, nil
}

// GetSubstanceByName は指定された名前の物質を取得します。
func (m *MemoryStore) GetSubstanceByName(_ context.Context, name string) (*model.Substance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := lo.Find(lo.Values(m.substances), func(s model.Substance) bool {
		return s.Name == name
	})
	if !ok {
		return nil, model.ErrSubstanceNotFound
	}
	return &s, nil
}

// ListSubstances はすべての物質を名前順に取得します。
func (m *MemoryStore) ListSubstances(_ context.Context) ([]*model.Substance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	subs := lo.Map(lo.Values(m.substances), func(s model.Substance, _ int) *model.Substance {
		return &s
	})
	slices.SortFunc(subs, func(a, b *model.Substance) int {
		return strings.Compare(a.Name, b.Name)
	})
	return subs, nil
}

// CreateSimulation は新しいシミュレーション結果を保存します。
func (m *MemoryStore) CreateSimulation(_ context.Context, sim *model.Simulation) error {
	if err := sim.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.substances[sim.Substance.SubstanceID]; !ok {
		return model.ErrSubstanceNotFound
	}
	stored := *sim
	stored.Results.Timeline = slices.Clone(sim.Results.Timeline)
	m.simulations[sim.ID] = stored
	return nil
}

// GetSimulation はタイムラインを含むシミュレーション結果を取得します。
func (m *MemoryStore) GetSimulation(_ context.Context, id uuid.UUID) (*model.Simulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sim, ok := m.simulations[id]
	if !ok {
		return nil, model.ErrSimulationNotFound
	}
	sim.Results.Timeline = slices.Clone(sim.Results.Timeline)
	return &sim, nil
}

// ListSimulations は新しい順にシミュレーション結果を取得します。タイムラインは含みません。
func (m *MemoryStore) ListSimulations(_ context.Context, params ListSimulationsParams) ([]*model.Simulation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := lo.Filter(lo.Values(m.simulations), func(s model.Simulation, _ int) bool {
		return params.SubstanceID == nil || s.Substance.SubstanceID == *params.SubstanceID
	})
	slices.SortFunc(matched, func(a, b model.Simulation) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})

	limit, offset := params.limitOffset()
	page := lo.Subset(matched, offset, uint(limit))
	return lo.Map(page, func(s model.Simulation, _ int) *model.Simulation {
		s.Results.Timeline = nil
		return &s
	}), nil
}

// DeleteSimulation は指定されたIDのシミュレーション結果を削除します。
func (m *MemoryStore) DeleteSimulation(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.simulations[id]; !ok {
		return model.ErrSimulationNotFound
	}
	delete(m.simulations, id)
	return nil
}
