package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stsysd/dosesim/db"
	"github.com/stsysd/dosesim/model"
)

var _ Store = (*SQLStore)(nil)

// 固定長にすることで文字列比較と時刻順が一致する
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLStore はdatabase/sqlを使用したStoreの実装です。SQLiteとPostgreSQLに対応します。
type SQLStore struct {
	conn    *sql.DB
	dialect string
}

// DB は内部の*sql.DBを返します。
func (s *SQLStore) DB() *sql.DB { return s.conn }

// Dialect はgooseのダイアレクト名を返します。
func (s *SQLStore) Dialect() string { return s.dialect }

// Close はストアの接続を閉じます。
func (s *SQLStore) Close() error {
	return s.conn.Close()
}

// rebind はプレースホルダ ? をダイアレクトに合わせて書き換えます。
func (s *SQLStore) rebind(query string) string {
	if s.dialect != db.DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.conn.ExecContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.conn.QueryContext(ctx, s.rebind(query), args...)
}

func (s *SQLStore) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.conn.QueryRowContext(ctx, s.rebind(query), args...)
}

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

const substanceColumns = `id, name, type, half_life, bioavailability, absorption_rate,
	distribution_volume, ec50, emax, neurotransmitters, toxicity_threshold, lethal_dose,
	tolerance_factor, withdrawal_factor, description, created_at, updated_at`

// UpsertSubstance は名前をキーに物質を作成または更新します。
func (s *SQLStore) UpsertSubstance(ctx context.Context, substance *model.Substance) (bool, error) {
	created, err := s.UpsertSubstances(ctx, []*model.Substance{substance})
	if err != nil {
		return false, err
	}
	return created[0], nil
}

// UpsertSubstances は複数の物質を1つのトランザクションで作成または更新します。
// いずれかが失敗した場合は何も書き込みません。
func (s *SQLStore) UpsertSubstances(ctx context.Context, substances []*model.Substance) ([]bool, error) {
	// バリデーション
	for _, sub := range substances {
		if err := sub.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	// コミット後のRollbackはErrTxDoneを返すだけなので無視する
	defer func() { _ = tx.Rollback() }()

	created := make([]bool, len(substances))
	for i, sub := range substances {
		if created[i], err = s.upsertSubstance(ctx, tx, sub); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit substances: %w", err)
	}
	return created, nil
}

// upsertSubstance は ON CONFLICT で挿入を試み、既存の行があれば更新します。
// 同時に同じ名前を書き込んでも一意制約違反にはなりません。
func (s *SQLStore) upsertSubstance(ctx context.Context, tx *sql.Tx, substance *model.Substance) (bool, error) {
	nt, err := json.Marshal(substance.Neurotransmitters)
	if err != nil {
		return false, fmt.Errorf("failed to encode neurotransmitters: %w", err)
	}

	res, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO substances (`+substanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (name) DO NOTHING`),
		substance.ID.String(), substance.Name, substance.Type, substance.HalfLife,
		substance.Bioavailability, substance.AbsorptionRate, substance.DistributionVolume,
		substance.EC50, substance.Emax, string(nt), substance.ToxicityThreshold,
		substance.LethalDose, substance.ToleranceFactor, substance.WithdrawalFactor,
		substance.Description, formatTime(substance.CreatedAt), formatTime(substance.UpdatedAt))
	if err != nil {
		return false, fmt.Errorf("failed to insert substance: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert substance: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	// 既存の物質のIDと作成日時を引き継ぐ
	var id, createdAt string
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT id, created_at FROM substances WHERE name = ?`),
		substance.Name).Scan(&id, &createdAt)
	if err != nil {
		return false, fmt.Errorf("failed to read existing substance: %w", err)
	}
	if substance.ID, err = uuid.Parse(id); err != nil {
		return false, fmt.Errorf("invalid substance id %q: %w", id, err)
	}
	if substance.CreatedAt, err = parseTime(createdAt); err != nil {
		return false, fmt.Errorf("invalid created_at: %w", err)
	}
	substance.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx, s.rebind(`UPDATE substances SET
			type = ?, half_life = ?, bioavailability = ?, absorption_rate = ?,
			distribution_volume = ?, ec50 = ?, emax = ?, neurotransmitters = ?,
			toxicity_threshold = ?, lethal_dose = ?, tolerance_factor = ?,
			withdrawal_factor = ?, description = ?, updated_at = ?
		WHERE id = ?`),
		substance.Type, substance.HalfLife, substance.Bioavailability, substance.AbsorptionRate,
		substance.DistributionVolume, substance.EC50, substance.Emax, string(nt),
		substance.ToxicityThreshold, substance.LethalDose, substance.ToleranceFactor,
		substance.WithdrawalFactor, substance.Description, formatTime(substance.UpdatedAt),
		substance.ID.String())
	if err != nil {
		return false, fmt.Errorf("failed to update substance: %w", err)
	}
	return false, nil
}

// GetSubstance は指定されたIDの物質を取得します。
func (s *SQLStore) GetSubstance(ctx context.Context, id uuid.UUID) (*model.Substance, error) {
	row := s.queryRow(ctx, `SELECT `+substanceColumns+` FROM substances WHERE id = ?`, id.String())
	return scanSubstance(row)
}

// GetSubstanceByName は指定された名前の物質を取得します。
func (s *SQLStore) GetSubstanceByName(ctx context.Context, name string) (*model.Substance, error) {
	row := s.queryRow(ctx, `SELECT `+substanceColumns+` FROM substances WHERE name = ?`, name)
	return scanSubstance(row)
}

// ListSubstances はすべての物質を名前順に取得します。
func (s *SQLStore) ListSubstances(ctx context.Context) ([]*model.Substance, error) {
	rows, err := s.query(ctx, `SELECT `+substanceColumns+` FROM substances ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list substances: %w", err)
	}
	defer rows.Close()

	substances := []*model.Substance{}
	for rows.Next() {
		sub, err := scanSubstance(rows)
		if err != nil {
			return nil, err
		}
		substances = append(substances, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate substances: %w", err)
	}
	return substances, nil
}

func scanSubstance(row scanner) (*model.Substance, error) {
	var (
		sub                  model.Substance
		id, nt               string
		createdAt, updatedAt string
	)
	err := row.Scan(&id, &sub.Name, &sub.Type, &sub.HalfLife, &sub.Bioavailability,
		&sub.AbsorptionRate, &sub.DistributionVolume, &sub.EC50, &sub.Emax, &nt,
		&sub.ToxicityThreshold, &sub.LethalDose, &sub.ToleranceFactor, &sub.WithdrawalFactor,
		&sub.Description, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSubstanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan substance: %w", err)
	}

	if sub.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid substance id %q: %w", id, err)
	}
	if err := json.Unmarshal([]byte(nt), &sub.Neurotransmitters); err != nil {
		return nil, fmt.Errorf("failed to decode neurotransmitters: %w", err)
	}
	if sub.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	if sub.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("invalid updated_at: %w", err)
	}
	return model.LoadSubstance(sub)
}

const simulationSummaryColumns = `id, substance_id, substance_name, weight, age, metabolism_rate,
	dose, doses, frequency, duration, peak_concentration, peak_time, total_exposure,
	max_risk_score, risk_band, metabolism_efficiency, created_at`

// CreateSimulation は新しいシミュレーション結果を保存します。
func (s *SQLStore) CreateSimulation(ctx context.Context, sim *model.Simulation) error {
	// バリデーション
	if err := sim.Validate(); err != nil {
		return err
	}

	timeline, err := json.Marshal(sim.Results.Timeline)
	if err != nil {
		return fmt.Errorf("failed to encode timeline: %w", err)
	}

	_, err = s.exec(ctx, `INSERT INTO simulations (`+simulationSummaryColumns+`, timeline)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sim.ID.String(), sim.Substance.SubstanceID.String(), sim.Substance.Name,
		sim.UserProfile.Weight, sim.UserProfile.Age, sim.UserProfile.MetabolismRate,
		sim.Substance.Dose, sim.Substance.Doses, sim.Substance.Frequency, sim.Substance.Duration,
		sim.Results.PeakConcentration, sim.Results.PeakTime, sim.Results.TotalExposure,
		sim.Results.MaxRiskScore, string(sim.Results.RiskBand), sim.Results.MetabolismEfficiency,
		formatTime(sim.CreatedAt), string(timeline))
	if err != nil {
		return fmt.Errorf("failed to insert simulation: %w", err)
	}
	return nil
}

// GetSimulation はタイムラインを含むシミュレーション結果を取得します。
func (s *SQLStore) GetSimulation(ctx context.Context, id uuid.UUID) (*model.Simulation, error) {
	row := s.queryRow(ctx, `SELECT `+simulationSummaryColumns+`, timeline FROM simulations WHERE id = ?`, id.String())

	var timeline string
	sim, err := scanSimulation(row, &timeline)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(timeline), &sim.Results.Timeline); err != nil {
		return nil, fmt.Errorf("failed to decode timeline: %w", err)
	}
	return sim, nil
}

// ListSimulations は新しい順にシミュレーション結果を取得します。
func (s *SQLStore) ListSimulations(ctx context.Context, params ListSimulationsParams) ([]*model.Simulation, error) {
	query := `SELECT ` + simulationSummaryColumns + ` FROM simulations`
	var args []any
	if params.SubstanceID != nil {
		query += ` WHERE substance_id = ?`
		args = append(args, params.SubstanceID.String())
	}
	limit, offset := params.limitOffset()
	query += ` ORDER BY created_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list simulations: %w", err)
	}
	defer rows.Close()

	simulations := []*model.Simulation{}
	for rows.Next() {
		sim, err := scanSimulation(rows)
		if err != nil {
			return nil, err
		}
		simulations = append(simulations, sim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate simulations: %w", err)
	}
	return simulations, nil
}

// DeleteSimulation は指定されたIDのシミュレーション結果を削除します。
func (s *SQLStore) DeleteSimulation(ctx context.Context, id uuid.UUID) error {
	result, err := s.exec(ctx, `DELETE FROM simulations WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete simulation: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if n == 0 {
		return model.ErrSimulationNotFound
	}
	return nil
}

// scanSimulation は要約カラムを読み取ります。extraは要約カラムの後に続くカラムの格納先です。
func scanSimulation(row scanner, extra ...any) (*model.Simulation, error) {
	var (
		sim                 model.Simulation
		id, substanceID     string
		riskBand, createdAt string
		doses               int64
	)
	dest := []any{&id, &substanceID, &sim.Substance.Name,
		&sim.UserProfile.Weight, &sim.UserProfile.Age, &sim.UserProfile.MetabolismRate,
		&sim.Substance.Dose, &doses, &sim.Substance.Frequency, &sim.Substance.Duration,
		&sim.Results.PeakConcentration, &sim.Results.PeakTime, &sim.Results.TotalExposure,
		&sim.Results.MaxRiskScore, &riskBand, &sim.Results.MetabolismEfficiency, &createdAt}
	err := row.Scan(append(dest, extra...)...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrSimulationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan simulation: %w", err)
	}

	if sim.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid simulation id %q: %w", id, err)
	}
	if sim.Substance.SubstanceID, err = uuid.Parse(substanceID); err != nil {
		return nil, fmt.Errorf("invalid substance id %q: %w", substanceID, err)
	}
	if sim.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at: %w", err)
	}
	sim.Substance.Doses = int(doses)
	sim.Results.RiskBand = model.RiskBand(riskBand)

	return model.LoadSimulation(sim)
}
