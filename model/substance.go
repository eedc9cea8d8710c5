// Package model は、アプリケーションのデータモデル定義を提供します。
package model

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/stsysd/dosesim/pkpd"
)

// Neurotransmitters は物質が各神経伝達物質に与える影響の符号付き強度です。
type Neurotransmitters struct {
	Dopamine       float64 `json:"dopamine"`
	Serotonin      float64 `json:"serotonin"`
	Norepinephrine float64 `json:"norepinephrine"`
	GABA           float64 `json:"gaba"`
	Glutamate      float64 `json:"glutamate"`
}

// Substance は物質カタログの1件を表すモデルです。
type Substance struct {
	ID                 uuid.UUID         `json:"_id"`
	Name               string            `json:"name"`
	Type               string            `json:"type"`               // Stimulant, Depressant など
	HalfLife           float64           `json:"halfLife"`           // 時間
	Bioavailability    float64           `json:"bioavailability"`    // 0-1
	AbsorptionRate     float64           `json:"absorptionRate"`     // ka (1/h)
	DistributionVolume float64           `json:"distributionVolume"` // L/kg
	EC50               float64           `json:"ec50"`               // mg/L
	Emax               float64           `json:"emax"`
	Neurotransmitters  Neurotransmitters `json:"neurotransmitters"`
	ToxicityThreshold  float64           `json:"toxicityThreshold"` // mg/L
	LethalDose         float64           `json:"lethalDose"`        // mg/kg
	ToleranceFactor    float64           `json:"toleranceFactor"`   // 0-1
	WithdrawalFactor   float64           `json:"withdrawalFactor"`  // 0-1
	Description        string            `json:"description"`
	CreatedAt          time.Time         `json:"createdAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// SubstanceDefaults は省略された物質パラメータの既定値です。
type SubstanceDefaults struct {
	AbsorptionRate     float64
	DistributionVolume float64
	EC50               float64
	Emax               float64
	Bioavailability    float64
	ToleranceFactor    float64
	WithdrawalFactor   float64
}

// DefaultSubstanceDefaults は標準の既定値を返します。
func DefaultSubstanceDefaults() SubstanceDefaults {
	return SubstanceDefaults{
		AbsorptionRate:     1.5,
		DistributionVolume: 0.8,
		EC50:               0.5,
		Emax:               100,
		Bioavailability:    1.0,
		ToleranceFactor:    0.1,
		WithdrawalFactor:   0.2,
	}
}

// NewSubstance は新しいSubstanceインスタンスを作成します。
// IDと作成日時を割り当ててから検証します。0は明示された値として扱います。
// 省略された項目への既定値の適用は入力を解釈する側 (seedなど) で行います。
func NewSubstance(s Substance) (*Substance, error) {
	now := time.Now()
	sub := s
	sub.ID = uuid.New()
	sub.CreatedAt = now
	sub.UpdatedAt = now
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	return &sub, nil
}

// LoadSubstance は既存のSubstanceインスタンスを作成します。
// 保存済みの値は解決済みなので、そのまま検証します。
func LoadSubstance(s Substance) (*Substance, error) {
	if s.ID == uuid.Nil {
		return nil, newFieldError("_id", "is required for loaded substance")
	}
	sub := s
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	return &sub, nil
}

// Validate は物質データのバリデーションを行います。
func (s *Substance) Validate() error {
	if s.Name == "" {
		return newFieldError("name", "is required")
	}
	if s.Type == "" {
		return newFieldError("type", "is required")
	}

	positives := []struct {
		field string
		value float64
	}{
		{"halfLife", s.HalfLife},
		{"absorptionRate", s.AbsorptionRate},
		{"distributionVolume", s.DistributionVolume},
		{"ec50", s.EC50},
		{"toxicityThreshold", s.ToxicityThreshold},
		{"lethalDose", s.LethalDose},
	}
	for _, p := range positives {
		if !isFinite(p.value) || p.value <= 0 {
			return newFieldError(p.field, "must be greater than 0")
		}
	}

	if !isFinite(s.Emax) || s.Emax < 0 {
		return newFieldError("emax", "must not be negative")
	}
	if !isFinite(s.Bioavailability) || s.Bioavailability <= 0 || s.Bioavailability > 1 {
		return newFieldError("bioavailability", "must be in (0, 1]")
	}

	// 0-1の係数
	fractions := []struct {
		field string
		value float64
	}{
		{"toleranceFactor", s.ToleranceFactor},
		{"withdrawalFactor", s.WithdrawalFactor},
	}
	for _, f := range fractions {
		if !isFinite(f.value) || f.value < 0 || f.value > 1 {
			return newFieldError(f.field, "must be in [0, 1]")
		}
	}

	if s.CreatedAt.IsZero() {
		return newFieldError("createdAt", "is required")
	}
	if s.UpdatedAt.IsZero() {
		return newFieldError("updatedAt", "is required")
	}
	return nil
}

// EliminationRate は半減期から求めた消失速度定数 ke (1/h) を返します。
func (s *Substance) EliminationRate() float64 {
	return math.Ln2 / s.HalfLife
}

// Constants はシミュレーションエンジンに渡す定数を返します。
func (s *Substance) Constants() pkpd.Substance {
	return pkpd.Substance{
		VdPerKg: s.DistributionVolume,
		Ka:      s.AbsorptionRate,
		Ke:      s.EliminationRate(),
		EC50:    s.EC50,
		Emax:    s.Emax,
	}
}

// SubstanceSummary は一覧表示用の射影です。
type SubstanceSummary struct {
	ID          uuid.UUID `json:"_id"`
	Name        string    `json:"name"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
}

// Summary は一覧表示用の射影を返します。
func (s *Substance) Summary() SubstanceSummary {
	return SubstanceSummary{
		ID:          s.ID,
		Name:        s.Name,
		Type:        s.Type,
		Description: s.Description,
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
