// Package model は、アプリケーションのデータモデル定義を提供します。
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/stsysd/dosesim/pkpd"
)

// UserProfile はシミュレーション対象者の情報です。
type UserProfile struct {
	Weight         float64 `json:"weight"`         // kg
	Age            float64 `json:"age"`            // 歳
	MetabolismRate float64 `json:"metabolismRate"` // 年齢による代謝係数
}

// Regimen は投与計画です。
type Regimen struct {
	Dose     float64 `json:"dose"`     // mg
	Doses    int     `json:"doses"`    // 投与回数
	Interval float64 `json:"interval"` // 投与間隔 (時間)
	Duration float64 `json:"duration"` // シミュレーション時間 (時間)
}

// Schedule は投与計画を投与イベントの列に展開します。
func (r Regimen) Schedule() []pkpd.Dose {
	return pkpd.BuildSchedule(r.Dose, r.Doses, r.Interval)
}

// Params はエンジンへの入力を組み立てます。
func (r Regimen) Params(sub *Substance, weight, age float64) pkpd.Params {
	return pkpd.Params{
		Substance: sub.Constants(),
		Subject:   pkpd.Subject{Weight: weight, Age: age},
		Dose:      r.Dose,
		Doses:     r.Schedule(),
		Duration:  r.Duration,
	}
}

// DosingSummary は保存されたシミュレーションの物質と投与計画の要約です。
type DosingSummary struct {
	SubstanceID uuid.UUID `json:"substanceId"`
	Name        string    `json:"name"`
	Dose        float64   `json:"dose"`
	Doses       int       `json:"doses"`
	Frequency   float64   `json:"frequency"` // 投与間隔 (時間)
	Duration    float64   `json:"duration"`
}

// Results はシミュレーション結果の要約とタイムラインです。
type Results struct {
	PeakConcentration    float64       `json:"peakConcentration"`
	PeakTime             float64       `json:"peakTime"`
	TotalExposure        float64       `json:"totalExposure"`
	MaxRiskScore         float64       `json:"maxRiskScore"`
	RiskBand             RiskBand      `json:"riskBand"`
	MetabolismEfficiency float64       `json:"metabolismEfficiency"`
	Timeline             []pkpd.Sample `json:"timeline,omitempty"`
}

// Simulation は保存されたシミュレーション実行を表すモデルです。
type Simulation struct {
	ID          uuid.UUID     `json:"_id"`
	UserProfile UserProfile   `json:"userProfile"`
	Substance   DosingSummary `json:"substance"`
	Results     Results       `json:"results"`
	CreatedAt   time.Time     `json:"createdAt"`
}

// NewSimulation はエンジンの実行結果から新しいSimulationインスタンスを作成します。
func NewSimulation(sub *Substance, weight, age float64, regimen Regimen, res *pkpd.Result, banding RiskBanding) (*Simulation, error) {
	if banding == nil {
		banding = TwoTierBanding{}
	}
	sim := &Simulation{
		ID: uuid.New(),
		UserProfile: UserProfile{
			Weight:         weight,
			Age:            age,
			MetabolismRate: pkpd.MetabolismFactor(age),
		},
		Substance: DosingSummary{
			SubstanceID: sub.ID,
			Name:        sub.Name,
			Dose:        regimen.Dose,
			Doses:       regimen.Doses,
			Frequency:   regimen.Interval,
			Duration:    regimen.Duration,
		},
		Results: Results{
			PeakConcentration:    res.Stats.MaxConcentration,
			PeakTime:             res.PeakTime(),
			TotalExposure:        res.Stats.TotalExposure,
			MaxRiskScore:         res.Stats.RiskScore,
			RiskBand:             banding.Band(res.Stats.RiskScore),
			MetabolismEfficiency: res.Stats.MetabolismEfficiency,
			Timeline:             res.Timeline,
		},
		CreatedAt: time.Now(),
	}
	if err := sim.Validate(); err != nil {
		return nil, err
	}
	return sim, nil
}

// LoadSimulation は既存のSimulationインスタンスを作成します。
func LoadSimulation(s Simulation) (*Simulation, error) {
	// DBから読み込んだレコード用なので、IDは必須
	if s.ID == uuid.Nil {
		return nil, newFieldError("_id", "is required for loaded simulation")
	}
	sim := s
	if err := sim.Validate(); err != nil {
		return nil, err
	}
	return &sim, nil
}

// Validate はシミュレーションのデータバリデーションを行います。
func (s *Simulation) Validate() error {
	if s.Substance.SubstanceID == uuid.Nil {
		return newFieldError("substance.substanceId", "is required")
	}
	if s.Substance.Name == "" {
		return newFieldError("substance.name", "is required")
	}
	if s.Results.MaxRiskScore < 0 || s.Results.MaxRiskScore > 100 {
		return newFieldError("results.maxRiskScore", "must be in [0, 100]")
	}
	if s.Results.RiskBand == "" {
		return newFieldError("results.riskBand", "is required")
	}
	if s.CreatedAt.IsZero() {
		return newFieldError("createdAt", "is required")
	}
	return nil
}

// Result は保存された結果をエンジンの出力形式に戻します。
func (s *Simulation) Result() *pkpd.Result {
	return &pkpd.Result{
		Timeline: s.Results.Timeline,
		Stats: pkpd.Stats{
			MaxConcentration:     s.Results.PeakConcentration,
			TotalExposure:        s.Results.TotalExposure,
			RiskScore:            s.Results.MaxRiskScore,
			MetabolismEfficiency: s.Results.MetabolismEfficiency,
		},
	}
}
