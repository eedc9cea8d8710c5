package pkpd

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Sample is one point of the simulated timeline.
type Sample struct {
	Time          float64 `json:"time"`          // h
	Concentration float64 `json:"concentration"` // mg/L, 4 decimals
	Effect        float64 `json:"effect"`        // net of tolerance, 2 decimals
	Tolerance     float64 `json:"tolerance"`     // percent, 1 decimal
}

// Stats summarises a run.
//
// On the wire every field is a preformatted string ("12.345", "123.45",
// "45.6", "100%"), which is what the chart and persistence consumers read.
type Stats struct {
	MaxConcentration     float64 // mg/L, 3 decimals
	TotalExposure        float64 // AUC mg·h/L, 2 decimals
	RiskScore            float64 // 0-100, 1 decimal
	MetabolismEfficiency float64 // percent, integer
}

type statsJSON struct {
	MaxConcentration     string `json:"maxConcentration"`
	TotalExposure        string `json:"totalExposure"`
	RiskScore            string `json:"riskScore"`
	MetabolismEfficiency string `json:"metabolismEfficiency"`
}

// MarshalJSON implements json.Marshaler.
func (s Stats) MarshalJSON() ([]byte, error) {
	return json.Marshal(statsJSON{
		MaxConcentration:     strconv.FormatFloat(s.MaxConcentration, 'f', 3, 64),
		TotalExposure:        strconv.FormatFloat(s.TotalExposure, 'f', 2, 64),
		RiskScore:            strconv.FormatFloat(s.RiskScore, 'f', 1, 64),
		MetabolismEfficiency: strconv.FormatFloat(s.MetabolismEfficiency, 'f', 0, 64) + "%",
	})
}

// UnmarshalJSON implements json.Unmarshaler. Plain numbers are accepted as well.
func (s *Stats) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fields := []struct {
		key string
		dst *float64
	}{
		{"maxConcentration", &s.MaxConcentration},
		{"totalExposure", &s.TotalExposure},
		{"riskScore", &s.RiskScore},
		{"metabolismEfficiency", &s.MetabolismEfficiency},
	}
	for _, f := range fields {
		v, ok := raw[f.key]
		if !ok {
			continue
		}
		n, err := parseStat(v)
		if err != nil {
			return fmt.Errorf("stats.%s: %w", f.key, err)
		}
		*f.dst = n
	}
	return nil
}

func parseStat(v json.RawMessage) (float64, error) {
	var str string
	if err := json.Unmarshal(v, &str); err == nil {
		return strconv.ParseFloat(strings.TrimSuffix(str, "%"), 64)
	}
	var n float64
	if err := json.Unmarshal(v, &n); err != nil {
		return 0, err
	}
	return n, nil
}

// Result is the output of Simulate.
type Result struct {
	Timeline []Sample `json:"timeline"`
	Stats    Stats    `json:"stats"`
}

// PeakTime returns the time of the first sample with the highest concentration.
func (r *Result) PeakTime() float64 {
	var peak Sample
	for _, s := range r.Timeline {
		if s.Concentration > peak.Concentration {
			peak = s
		}
	}
	return peak.Time
}

// Simulate runs the fixed-step simulation described by p.
//
// Setup (metabolism factor, absolute volume, dose schedule) happens once; then
// for every step from 0 to the duration inclusive the concentration, raw
// effect, cumulative exposure and tolerance are computed and a Sample is
// appended. The risk score is derived from the run's extrema at the end.
func Simulate(p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	step := p.stepSize()
	factor := MetabolismFactor(p.Subject.Age)
	keAdj := p.Substance.Ke * factor
	vd := AbsoluteVd(p.Substance.VdPerKg, p.Subject.Weight)
	doses := p.schedule()
	n := stepCount(p.duration(), step)
	timeDigits := decimals(step)

	timeline := make([]Sample, 0, n+1)
	var exposure, maxConcentration float64
	for i := 0; i <= n; i++ {
		t := float64(i) * step

		c := Concentration(doses, p.Substance.Ka, keAdj, vd, t)
		if c > maxConcentration {
			maxConcentration = c
		}

		raw := RawEffect(p.Substance.Emax, p.Substance.EC50, c)

		exposure += c * step
		tolerance := ToleranceFactor(exposure)

		timeline = append(timeline, Sample{
			Time:          round(t, timeDigits),
			Concentration: round(c, 4),
			Effect:        round(NetEffect(raw, tolerance), 2),
			Tolerance:     round(tolerance*100, 1),
		})
	}

	risk := RiskScore(maxConcentration, exposure, p.Substance.EC50, p.Subject.Age)

	return &Result{
		Timeline: timeline,
		Stats: Stats{
			MaxConcentration:     round(maxConcentration, 3),
			TotalExposure:        round(exposure, 2),
			RiskScore:            round(risk, 1),
			MetabolismEfficiency: round(factor*100, 0),
		},
	}, nil
}

// stepCount is the index of the last sample; times are i*step for i in [0, n].
func stepCount(duration, step float64) int {
	return int(math.Floor(duration/step + 1e-9))
}

// decimals is the number of fractional digits needed to print multiples of
// step, at least 1.
func decimals(step float64) int {
	for d := 1; d < 6; d++ {
		scaled := step * math.Pow10(d)
		if math.Abs(scaled-math.Round(scaled)) < 1e-9 {
			return d
		}
	}
	return 6
}

func round(v float64, digits int) float64 {
	p := math.Pow10(digits)
	return math.Round(v*p) / p
}
