package model

import "fmt"

// RiskBand is the qualitative label attached to a risk score.
type RiskBand string

const (
	RiskLow      RiskBand = "Low"
	RiskMedium   RiskBand = "Medium"
	RiskHigh     RiskBand = "High"
	RiskCritical RiskBand = "Critical"
)

// RiskBanding maps a 0-100 risk score to a band.
type RiskBanding interface {
	Name() string
	Band(score float64) RiskBand
}

// TwoTierBanding labels scores above 50 High and everything else Low.
type TwoTierBanding struct{}

func (TwoTierBanding) Name() string { return "two" }

func (TwoTierBanding) Band(score float64) RiskBand {
	if score > 50 {
		return RiskHigh
	}
	return RiskLow
}

// FourTierBanding splits the score range at 25, 50 and 75.
type FourTierBanding struct{}

func (FourTierBanding) Name() string { return "four" }

func (FourTierBanding) Band(score float64) RiskBand {
	switch {
	case score >= 75:
		return RiskCritical
	case score >= 50:
		return RiskHigh
	case score >= 25:
		return RiskMedium
	default:
		return RiskLow
	}
}

// ParseRiskBanding resolves a banding policy by name. An empty name selects TwoTierBanding.
func ParseRiskBanding(name string) (RiskBanding, error) {
	switch name {
	case "", "two":
		return TwoTierBanding{}, nil
	case "four":
		return FourTierBanding{}, nil
	default:
		return nil, fmt.Errorf("unknown risk banding %q (want two or four)", name)
	}
}
