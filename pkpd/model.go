package pkpd

import "math"

const (
	toleranceRate           = 0.05
	maxToleranceSuppression = 0.8
)

// doseContribution is the one-compartment first-order absorption/elimination
// curve of a single dose, tau hours after its onset.
func doseContribution(amount, ka, keAdj, vd, tau float64) float64 {
	var c float64
	if math.Abs(ka-keAdj) < singularityEpsilon {
		c = (amount / vd) * keAdj * tau * math.Exp(-keAdj*tau)
	} else {
		c = (amount * ka) / (vd * (ka - keAdj)) * (math.Exp(-keAdj*tau) - math.Exp(-ka*tau))
	}
	// floating point residue at large tau
	return math.Max(0, c)
}

// Concentration returns the blood concentration (mg/L) at time t as the sum of
// every dose whose onset is not after t.
func Concentration(doses []Dose, ka, keAdj, vd, t float64) float64 {
	total := 0.0
	for _, d := range doses {
		if d.Time > t {
			continue
		}
		total += doseContribution(d.Amount, ka, keAdj, vd, t-d.Time)
	}
	return total
}

// RawEffect is the Hill equation with a coefficient of 1.
func RawEffect(emax, ec50, c float64) float64 {
	if c <= 0 {
		return 0
	}
	return (emax * c) / (ec50 + c)
}

// ToleranceFactor maps cumulative exposure (mg·h/L) to a tolerance fraction in [0, 1).
func ToleranceFactor(exposure float64) float64 {
	return 1 - math.Exp(-toleranceRate*exposure)
}

// NetEffect damps a raw effect by tolerance. At most 80% of the effect is suppressed.
func NetEffect(raw, tolerance float64) float64 {
	return raw * (1 - tolerance*maxToleranceSuppression)
}

// AgeRiskMultiplier adds 1% of risk per year of age over 30.
func AgeRiskMultiplier(age float64) float64 {
	return 1 + math.Max(0, age-30)*0.01
}

// RiskScore blends an acute proxy (peak relative to ec50) and a chronic proxy
// (total exposure), scales it by age and clamps it to [0, 100].
func RiskScore(maxConcentration, exposure, ec50, age float64) float64 {
	acute := (maxConcentration / ec50) * 20
	chronic := (exposure / 10) * 5
	score := (acute + chronic) * AgeRiskMultiplier(age)
	return math.Min(100, math.Max(0, score))
}
