package pkpd

import "math"

// MetabolismFactor returns the fraction of the base elimination rate an
// individual of the given age retains. Elimination degrades by 0.8% per year
// past 30 and never drops below 50%.
func MetabolismFactor(age float64) float64 {
	if age <= 30 {
		return 1.0
	}
	return math.Max(0.5, 1.0-(age-30)*0.008)
}

// EffectiveWeight returns the weight used for scaling, and whether the
// supplied weight was replaced by ReferenceWeight.
func EffectiveWeight(weight float64) (float64, bool) {
	if weight > 0 {
		return weight, false
	}
	return ReferenceWeight, true
}

// AbsoluteVd scales a per-kg volume of distribution to the whole body.
func AbsoluteVd(vdPerKg, weight float64) float64 {
	w, _ := EffectiveWeight(weight)
	return vdPerKg * w
}

// BuildSchedule expands a regimen into count administrations of dose,
// interval hours apart, starting at time 0. A count below 1 is treated as a
// single administration.
func BuildSchedule(dose float64, count int, interval float64) []Dose {
	if count < 1 {
		count = 1
	}
	schedule := make([]Dose, count)
	for i := range schedule {
		schedule[i] = Dose{Amount: dose, Time: float64(i) * interval}
	}
	return schedule
}
