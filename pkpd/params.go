// Package pkpd implements the pharmacokinetic/pharmacodynamic simulation engine.
//
// The engine is a pure function of its inputs: a substance's constants, a
// subject (weight, age) and a dosing schedule go in, a fixed-step timeline of
// concentration, effect and tolerance plus summary statistics come out.
// Nothing in this package performs I/O or keeps state between calls, so
// Simulate may be called concurrently without coordination.
package pkpd

import (
	"errors"
	"fmt"
	"math"
)

const (
	// DefaultStepSize is the simulation step in hours (6 minutes).
	DefaultStepSize = 0.1
	// DefaultDuration is the simulated window in hours when none is given.
	DefaultDuration = 24.0
	// ReferenceWeight replaces a non-positive body weight (kg).
	ReferenceWeight = 70.0
	// MaxSteps bounds the number of samples a single run may produce.
	MaxSteps = 100000

	// singularityEpsilon is the |ka - ke| below which the limiting form of
	// the absorption/elimination curve is used.
	singularityEpsilon = 0.001
)

// ErrInvalidParameter is wrapped by every validation failure of Params.
var ErrInvalidParameter = errors.New("invalid parameter")

// ParameterError names the offending input of a rejected simulation.
type ParameterError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Field, e.Value, e.Reason)
}

// Unwrap lets callers match any ParameterError with errors.Is(err, ErrInvalidParameter).
func (e *ParameterError) Unwrap() error {
	return ErrInvalidParameter
}

func invalid(field string, value float64, reason string) error {
	return &ParameterError{Field: field, Value: value, Reason: reason}
}

// Substance holds the biological constants of a substance.
type Substance struct {
	VdPerKg float64 `json:"vd"`   // volume of distribution, L/kg
	Ka      float64 `json:"ka"`   // absorption rate, 1/h
	Ke      float64 `json:"ke"`   // base elimination rate, 1/h
	EC50    float64 `json:"ec50"` // concentration at half-maximal effect, mg/L
	Emax    float64 `json:"emax"` // maximal effect
}

// Subject describes the individual the substance is given to.
type Subject struct {
	Weight float64 `json:"weight"` // kg; <= 0 means ReferenceWeight
	Age    float64 `json:"age"`    // years
}

// Dose is one administration: an amount in mg at an onset time in hours.
type Dose struct {
	Amount float64 `json:"amount"`
	Time   float64 `json:"time"`
}

// Params is the complete input of a simulation run.
//
// When Doses is empty a single administration of Dose at time 0 is simulated.
// A zero Duration or StepSize selects DefaultDuration or DefaultStepSize.
type Params struct {
	Substance Substance
	Subject   Subject
	Dose      float64
	Doses     []Dose
	Duration  float64
	StepSize  float64
}

// Validate checks every numeric input before the simulation loop runs.
func (p *Params) Validate() error {
	s := p.Substance
	if err := positive("substance.vd", s.VdPerKg); err != nil {
		return err
	}
	if err := positive("substance.ka", s.Ka); err != nil {
		return err
	}
	if err := positive("substance.ke", s.Ke); err != nil {
		return err
	}
	if err := positive("substance.ec50", s.EC50); err != nil {
		return err
	}
	if err := nonNegative("substance.emax", s.Emax); err != nil {
		return err
	}

	if !finite(p.Subject.Weight) {
		return invalid("weight", p.Subject.Weight, "must be a finite number")
	}
	if !finite(p.Subject.Age) {
		return invalid("age", p.Subject.Age, "must be a finite number")
	}

	if len(p.Doses) == 0 {
		if err := nonNegative("dose", p.Dose); err != nil {
			return err
		}
	}
	for i, d := range p.Doses {
		if err := nonNegative(fmt.Sprintf("doses[%d].amount", i), d.Amount); err != nil {
			return err
		}
		if err := nonNegative(fmt.Sprintf("doses[%d].time", i), d.Time); err != nil {
			return err
		}
	}

	if p.Duration != 0 {
		if err := positive("duration", p.Duration); err != nil {
			return err
		}
	}
	if p.StepSize != 0 {
		if err := positive("stepSize", p.StepSize); err != nil {
			return err
		}
	}
	// compare as float first; the int conversion overflows for huge ratios
	if steps := p.duration() / p.stepSize(); math.IsInf(steps, 0) || steps+1 > MaxSteps {
		return invalid("duration", p.duration(), fmt.Sprintf("run would produce %g samples, limit is %d", math.Floor(steps)+1, MaxSteps))
	}
	return nil
}

func (p *Params) duration() float64 {
	if p.Duration == 0 {
		return DefaultDuration
	}
	return p.Duration
}

func (p *Params) stepSize() float64 {
	if p.StepSize == 0 {
		return DefaultStepSize
	}
	return p.StepSize
}

func (p *Params) schedule() []Dose {
	if len(p.Doses) > 0 {
		return p.Doses
	}
	return []Dose{{Amount: p.Dose, Time: 0}}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positive(field string, v float64) error {
	if !finite(v) || v <= 0 {
		return invalid(field, v, "must be a finite number greater than 0")
	}
	return nil
}

func nonNegative(field string, v float64) error {
	if !finite(v) || v < 0 {
		return invalid(field, v, "must be a finite number greater than or equal to 0")
	}
	return nil
}
