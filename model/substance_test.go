package model

import (
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
)

func caffeine() Substance {
	return Substance{
		Name:               "Caffeine",
		Type:               "Stimulant",
		HalfLife:           5,
		Bioavailability:    0.99,
		DistributionVolume: 0.7,
		AbsorptionRate:     2.5,
		EC50:               10,
		Emax:               100,
		ToxicityThreshold:  50,
		LethalDose:         150,
		ToleranceFactor:    0.1,
		WithdrawalFactor:   0.2,
		Description:        "Central nervous system stimulant. Blocks adenosine receptors.",
		Neurotransmitters:  Neurotransmitters{Dopamine: 20, Serotonin: 5, GABA: -10, Norepinephrine: 15, Glutamate: 10},
	}
}

// TestNewSubstance tests the NewSubstance constructor
func TestNewSubstance(t *testing.T) {
	sub, err := NewSubstance(caffeine())
	if err != nil {
		t.Fatalf("Failed to create substance: %v", err)
	}

	// IDが自動生成されているか確認
	if sub.ID == uuid.Nil {
		t.Error("Expected non-nil UUID for ID field")
	}
	if sub.CreatedAt.IsZero() || !sub.CreatedAt.Equal(sub.UpdatedAt) {
		t.Error("Expected CreatedAt and UpdatedAt to be set and equal")
	}

	if sub.AbsorptionRate != 2.5 || sub.Bioavailability != 0.99 || sub.ToleranceFactor != 0.1 {
		t.Errorf("Expected values to be kept, got %+v", sub)
	}
}

// TestNewSubstanceExplicitZero tests that zero is kept where zero is a legal value
func TestNewSubstanceExplicitZero(t *testing.T) {
	s := caffeine()
	s.Emax = 0
	s.ToleranceFactor = 0
	s.WithdrawalFactor = 0

	sub, err := NewSubstance(s)
	if err != nil {
		t.Fatalf("Failed to create substance: %v", err)
	}
	if sub.Emax != 0 || sub.ToleranceFactor != 0 || sub.WithdrawalFactor != 0 {
		t.Errorf("Expected explicit zeros to be kept, got emax=%v tolerance=%v withdrawal=%v",
			sub.Emax, sub.ToleranceFactor, sub.WithdrawalFactor)
	}
	if c := sub.Constants(); c.Emax != 0 {
		t.Errorf("Expected engine emax 0, got %v", c.Emax)
	}

	// 保存済みの値も読み込み時に書き換えない
	loaded, err := LoadSubstance(*sub)
	if err != nil {
		t.Fatalf("Failed to load substance: %v", err)
	}
	if loaded.Emax != 0 || loaded.ToleranceFactor != 0 {
		t.Errorf("Expected LoadSubstance to keep zeros, got emax=%v tolerance=%v", loaded.Emax, loaded.ToleranceFactor)
	}
}

// TestNewSubstanceMissingRequired tests that an omitted engine parameter is rejected
func TestNewSubstanceMissingRequired(t *testing.T) {
	s := caffeine()
	s.AbsorptionRate = 0

	_, err := NewSubstance(s)
	var verr *ValidationError
	if !errors.As(err, &verr) || verr.Field != "absorptionRate" {
		t.Errorf("Expected absorptionRate ValidationError, got %v", err)
	}
}

// TestSubstanceValidate tests validation failures
func TestSubstanceValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(s *Substance)
		field  string
	}{
		{"empty name", func(s *Substance) { s.Name = "" }, "name"},
		{"empty type", func(s *Substance) { s.Type = "" }, "type"},
		{"negative half-life", func(s *Substance) { s.HalfLife = -1 }, "halfLife"},
		{"NaN ec50", func(s *Substance) { s.EC50 = math.NaN() }, "ec50"},
		{"negative emax", func(s *Substance) { s.Emax = -5 }, "emax"},
		{"bioavailability above 1", func(s *Substance) { s.Bioavailability = 1.5 }, "bioavailability"},
		{"tolerance factor above 1", func(s *Substance) { s.ToleranceFactor = 2 }, "toleranceFactor"},
		{"missing lethal dose", func(s *Substance) { s.LethalDose = 0 }, "lethalDose"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := caffeine()
			tt.mutate(&s)

			_, err := NewSubstance(s)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Expected ValidationError, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("Expected field %q, got %q", tt.field, verr.Field)
			}
		})
	}
}

// TestLoadSubstance tests the LoadSubstance constructor
func TestLoadSubstance(t *testing.T) {
	created, err := NewSubstance(caffeine())
	if err != nil {
		t.Fatalf("Failed to create substance: %v", err)
	}

	loaded, err := LoadSubstance(*created)
	if err != nil {
		t.Fatalf("Failed to load substance: %v", err)
	}
	if loaded.ID != created.ID || loaded.Name != created.Name {
		t.Errorf("Expected %s/%s, got %s/%s", created.ID, created.Name, loaded.ID, loaded.Name)
	}

	// IDなしは読み込めない
	noID := *created
	noID.ID = uuid.Nil
	if _, err := LoadSubstance(noID); err == nil {
		t.Error("Expected error when loading substance without ID")
	}
}

// TestSubstanceConstants tests the mapping to engine constants
func TestSubstanceConstants(t *testing.T) {
	s := caffeine()
	c := s.Constants()

	if c.VdPerKg != 0.7 || c.Ka != 2.5 || c.EC50 != 10 || c.Emax != 100 {
		t.Errorf("Unexpected constants: %+v", c)
	}
	if want := math.Ln2 / 5; math.Abs(c.Ke-want) > 1e-15 {
		t.Errorf("Expected ke %v, got %v", want, c.Ke)
	}
}

// TestSubstanceSummary tests the listing projection
func TestSubstanceSummary(t *testing.T) {
	sub, err := NewSubstance(caffeine())
	if err != nil {
		t.Fatalf("Failed to create substance: %v", err)
	}

	summary := sub.Summary()
	if summary.ID != sub.ID || summary.Name != "Caffeine" || summary.Type != "Stimulant" || summary.Description != sub.Description {
		t.Errorf("Unexpected summary: %+v", summary)
	}
}
