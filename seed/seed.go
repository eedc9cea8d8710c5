// Package seed loads the substance catalog into a store.
//
// The built-in catalog is embedded from substances.yaml; an external file in
// the same format can be loaded instead. Seeding upserts by name, so running
// it twice is harmless and edits to the file update existing records in place.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/stsysd/dosesim/logging"
	"github.com/stsysd/dosesim/model"
	"github.com/stsysd/dosesim/store"
)

//go:embed substances.yaml
var builtinCatalog []byte

type neurotransmitters struct {
	Dopamine       float64 `yaml:"dopamine"`
	Serotonin      float64 `yaml:"serotonin"`
	Norepinephrine float64 `yaml:"norepinephrine"`
	GABA           float64 `yaml:"gaba"`
	Glutamate      float64 `yaml:"glutamate"`
}

// entry is one catalog record. Pointer fields may be omitted and fall back
// to model.DefaultSubstanceDefaults; an explicit 0 is kept.
type entry struct {
	Name               string            `yaml:"name"`
	Type               string            `yaml:"type"`
	HalfLife           float64           `yaml:"half_life"`
	Bioavailability    *float64          `yaml:"bioavailability"`
	DistributionVolume *float64          `yaml:"distribution_volume"`
	AbsorptionRate     *float64          `yaml:"absorption_rate"`
	EC50               *float64          `yaml:"ec50"`
	Emax               *float64          `yaml:"emax"`
	ToxicityThreshold  float64           `yaml:"toxicity_threshold"`
	LethalDose         float64           `yaml:"lethal_dose"`
	ToleranceFactor    *float64          `yaml:"tolerance_factor"`
	WithdrawalFactor   *float64          `yaml:"withdrawal_factor"`
	Description        string            `yaml:"description"`
	Neurotransmitters  neurotransmitters `yaml:"neurotransmitters"`
}

type catalog struct {
	Substances []entry `yaml:"substances"`
}

func (e entry) substance(d model.SubstanceDefaults) model.Substance {
	return model.Substance{
		Name:               e.Name,
		Type:               e.Type,
		HalfLife:           e.HalfLife,
		Bioavailability:    lo.FromPtrOr(e.Bioavailability, d.Bioavailability),
		DistributionVolume: lo.FromPtrOr(e.DistributionVolume, d.DistributionVolume),
		AbsorptionRate:     lo.FromPtrOr(e.AbsorptionRate, d.AbsorptionRate),
		EC50:               lo.FromPtrOr(e.EC50, d.EC50),
		Emax:               lo.FromPtrOr(e.Emax, d.Emax),
		ToxicityThreshold:  e.ToxicityThreshold,
		LethalDose:         e.LethalDose,
		ToleranceFactor:    lo.FromPtrOr(e.ToleranceFactor, d.ToleranceFactor),
		WithdrawalFactor:   lo.FromPtrOr(e.WithdrawalFactor, d.WithdrawalFactor),
		Description:        e.Description,
		Neurotransmitters:  model.Neurotransmitters(e.Neurotransmitters),
	}
}

// Parse decodes a catalog document and fills omitted engine parameters with
// defaults. Unknown keys and duplicate names are rejected.
func Parse(data []byte) ([]model.Substance, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	if dups := lo.FindDuplicatesBy(c.Substances, func(e entry) string { return e.Name }); len(dups) > 0 {
		return nil, fmt.Errorf("duplicate substance %q in catalog", dups[0].Name)
	}

	defaults := model.DefaultSubstanceDefaults()
	return lo.Map(c.Substances, func(e entry, _ int) model.Substance {
		return e.substance(defaults)
	}), nil
}

// Builtin returns the embedded catalog.
func Builtin() ([]model.Substance, error) {
	return Parse(builtinCatalog)
}

// LoadFile reads a catalog from path.
func LoadFile(path string) ([]model.Substance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Result counts what a Seed call changed.
type Result struct {
	Added   int
	Updated int
}

// Total is the number of substances written.
func (r Result) Total() int { return r.Added + r.Updated }

// Seeder writes catalogs into a store.
type Seeder struct {
	store  store.SubstanceStore
	logger *slog.Logger
}

// NewSeeder creates a Seeder. A nil logger discards output.
func NewSeeder(s store.SubstanceStore, logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Seeder{store: s, logger: logger}
}

// Seed validates every substance, then upserts them by name in one batch.
// Nothing is written when any entry is invalid or the store fails.
func (s *Seeder) Seed(ctx context.Context, substances []model.Substance) (Result, error) {
	prepared := make([]*model.Substance, 0, len(substances))
	for _, sub := range substances {
		p, err := model.NewSubstance(sub)
		if err != nil {
			return Result{}, fmt.Errorf("substance %q: %w", sub.Name, err)
		}
		prepared = append(prepared, p)
	}

	created, err := s.store.UpsertSubstances(ctx, prepared)
	if err != nil {
		return Result{}, fmt.Errorf("storing substances: %w", err)
	}

	var res Result
	for i, sub := range prepared {
		if created[i] {
			res.Added++
		} else {
			res.Updated++
		}
		s.logger.Debug("seeded substance", "name", sub.Name, "id", sub.ID, "created", created[i])
	}

	s.logger.Info("seed complete", "added", res.Added, "updated", res.Updated)
	return res, nil
}
