package fpl

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Schedule holds the Federal Poverty Level guidelines: an annual dollar
// amount per household size 1-8, plus a per-person increment for larger
// households. Eligibility is assessed at 200% of the guideline.
type Schedule struct {
	Base      map[int]float64 `yaml:"base"`
	Increment float64         `yaml:"increment"`
}

const maxTableSize = 8

// Default returns the 2024 HHS poverty guidelines for the 48 contiguous
// states and DC.
func Default() *Schedule {
	return &Schedule{
		Base: map[int]float64{
			1: 15060,
			2: 20440,
			3: 25820,
			4: 31200,
			5: 36580,
			6: 41960,
			7: 47340,
			8: 52720,
		},
		Increment: 5380,
	}
}

// LoadFile reads a schedule override from a YAML file. The guidelines
// change yearly, so deployments can swap the table without a rebuild.
func LoadFile(path string) (*Schedule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read FPL schedule: %w", err)
	}

	var s Schedule
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse FPL schedule: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("invalid FPL schedule %s: %w", path, err)
	}
	return &s, nil
}

func (s *Schedule) validate() error {
	for size := 1; size <= maxTableSize; size++ {
		amount, ok := s.Base[size]
		if !ok {
			return fmt.Errorf("missing base amount for household size %d", size)
		}
		if amount <= 0 {
			return fmt.Errorf("base amount for household size %d must be positive", size)
		}
	}
	if s.Increment <= 0 {
		return fmt.Errorf("per-person increment must be positive")
	}
	return nil
}

// PovertyLevel returns the guideline amount for a household of the given
// size. Sizes above 8 extend the table by the per-person increment.
// Sizes below 1 are the caller's validation problem; they clamp to 1.
func (s *Schedule) PovertyLevel(householdSize int) float64 {
	if householdSize < 1 {
		householdSize = 1
	}
	if householdSize <= maxTableSize {
		return s.Base[householdSize]
	}
	return s.Base[maxTableSize] + s.Increment*float64(householdSize-maxTableSize)
}

// Threshold returns the eligibility cutoff: 200% of the poverty level.
func (s *Schedule) Threshold(householdSize int) float64 {
	return 2 * s.PovertyLevel(householdSize)
}
