// Package outcome resolves an action's success or failure from its fixed
// random seed and a deterministic difficulty derived from the actor's
// capability context. Given identical inputs, Resolve always returns the
// same result: the seed captured at scheduling time is the only source of
// randomness, so any stored action can be re-resolved bit-for-bit.
package outcome

import (
	"fmt"

	"github.com/simforge/worldsim/core"
)

// Band maps a lower bound to a quality tier. Bands are matched first to
// last. Success bands treat Min as inclusive; failure bands treat it as
// strict, so a gap exactly on a boundary takes the milder tier.
type Band struct {
	Min     float64      `yaml:"min"`
	Quality core.Quality `yaml:"quality"`
}

// Weights tune the difficulty heuristic. Each count is capped before the
// weight applies so a long list cannot drive difficulty to an extreme.
type Weights struct {
	Base          float64 `yaml:"base"`
	PerCapability float64 `yaml:"per_capability"`  // subtracted, up to CountCap capabilities
	PerResource   float64 `yaml:"per_resource"`    // subtracted, up to CountCap resources
	PerConstraint float64 `yaml:"per_constraint"`  // added, up to CountCap constraints
	PerExtraRound float64 `yaml:"per_extra_round"` // added per round of duration beyond the first
	CountCap      int     `yaml:"count_cap"`
	MinDifficulty float64 `yaml:"min_difficulty"`
	MaxDifficulty float64 `yaml:"max_difficulty"`
}

// Policy is the table-driven outcome policy. Success is banded on the seed
// itself; failure is banded on the gap between difficulty and seed.
type Policy struct {
	Weights      Weights `yaml:"weights"`
	SuccessBands []Band  `yaml:"success_bands"`
	FailureBands []Band  `yaml:"failure_bands"`
}

// DefaultPolicy returns the built-in thresholds:
//
//	difficulty = clamp(base − 0.06·caps − 0.04·resources + 0.05·constraints
//	                   + 0.04·(duration−1) + pressure, 0.05, 0.95)
//	SUCCESS iff seed > difficulty
//	success quality: seed ≥ 0.85 strong; ≥ 0.50 modest; else weak
//	failure quality on gap = difficulty − seed:
//	                   gap ≤ 0.15 weak; ≤ 0.40 modest; else catastrophic
func DefaultPolicy() *Policy {
	return &Policy{
		Weights: Weights{
			Base:          0.50,
			PerCapability: 0.06,
			PerResource:   0.04,
			PerConstraint: 0.05,
			PerExtraRound: 0.04,
			CountCap:      5,
			MinDifficulty: 0.05,
			MaxDifficulty: 0.95,
		},
		SuccessBands: []Band{
			{Min: 0.85, Quality: core.QualityStrong},
			{Min: 0.50, Quality: core.QualityModest},
			{Min: 0.00, Quality: core.QualityWeak},
		},
		FailureBands: []Band{
			{Min: 0.40, Quality: core.QualityCatastrophic},
			{Min: 0.15, Quality: core.QualityModest},
			{Min: 0.00, Quality: core.QualityWeak},
		},
	}
}

// Input is the capability/context material feeding the difficulty heuristic.
type Input struct {
	Action        string
	Duration      int
	Capabilities  []string       // the actor's available action labels
	Resources     map[string]any // the actor's resource map
	Constraints   []string
	WorldPressure float64 // scenario adjustment in [-0.2, 0.2], negative eases
}

// Result is the resolved outcome of one action.
type Result struct {
	Outcome     core.Outcome
	Quality     core.Quality
	Threshold   float64 // the computed difficulty the seed was compared against
	Explanation string
}

// Validate checks that the band tables are usable: non-empty and covering
// zero so every value matches a band.
func (p *Policy) Validate() error {
	for name, bands := range map[string][]Band{"success": p.SuccessBands, "failure": p.FailureBands} {
		if len(bands) == 0 {
			return fmt.Errorf("outcome policy: %s bands empty", name)
		}
		if bands[len(bands)-1].Min != 0 {
			return fmt.Errorf("outcome policy: %s bands do not cover zero", name)
		}
	}
	return nil
}

// Difficulty computes the deterministic difficulty for the input.
func (p *Policy) Difficulty(in Input) float64 {
	w := p.Weights
	d := w.Base
	d -= w.PerCapability * float64(capped(len(in.Capabilities), w.CountCap))
	d -= w.PerResource * float64(capped(len(in.Resources), w.CountCap))
	d += w.PerConstraint * float64(capped(len(in.Constraints), w.CountCap))
	if in.Duration > 1 {
		d += w.PerExtraRound * float64(in.Duration-1)
	}
	d += in.WorldPressure
	return clamp(d, w.MinDifficulty, w.MaxDifficulty)
}

// Resolve determines the outcome of an action: SUCCESS iff seed exceeds the
// computed difficulty, with the quality tier drawn from the band tables.
// Pure: identical inputs always produce identical results.
func (p *Policy) Resolve(in Input, seed float64) Result {
	difficulty := p.Difficulty(in)
	if seed > difficulty {
		q := band(p.SuccessBands, seed, false)
		return Result{
			Outcome:     core.OutcomeSuccess,
			Quality:     q,
			Threshold:   difficulty,
			Explanation: fmt.Sprintf("seed %.2f cleared threshold %.2f (%s success)", seed, difficulty, q),
		}
	}
	gap := difficulty - seed
	q := band(p.FailureBands, gap, true)
	return Result{
		Outcome:     core.OutcomeFailure,
		Quality:     q,
		Threshold:   difficulty,
		Explanation: fmt.Sprintf("seed %.2f fell short of threshold %.2f by %.2f (%s failure)", seed, difficulty, gap, q),
	}
}

// bandEpsilon absorbs the representation noise left by float subtraction,
// so a gap like 0.50-0.35 (stored as 0.15000000000000002) still counts as
// sitting exactly on the 0.15 boundary.
const bandEpsilon = 1e-9

func band(bands []Band, v float64, strict bool) core.Quality {
	for _, b := range bands {
		if strict {
			if v > b.Min+bandEpsilon {
				return b.Quality
			}
			continue
		}
		if v >= b.Min-bandEpsilon {
			return b.Quality
		}
	}
	return bands[len(bands)-1].Quality
}

func capped(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
