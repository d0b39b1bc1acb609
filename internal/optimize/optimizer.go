// Package optimize drives repeated evaluations over a parameter grid or a
// random sample and selects the best configuration by a chosen score.
package optimize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"portfolio-lab/internal/domain"
	"portfolio-lab/internal/metrics"
)

// ErrExhausted is returned when no parameter combination produced a valid
// score. It is fatal to the optimization call only, never to the batch.
var ErrExhausted = errors.New("no parameter combination produced a valid score")

// Mode selects how combinations are generated.
type Mode int

const (
	// Grid enumerates the Cartesian product of all value sets, uniformly
	// subsampled without replacement when it exceeds MaxTries. Subsampling
	// rather than truncating avoids biasing toward first-enumerated values.
	Grid Mode = iota
	// Random repeatedly draws independent per-parameter values with
	// replacement until MaxTries valid trials are collected or 3x MaxTries
	// attempts are exhausted.
	Random
)

// ParamSpec declares one parameter and its candidate values.
type ParamSpec struct {
	Name   string
	Values []any
}

// Params is one concrete parameter assignment.
type Params map[string]any

// Evaluator runs one trial for a parameter assignment. Internally this is a
// window slice, a curve build and a metrics pass, but the optimizer treats it
// as opaque.
type Evaluator func(ctx context.Context, params Params) (domain.PerformanceMetrics, error)

// Scorer reduces a metrics record to one sortable number.
type Scorer func(domain.PerformanceMetrics) float64

// Options configures an optimization run.
type Options struct {
	Mode     Mode
	Specs    []ParamSpec
	MaxTries int

	// Constraint filters combinations before evaluation. A nil predicate
	// admits everything; a panicking predicate rejects the combination
	// rather than aborting the search.
	Constraint func(Params) bool

	// Score takes precedence over Metric when both are set. Metric is a
	// named statistic lookup; it defaults to SharpeRatio.
	Score  Scorer
	Metric string

	// Seed makes subsampling and random draws reproducible.
	Seed int64
}

// Candidate is one evaluated parameter assignment. Failed trials carry
// Valid=false and are excluded from ranking.
type Candidate struct {
	Params  Params
	Metrics domain.PerformanceMetrics
	Score   float64
	Valid   bool
	Err     error
}

// Result holds the winning candidate and every trial, for inspection output.
type Result struct {
	Best   Candidate
	Trials []Candidate
}

// Run evaluates combinations per the options and returns the
// maximum-scoring candidate. A failed single trial is recorded as no-score
// and excluded; zero successful trials yields ErrExhausted.
func Run(ctx context.Context, opts Options, eval Evaluator) (*Result, error) {
	if len(opts.Specs) == 0 {
		return nil, fmt.Errorf("%w: no parameters declared", ErrExhausted)
	}
	score, err := resolveScorer(opts)
	if err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	var combos []Params
	switch opts.Mode {
	case Random:
		combos = drawRandom(opts, rng)
	default:
		combos = enumerateGrid(opts, rng)
	}

	result := &Result{}
	for _, params := range combos {
		if ctx.Err() != nil {
			break
		}
		result.Trials = append(result.Trials, runTrial(ctx, params, eval, score))
	}

	best := -1
	for i, c := range result.Trials {
		if !c.Valid {
			continue
		}
		if best < 0 || c.Score > result.Trials[best].Score {
			best = i
		}
	}
	if best < 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return nil, ErrExhausted
	}
	result.Best = result.Trials[best]
	return result, nil
}

func runTrial(ctx context.Context, params Params, eval Evaluator, score Scorer) Candidate {
	c := Candidate{Params: params}
	m, err := eval(ctx, params)
	if err != nil {
		c.Err = err
		return c
	}
	c.Metrics = m
	c.Score = score(m)
	c.Valid = !math.IsNaN(c.Score)
	return c
}

func resolveScorer(opts Options) (Scorer, error) {
	if opts.Score != nil {
		return opts.Score, nil
	}
	name := opts.Metric
	if name == "" {
		name = "SharpeRatio"
	}
	fn, ok := metrics.Metric(name)
	if !ok {
		return nil, fmt.Errorf("unknown scoring metric %q", name)
	}
	return fn, nil
}

// enumerateGrid produces the Cartesian product, subsampled down to MaxTries
// when the full grid is larger. Combinations are decoded from mixed-radix
// indices so the full grid is never materialized.
func enumerateGrid(opts Options, rng *rand.Rand) []Params {
	total := 1
	for _, spec := range opts.Specs {
		total *= len(spec.Values)
	}
	if total == 0 {
		return nil
	}

	indices := make([]int, 0, total)
	if opts.MaxTries > 0 && total > opts.MaxTries {
		perm := rng.Perm(total)[:opts.MaxTries]
		sort.Ints(perm)
		indices = append(indices, perm...)
	} else {
		for i := 0; i < total; i++ {
			indices = append(indices, i)
		}
	}

	combos := make([]Params, 0, len(indices))
	for _, idx := range indices {
		params := decodeCombination(opts.Specs, idx)
		if admits(opts.Constraint, params) {
			combos = append(combos, params)
		}
	}
	return combos
}

func decodeCombination(specs []ParamSpec, idx int) Params {
	params := make(Params, len(specs))
	for _, spec := range specs {
		n := len(spec.Values)
		params[spec.Name] = spec.Values[idx%n]
		idx /= n
	}
	return params
}

func drawRandom(opts Options, rng *rand.Rand) []Params {
	maxTries := opts.MaxTries
	if maxTries <= 0 {
		return nil
	}

	combos := make([]Params, 0, maxTries)
	for attempts := 0; attempts < 3*maxTries && len(combos) < maxTries; attempts++ {
		params := make(Params, len(opts.Specs))
		for _, spec := range opts.Specs {
			if len(spec.Values) == 0 {
				return nil
			}
			params[spec.Name] = spec.Values[rng.Intn(len(spec.Values))]
		}
		if admits(opts.Constraint, params) {
			combos = append(combos, params)
		}
	}
	return combos
}

// admits runs the constraint predicate; a panic inside it rejects the
// combination instead of aborting the search.
func admits(constraint func(Params) bool, params Params) (ok bool) {
	if constraint == nil {
		return true
	}
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return constraint(params)
}
