package power

import (
	"math"

	"expcalc/domain/core"
	"expcalc/domain/experiment"
)

// SampleSizeInput is a fully validated sample size problem. Alpha is the
// significance level after corrections.
type SampleSizeInput struct {
	Outcome  experiment.OutcomeType
	Baseline experiment.Baseline
	Config   experiment.TestConfig
	Alpha    float64
}

// SolveSampleSize returns the smallest per-arm sizes that give every
// comparison of the design at least the requested power. Each comparison is
// solved as an independent two-sample problem; the one needing the most
// traffic seeds an integer search over totals split by allocation and
// rounded up. Every arm gets at least experiment.MinArmSize units.
func (s *Solver) SolveSampleSize(in SampleSizeInput) (experiment.SampleSizeResult, error) {
	if err := checkBaseline(in.Outcome, in.Baseline); err != nil {
		return experiment.SampleSizeResult{}, err
	}

	cfg := in.Config
	target, err := experiment.ResolveTarget(in.Baseline.Value, cfg.MinimumDetectableEffect, cfg.EffectType, in.Outcome)
	if err != nil {
		return experiment.SampleSizeResult{}, err
	}
	delta := target - in.Baseline.Value
	if delta == 0 {
		return experiment.SampleSizeResult{}, core.NewDomainError("effect %g %s on baseline %g is zero",
			cfg.MinimumDetectableEffect, cfg.EffectType, in.Baseline.Value)
	}

	pairs, err := experiment.Comparisons(cfg.ComparisonType, cfg.Groups())
	if err != nil {
		return experiment.SampleSizeResult{}, core.NewValidationError("allocation_ratios", err.Error())
	}

	seed := 0.0
	for _, pair := range pairs {
		kA, kB := cfg.AllocationRatios[pair.Baseline], cfg.AllocationRatios[pair.Treatment]
		sp, err := s.spreadFor(in.Outcome, in.Baseline.Value, target, in.Baseline.StdDev, kA, kB)
		if err != nil {
			return experiment.SampleSizeResult{}, err
		}
		n, err := s.totalFor(sp, delta, kA, kB, in.Alpha, cfg.PowerLevel)
		if err != nil {
			return experiment.SampleSizeResult{}, err
		}
		seed = math.Max(seed, n)
	}

	best, err := s.smallestDesign(in, target, pairs, seed)
	if err != nil {
		return experiment.SampleSizeResult{}, err
	}

	result := experiment.SampleSizeResult{
		SampleSizePerGroup:        make([]experiment.GroupSampleSize, cfg.Groups()),
		LimitingComparison:        best.limiting,
		TargetValue:               target,
		AdjustedSignificanceLevel: in.Alpha,
		AchievedPower:             best.power,
	}
	for i, ratio := range cfg.AllocationRatios {
		result.SampleSizePerGroup[i] = experiment.GroupSampleSize{
			Group:      experiment.DefaultGroupName(i),
			Allocation: ratio,
			SampleSize: best.sizes[i],
		}
		result.TotalSampleSize += best.sizes[i]
	}

	result.StandardizedEffect, err = experiment.StandardizedEffect(in.Baseline.Value, target, in.Baseline.StdDev, in.Outcome)
	if err != nil {
		return experiment.SampleSizeResult{}, err
	}

	return result, nil
}

// totalFor solves the power relation for the total number of units N
// spread kA:kB over one comparison. The closed form
//
//	N = ((t_a*s0 + t_b*s1) / |delta|)^2
//
// depends on N through the t quantiles, so it is iterated from the normal
// approximation. At small N the iteration can oscillate; the result only
// seeds smallestDesign and need not be exact.
func (s *Solver) totalFor(sp spread, delta, kA, kB, alpha, power float64) (float64, error) {
	solve := func(critAlpha, critPower float64) float64 {
		root := (critAlpha*sp.s0 + critPower*sp.s1) / math.Abs(delta)
		return root * root
	}

	za := s.dist.NormalQuantile(1 - alpha/2)
	zb := s.dist.NormalQuantile(power)
	if za*sp.s0+zb*sp.s1 <= 0 {
		return 0, core.NewDomainError("power %g is not above the false positive rate at alpha %g", power, alpha)
	}
	n := solve(za, zb)

	for i := 0; i < s.MaxRefinements; i++ {
		df := math.Max(n*(kA+kB)-2, 1)
		next := solve(s.dist.StudentsTQuantile(1-alpha/2, df), s.dist.StudentsTQuantile(power, df))
		if math.Abs(next-n) <= 1e-9*n {
			return next, nil
		}
		n = next
	}
	return n, nil
}

// maxTotalUnits bounds the sample size search.
const maxTotalUnits = 1 << 50

// design is one candidate split of a total across the arms, with the power of
// its weakest comparison.
type design struct {
	sizes    []int
	power    float64
	limiting experiment.Comparison
}

// smallestDesign returns the smallest total whose rounded-up arm sizes give
// every comparison at least the requested power. Rounding makes power a step
// function of the total, so the continuous solution only seeds a doubling
// search followed by an integer bisection.
func (s *Solver) smallestDesign(in SampleSizeInput, target float64, pairs []experiment.Comparison, seed float64) (design, error) {
	ratios := in.Config.AllocationRatios
	if seed > maxTotalUnits {
		return design{}, core.NewDomainError("required sample size exceeds %d units", maxTotalUnits)
	}

	evaluate := func(total int) (design, error) {
		d := design{sizes: armSizes(ratios, total), power: math.Inf(1)}
		for _, pair := range pairs {
			p, err := s.Power(in.Outcome, in.Baseline, target, d.sizes[pair.Baseline], d.sizes[pair.Treatment], in.Alpha)
			if err != nil {
				return design{}, err
			}
			if p < d.power {
				d.power, d.limiting = p, pair
			}
		}
		return d, nil
	}

	floor := minimumTotal(ratios)
	lo := floor - 1 // largest total known to fall short
	hi := floor
	if seed > float64(hi) {
		hi = int(math.Ceil(seed))
	}

	best, err := evaluate(hi)
	if err != nil {
		return design{}, err
	}
	for doublings := 0; best.power < in.Config.PowerLevel; doublings++ {
		if hi > maxTotalUnits {
			return design{}, core.NewConvergenceError(doublings, float64(floor), float64(hi))
		}
		lo, hi = hi, 2*hi
		if best, err = evaluate(hi); err != nil {
			return design{}, err
		}
	}

	for hi-lo > 1 {
		mid := lo + (hi-lo)/2
		d, err := evaluate(mid)
		if err != nil {
			return design{}, err
		}
		if d.power >= in.Config.PowerLevel {
			hi, best = mid, d
		} else {
			lo = mid
		}
	}
	return best, nil
}

// armSizes splits total by allocation, rounding each arm up.
func armSizes(ratios []float64, total int) []int {
	sizes := make([]int, len(ratios))
	for i, r := range ratios {
		sizes[i] = int(math.Ceil(r * float64(total)))
	}
	return sizes
}

// minimumTotal is the smallest total for which every arm gets at least
// experiment.MinArmSize units.
func minimumTotal(ratios []float64) int {
	smallest := math.Inf(1)
	for _, r := range ratios {
		smallest = math.Min(smallest, r)
	}
	total := int(float64(experiment.MinArmSize-1)/smallest) + 1
	if floor := experiment.MinArmSize * len(ratios); total < floor {
		total = floor
	}
	for {
		ok := true
		for _, n := range armSizes(ratios, total) {
			if n < experiment.MinArmSize {
				ok = false
				break
			}
		}
		if ok {
			return total
		}
		total++
	}
}
