package experiment

import "fmt"

// Comparison is an ordered pair of arm indices. Effects are reported as
// Treatment relative to Baseline.
type Comparison struct {
	Baseline  int `json:"baseline"`
	Treatment int `json:"treatment"`
}

// Swap returns the comparison with the roles reversed.
func (c Comparison) Swap() Comparison {
	return Comparison{Baseline: c.Treatment, Treatment: c.Baseline}
}

func (c Comparison) String() string {
	return fmt.Sprintf("%s vs %s", DefaultGroupName(c.Treatment), DefaultGroupName(c.Baseline))
}

// Comparisons enumerates the arm pairs of a design with the given number of
// groups. AllVsControl pairs every treatment with arm 0; AllPairwise yields
// every (i, j) with i < j.
func Comparisons(ct ComparisonType, groups int) ([]Comparison, error) {
	if groups < 2 {
		return nil, fmt.Errorf("need at least 2 groups, got %d", groups)
	}

	switch ct {
	case CompareAllVsControl:
		pairs := make([]Comparison, 0, groups-1)
		for i := 1; i < groups; i++ {
			pairs = append(pairs, Comparison{Baseline: 0, Treatment: i})
		}
		return pairs, nil
	case CompareAllPairwise:
		pairs := make([]Comparison, 0, groups*(groups-1)/2)
		for i := 0; i < groups; i++ {
			for j := i + 1; j < groups; j++ {
				pairs = append(pairs, Comparison{Baseline: i, Treatment: j})
			}
		}
		return pairs, nil
	}
	return nil, fmt.Errorf("unknown comparison type %q", ct)
}

// NumberOfComparisons is the size of the comparison family for a design.
func NumberOfComparisons(ct ComparisonType, groups int) int {
	switch ct {
	case CompareAllVsControl:
		return groups - 1
	case CompareAllPairwise:
		return groups * (groups - 1) / 2
	}
	return 0
}
