package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

type Percentile = int

const (
	P90 Percentile = iota
	P95
	P97d5
	P99
	P99d5
	P99d9
)

// coefficients are KS-coefficients.
// Retrieved from: https://www.webdepot.umontreal.ca/Usagers/angers/MonDepotPublic/STT3500H10/Critical_KS.pdf
var coefficients = map[Percentile]float64{
	P90:   1.22,
	P95:   1.36,
	P97d5: 1.48,
	P99:   1.63,
	P99d5: 1.73,
	P99d9: 1.95,
}

// KolmogorovSmirnovTest performs a two-tailed KS-test, returning the test
// statistic and whether the null hypothesis is rejected (i.e., the candidate
// distribution differs from the control distribution).
func KolmogorovSmirnovTest(control []float64, candidate []float64, percentile Percentile) (float64, bool, error) {
	coeff, ok := coefficients[percentile]
	if !ok {
		return 0, false, fmt.Errorf("unexpected percentile %v, see Percentile type", percentile)
	}
	if len(control) == 0 || len(candidate) == 0 {
		return 0, false, fmt.Errorf("expected non-empty samples; got %d control and %d candidate", len(control), len(candidate))
	}

	criticalValue := coeff * math.Sqrt(float64(len(control)+len(candidate))/float64(len(control)*len(candidate)))

	// Copy the input slices so we can sort them.
	sortedControl := make([]float64, len(control))
	copy(sortedControl, control)
	sort.Float64s(sortedControl)

	sortedCandidate := make([]float64, len(candidate))
	copy(sortedCandidate, candidate)
	sort.Float64s(sortedCandidate)

	// Pass in nil weights as gonum's stat package allows inputs to be
	// weighted, which is not relevant to our situation.
	testStatistic := stat.KolmogorovSmirnov(sortedControl, nil, sortedCandidate, nil)

	return testStatistic, testStatistic > criticalValue, nil
}
