package stats

import (
	"errors"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInsufficientData is returned when a sample series is too small for the
// requested statistic.
var ErrInsufficientData = errors.New("insufficient data for statistic")

// NonParametricMinSamples is the smallest series length for which the
// rank-based confidence interval has enough resolution to be meaningful.
const NonParametricMinSamples = 21

// Interval is a two-sided confidence interval at level Alpha.
type Interval struct {
	Alpha float64 `json:"alpha"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

func (ci Interval) Width() float64 {
	return ci.Upper - ci.Lower
}

// HalfWidthPct reports the interval half-width as a percentage of the given
// center value (mean for parametric, median for non-parametric). Used to
// compare interval tightness across runs.
func (ci Interval) HalfWidthPct(center float64) float64 {
	return 100.0 * ci.Width() / center / 2.0
}

// BasicStats returns mean, median, sample standard deviation, and
// coefficient of variation of the series.
func BasicStats(samples []float64) (mean, median, stddev, cv float64, err error) {
	if len(samples) == 0 {
		return 0, 0, 0, 0, ErrInsufficientData
	}

	mean = stat.Mean(samples, nil)
	median = medianOf(samples)

	if len(samples) > 1 {
		stddev = stat.StdDev(samples, nil)
	}
	if mean != 0 {
		cv = stddev / mean
	}

	return mean, median, stddev, cv, nil
}

// ParametricCI computes a confidence interval on the mean at level alpha
// using a Student's t-distribution with n-1 degrees of freedom.
func ParametricCI(alpha float64, samples []float64) (Interval, error) {
	n := len(samples)
	if n < 2 {
		return Interval{}, ErrInsufficientData
	}

	mean := stat.Mean(samples, nil)
	stddev := stat.StdDev(samples, nil)

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}
	t := tDist.Quantile((1 + alpha) / 2)
	margin := t * stddev / math.Sqrt(float64(n))

	return Interval{Alpha: alpha, Lower: mean - margin, Upper: mean + margin}, nil
}

// NonParametricCI computes a distribution-free confidence interval on the
// median at level alpha, following le Boudec's rank-based method. The series
// must have more than 20 samples; callers should skip the computation below
// that, not report a degenerate interval.
func NonParametricCI(alpha float64, samples []float64) (Interval, error) {
	n := len(samples)
	if n < NonParametricMinSamples {
		return Interval{}, ErrInsufficientData
	}

	sorted := make([]float64, n)
	copy(sorted, samples)
	sort.Float64s(sorted)

	z := distuv.Normal{Mu: 0, Sigma: 1}.Quantile((1 + alpha) / 2)
	spread := z * math.Sqrt(float64(n))

	// 1-based ranks of the order statistics bounding the median
	low := int(math.Floor((float64(n) - spread) / 2.0))
	high := int(math.Ceil((float64(n)+spread)/2.0)) + 1
	if low < 1 {
		low = 1
	}
	if high > n {
		high = n
	}

	return Interval{Alpha: alpha, Lower: sorted[low-1], Upper: sorted[high-1]}, nil
}

func medianOf(samples []float64) float64 {
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2.0
	}
	return sorted[mid]
}
