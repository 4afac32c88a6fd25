package stats

import (
	"time"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// TruncatedNormal samples a normal distribution restricted to [Lo, Hi].
type TruncatedNormal struct {
	Lo, Hi   float64
	Mean     float64
	StdDev   float64
	Src      rand.Source // Seeded from the current time if nil.
	norm     distuv.Normal
	uniform  distuv.Uniform
	prepared bool
}

func (d *TruncatedNormal) prepare() {
	if d.Src == nil {
		d.Src = rand.NewSource(uint64(time.Now().UTC().UnixNano()))
	}

	// Use an inverse transform method to sample from the distribution.
	// Reference: https://www.r-bloggers.com/2020/08/generating-data-from-a-truncated-distribution/
	d.norm = distuv.Normal{
		Mu:    d.Mean,
		Sigma: d.StdDev,
		Src:   d.Src,
	}
	d.uniform = distuv.Uniform{
		Min: d.norm.CDF(d.Lo),
		Max: d.norm.CDF(d.Hi),
		Src: d.Src,
	}
	d.prepared = true
}

// Rand returns a single sample. A zero StdDev always returns Mean.
func (d *TruncatedNormal) Rand() float64 {
	if d.StdDev == 0 {
		return d.Mean
	}
	if !d.prepared {
		d.prepare()
	}
	return d.norm.Quantile(d.uniform.Rand())
}

func SampleTruncatedNormalDistribution(lo, hi, mean, stdDev float64) float64 {
	d := &TruncatedNormal{Lo: lo, Hi: hi, Mean: mean, StdDev: stdDev}
	return d.Rand()
}
