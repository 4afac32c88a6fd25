package stats

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// steadyStateFraction is the trailing share of samples averaged to estimate
// the steady-state error.
const steadyStateFraction = 0.1

type StepResponse struct {
	// Overshoot is the peak excursion past the setpoint as a fraction of the
	// initial step size.
	Overshoot float64
	// SettlingTime is the time from the first sample after which every
	// sample stays within the tolerance band. It is +Inf if the response
	// never settles.
	SettlingTime          float64
	SteadyStateError      float64 // Mean signed error over the trailing samples.
	MeanAbsoluteError     float64
	IntegralAbsoluteError float64
}

// AnalyzeStepResponse calculates step response metrics for values sampled at
// times, which must be increasing. tolerance is the settling band as a
// fraction of the initial step size.
func AnalyzeStepResponse(times, values []float64, setpoint, tolerance float64) (*StepResponse, error) {
	if len(times) != len(values) {
		return nil, errors.New("AnalyzeStepResponse() expected times and values of equal length")
	}
	if len(values) < 2 {
		return nil, errors.New("AnalyzeStepResponse() expected at least two samples")
	}

	step := setpoint - values[0]

	var overshoot float64
	switch {
	case step > 0:
		overshoot = (floats.Max(values) - setpoint) / step
	case step < 0:
		overshoot = (floats.Min(values) - setpoint) / step
	}
	if overshoot < 0 {
		overshoot = 0
	}

	band := tolerance * math.Abs(step)
	if step == 0 {
		band = tolerance
	}

	absErrors := make([]float64, len(values))
	signedErrors := make([]float64, len(values))
	lastOutside := -1
	for i, v := range values {
		signedErrors[i] = setpoint - v
		absErrors[i] = math.Abs(signedErrors[i])
		if absErrors[i] > band {
			lastOutside = i
		}
	}

	settlingTime := math.Inf(1)
	if lastOutside < len(values)-1 {
		settlingTime = times[lastOutside+1] - times[0]
	}

	tail := int(math.Ceil(float64(len(values)) * steadyStateFraction))

	return &StepResponse{
		Overshoot:             overshoot,
		SettlingTime:          settlingTime,
		SteadyStateError:      stat.Mean(signedErrors[len(signedErrors)-tail:], nil),
		MeanAbsoluteError:     stat.Mean(absErrors, nil),
		IntegralAbsoluteError: integrate.Trapezoidal(times, absErrors),
	}, nil
}
