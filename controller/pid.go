package controller

import "golang.org/x/exp/constraints"

// Number is any numeric type the controller can operate on: signed integers
// (including fixed-point values stored in them) and floating-point types.
type Number interface {
	constraints.Signed | constraints.Float
}

// PIDController computes a correction from the difference between a setpoint
// and a measured value. It is advanced once per control cycle by the caller
// and is not safe for concurrent use.
type PIDController[N Number] struct {
	kp N // Proportional gain constant.
	ki N // Integral gain constant.
	kd N // Differential gain constant.

	// integralLimit clamps the accumulated integral to [-integralLimit,
	// integralLimit], but only if hasIntegralLimit is set. A zero limit is a
	// valid clamp which forces the integral term to zero.
	integralLimit    N
	hasIntegralLimit bool

	previousError    N // Used to calculate the differential term.
	previousIntegral N // Running integral term, after clamping.
	previousOutput   N // Returned if the elapsed time is not positive.

	// lastTerms is committed together with the fields above.
	lastTerms Terms[N]
}

// State is a snapshot of the values carried between control cycles.
type State[N Number] struct {
	PreviousError    N
	PreviousIntegral N
	PreviousOutput   N
}

// Terms holds the contribution of each term to the last output.
type Terms[N Number] struct {
	Error N
	P     N
	I     N
	D     N
}

type Option[N Number] func(*PIDController[N])

// WithIntegralLimit installs a symmetric clamp on the accumulated integral to
// bound integral windup.
func WithIntegralLimit[N Number](limit N) Option[N] {
	return func(c *PIDController[N]) {
		c.integralLimit = limit
		c.hasIntegralLimit = true
	}
}

// NewPIDController creates a controller with zeroed history. Gains are not
// validated as negative gains are legitimate for inverted-response systems.
func NewPIDController[N Number](kp, ki, kd N, opts ...Option[N]) *PIDController[N] {
	c := &PIDController[N]{
		kp: kp,
		ki: ki,
		kd: kd,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Calculate runs a single control cycle. deltaTime is the time elapsed since
// the previous cycle in any unit the caller uses consistently. If deltaTime is
// not positive, the previous output is returned and no state is changed.
func (c *PIDController[N]) Calculate(setpoint, measured, deltaTime N) N {
	var zero N
	if deltaTime <= zero {
		return c.previousOutput
	}

	err := setpoint - measured

	// The whole accumulation is rescaled by the current interval rather than
	// only the new contribution.
	integral := (c.previousIntegral + err) * deltaTime
	if c.hasIntegralLimit {
		if integral > c.integralLimit {
			integral = c.integralLimit
		} else if integral < -c.integralLimit {
			integral = -c.integralLimit
		}
	}

	derivative := (err - c.previousError) / deltaTime

	terms := Terms[N]{
		Error: err,
		P:     err * c.kp,
		I:     integral * c.ki,
		D:     derivative * c.kd,
	}
	output := terms.P + terms.I + terms.D

	// Save calculations for the next cycle.
	c.previousError = err
	c.previousIntegral = integral
	c.previousOutput = output
	c.lastTerms = terms

	return output
}

func (c *PIDController[N]) Kp() N     { return c.kp }
func (c *PIDController[N]) SetKp(v N) { c.kp = v }

func (c *PIDController[N]) Ki() N     { return c.ki }
func (c *PIDController[N]) SetKi(v N) { c.ki = v }

func (c *PIDController[N]) Kd() N     { return c.kd }
func (c *PIDController[N]) SetKd(v N) { c.kd = v }

// IntegralLimit returns the integral clamp and whether one is installed.
func (c *PIDController[N]) IntegralLimit() (N, bool) {
	return c.integralLimit, c.hasIntegralLimit
}

// SetIntegralLimit installs the integral clamp. There is no way to remove a
// clamp once set; construct a new controller instead.
func (c *PIDController[N]) SetIntegralLimit(limit N) {
	c.integralLimit = limit
	c.hasIntegralLimit = true
}

func (c *PIDController[N]) State() State[N] {
	return State[N]{
		PreviousError:    c.previousError,
		PreviousIntegral: c.previousIntegral,
		PreviousOutput:   c.previousOutput,
	}
}

// Terms returns the breakdown of the last committed output.
func (c *PIDController[N]) Terms() Terms[N] {
	return c.lastTerms
}
