package simulation

import "github.com/kcz17/pid/controller"

// Trace records every cycle of a simulated run.
type Trace struct {
	Setpoint     float64
	Times        []float64
	Measurements []float64
	Outputs      []float64
	Errors       []float64
}

// Run drives plant with pid for the given number of loops, each lasting dt
// seconds.
func Run(pid *controller.PIDController[float64], plant Plant, setpoint float64, dt float64, loops int) *Trace {
	trace := &Trace{
		Setpoint:     setpoint,
		Times:        make([]float64, loops),
		Measurements: make([]float64, loops),
		Outputs:      make([]float64, loops),
		Errors:       make([]float64, loops),
	}
	for i := 0; i < loops; i++ {
		measured := plant.Measure()
		output := pid.Calculate(setpoint, measured, dt)

		trace.Times[i] = float64(i) * dt
		trace.Measurements[i] = measured
		trace.Outputs[i] = output
		trace.Errors[i] = setpoint - measured

		plant.Advance(output, dt)
	}
	return trace
}

// Final returns the last measurement of the run.
func (t *Trace) Final() float64 {
	if len(t.Measurements) == 0 {
		return 0
	}
	return t.Measurements[len(t.Measurements)-1]
}
