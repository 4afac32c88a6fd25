package simulation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"

	"github.com/kcz17/pid/controller"
	"github.com/kcz17/pid/controlloop"
	"github.com/kcz17/pid/stats"
)

// simulatedClock provides us control over the exact time and seconds to advance by.
type simulatedClock struct {
	t time.Time
}

func newSimulatedClock() *simulatedClock {
	return &simulatedClock{t: time.Date(2020, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *simulatedClock) Now() time.Time { return c.t }

func (c *simulatedClock) advance(seconds int) {
	c.t = c.t.Add(time.Second * time.Duration(seconds))
}

func TestNewPlant(t *testing.T) {
	boiler, err := NewPlant(Boiler, 20)
	require.Nil(t, err)
	assert.Equal(t, 20.0, boiler.Measure())

	motor, err := NewPlant(Motor, 1.5)
	require.Nil(t, err)
	assert.Equal(t, 1.5, motor.Measure())

	_, err = NewPlant("pendulum", 0)
	assert.Error(t, err)
}

func TestWaterBoiler_Advance(t *testing.T) {
	boiler := NewWaterBoiler(20)
	boiler.Advance(100, 2)
	assert.InDelta(t, 20+0.01*100*2-0.2*2, boiler.Measure(), 1e-9)

	// Negative power never cools faster than dissipation.
	boiler.Advance(-1000, 1)
	assert.InDelta(t, 21.6-0.2, boiler.Measure(), 1e-9)
}

// Basic integration test over a simulated period of time.
func TestRun_WaterBoilerSimulation(t *testing.T) {
	setpoint := float64(60)
	pid := controller.NewPIDController(2, 0.05, 0, controller.WithIntegralLimit(500.0))

	trace := Run(pid, NewWaterBoiler(0), setpoint, 1, 300)

	require.Len(t, trace.Measurements, 300)
	assert.Equal(t, 299.0, trace.Times[299])
	assert.Equal(t, setpoint, trace.Errors[0])
	assert.InDeltaf(t, setpoint, trace.Final(), 0.5, "expected temperature after control loops to reach near setpoint of %.3f; got %.3f", setpoint, trace.Final())
}

func TestRun_MotorProportionalSteadyStateError(t *testing.T) {
	setpoint := 10.0
	for _, kp := range []float64{1, 5, 20} {
		trace := Run(controller.NewPIDController(kp, 0, 0), NewDCMotor(0), setpoint, 0.01, 500)

		// A proportional-only controller settles at setpoint*kp/(1+kp).
		want := setpoint * kp / (1 + kp)
		assert.InDeltaf(t, want, trace.Final(), 1e-3, "expected kp %.0f to settle at %.3f; got %.3f", kp, want, trace.Final())

		response, err := stats.AnalyzeStepResponse(trace.Times, trace.Measurements, setpoint, 0.02)
		require.Nil(t, err)
		assert.InDelta(t, setpoint-want, response.SteadyStateError, 1e-2)
		assert.Equal(t, 0.0, response.Overshoot)
	}
}

func TestNoisySensor(t *testing.T) {
	motor := NewDCMotor(3)
	sensor := &NoisySensor{
		Plant: motor,
		Noise: &stats.TruncatedNormal{Lo: -0.5, Hi: 0.5, StdDev: 1, Src: rand.NewSource(7)},
	}
	for i := 0; i < 1000; i++ {
		assert.InDelta(t, 3.0, sensor.Measure(), 0.5)
	}

	// Advancing goes straight to the plant.
	sensor.Advance(3, 1)
	assert.Equal(t, 3.0, motor.Measure())
}

// Runs the boiler through a control loop driven by a simulated clock.
func TestPlantDriver_ControlLoop(t *testing.T) {
	setpoint := float64(60)
	clock := newSimulatedClock()
	driver := NewPlantDriver(NewWaterBoiler(0), 1)
	loop, err := controlloop.NewControlLoop(&controlloop.Options{
		Controller:   controller.NewPIDController(2, 0.05, 0, controller.WithIntegralLimit(500.0)),
		Clock:        clock,
		Sensor:       driver,
		Actuator:     driver,
		Setpoint:     setpoint,
		SamplePeriod: time.Second,
	})
	require.Nilf(t, err, "expected NewControlLoop(...) has no err; got %v", err)

	for i := 0; i < 300; i++ {
		loop.Step()
		clock.advance(1)
	}

	assert.InDeltaf(t, setpoint, driver.Measure(), 0.5, "expected temperature after control loops to reach near setpoint of %.3f; got %.3f", setpoint, driver.Measure())
	assert.Equal(t, time.Second, loop.CycleTimes().P95)
}
