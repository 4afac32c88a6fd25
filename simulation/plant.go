package simulation

import (
	"fmt"
	"sync"

	"github.com/kcz17/pid/stats"
)

// Plants selectable through configuration.
const (
	Boiler = "boiler"
	Motor  = "motor"
)

// Plant is a simulated system driven by the controller output.
type Plant interface {
	Measure() float64
	// Advance plays out the given controller output over the elapsed seconds.
	Advance(output float64, seconds float64)
}

// NewPlant creates a plant of the given kind with its default parameters.
func NewPlant(kind string, initial float64) (Plant, error) {
	switch kind {
	case Boiler:
		return NewWaterBoiler(initial), nil
	case Motor:
		return NewDCMotor(initial), nil
	default:
		return nil, fmt.Errorf("NewPlant() expected kind to be one of {%s|%s}; got %s", Boiler, Motor, kind)
	}
}

// WaterBoiler is a water boiler where heat dissipates slowly over time.
// Based on https://github.com/m-lundberg/simple-pid/blob/master/examples/water_boiler/water_boiler.py.
type WaterBoiler struct {
	Temp            float64
	HeatRate        float64 // Degrees gained per unit of power per second.
	DissipationRate float64 // Degrees lost per second.
}

func NewWaterBoiler(temp float64) *WaterBoiler {
	return &WaterBoiler{
		Temp:            temp,
		HeatRate:        0.01,
		DissipationRate: 0.2,
	}
}

func (b *WaterBoiler) Measure() float64 { return b.Temp }

func (b *WaterBoiler) Advance(power float64, seconds float64) {
	// Produce heat over the elapsed seconds only if boiler has power.
	if power > 0 {
		b.Temp += b.HeatRate * power * seconds
	}

	// Dissipate heat over the elapsed seconds.
	b.Temp -= b.DissipationRate * seconds
}

// DCMotor is a first-order velocity model: the velocity approaches
// Gain*voltage with the given time constant.
type DCMotor struct {
	Velocity     float64
	Gain         float64
	TimeConstant float64 // Seconds.
}

func NewDCMotor(velocity float64) *DCMotor {
	return &DCMotor{
		Velocity:     velocity,
		Gain:         1,
		TimeConstant: 0.5,
	}
}

func (m *DCMotor) Measure() float64 { return m.Velocity }

func (m *DCMotor) Advance(voltage float64, seconds float64) {
	m.Velocity += (m.Gain*voltage - m.Velocity) / m.TimeConstant * seconds
}

// NoisySensor adds truncated normal noise to every measurement of a plant.
type NoisySensor struct {
	Plant
	Noise *stats.TruncatedNormal
}

func (s *NoisySensor) Measure() float64 {
	return s.Plant.Measure() + s.Noise.Rand()
}

// PlantDriver adapts a plant to a real-time control loop. Every applied
// output advances the plant by a fixed step.
type PlantDriver struct {
	plant   Plant
	seconds float64
	mux     *sync.Mutex
}

func NewPlantDriver(plant Plant, seconds float64) *PlantDriver {
	return &PlantDriver{
		plant:   plant,
		seconds: seconds,
		mux:     &sync.Mutex{},
	}
}

func (d *PlantDriver) Measure() float64 {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.plant.Measure()
}

func (d *PlantDriver) Apply(output float64) {
	d.mux.Lock()
	defer d.mux.Unlock()
	d.plant.Advance(output, d.seconds)
}
