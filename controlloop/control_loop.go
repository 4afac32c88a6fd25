package controlloop

import (
	"errors"
	"sync"
	"time"

	"github.com/kcz17/pid/controller"
	"github.com/kcz17/pid/cycletime"
	"github.com/kcz17/pid/logging"
)

var (
	ErrLoopAlreadyStarted = errors.New("control loop already started")
	ErrLoopNotStarted     = errors.New("control loop not yet started")
)

// defaultCycleTimeWindow is the tachymeter window used if no collector is
// given.
const defaultCycleTimeWindow = 100

// Sensor reads the current value of the controlled quantity.
type Sensor interface {
	Measure() float64
}

// Actuator feeds the controller output back into the controlled system.
type Actuator interface {
	Apply(output float64)
}

type Options struct {
	Controller   *controller.PIDController[float64]
	Clock        Clock // Defaults to RealtimeClock.
	Sensor       Sensor
	Actuator     Actuator
	Setpoint     float64
	SamplePeriod time.Duration
	CycleTimes   cycletime.Collector // Defaults to a tachymeter collector.
	Logger       logging.Logger      // Defaults to a noop logger.
}

// ControlLoop drives a PID controller at a fixed sample period, feeding the
// elapsed time between cycles to the controller in seconds.
type ControlLoop struct {
	clock        Clock
	sensor       Sensor
	actuator     Actuator
	samplePeriod time.Duration
	cycleTimes   cycletime.Collector
	logger       logging.Logger

	// pid is not safe for concurrent use, so it and the fields below are
	// protected by mux as tuning calls may arrive from other goroutines.
	pid      *controller.PIDController[float64]
	setpoint float64
	output   float64
	lastTick time.Time
	mux      *sync.Mutex

	// loopWG allows the spawned goroutine to be gracefully stopped.
	loopMux     *sync.Mutex
	loopStarted bool
	loopWG      *sync.WaitGroup
	loopStop    chan bool
}

func NewControlLoop(options *Options) (*ControlLoop, error) {
	if options == nil {
		return nil, errors.New("NewControlLoop() expected options; got nil")
	}
	if options.Controller == nil {
		return nil, errors.New("NewControlLoop() expected Controller; got nil")
	}
	if options.Sensor == nil || options.Actuator == nil {
		return nil, errors.New("NewControlLoop() expected Sensor and Actuator; got nil")
	}
	if options.SamplePeriod <= 0 {
		return nil, errors.New("NewControlLoop() expected SamplePeriod > 0")
	}

	c := &ControlLoop{
		clock:        options.Clock,
		sensor:       options.Sensor,
		actuator:     options.Actuator,
		samplePeriod: options.SamplePeriod,
		cycleTimes:   options.CycleTimes,
		logger:       options.Logger,
		pid:          options.Controller,
		setpoint:     options.Setpoint,
		mux:          &sync.Mutex{},
		loopMux:      &sync.Mutex{},
	}
	if c.clock == nil {
		c.clock = NewRealtimeClock()
	}
	if c.cycleTimes == nil {
		c.cycleTimes = cycletime.NewTachymeterCollector(defaultCycleTimeWindow)
	}
	if c.logger == nil {
		c.logger = logging.NewNoopLogger()
	}

	return c, nil
}

// Start spawns a goroutine which runs Step once per sample period.
func (c *ControlLoop) Start() error {
	c.loopMux.Lock()
	defer c.loopMux.Unlock()
	if c.loopStarted {
		return ErrLoopAlreadyStarted
	}

	c.loopStop = make(chan bool, 1)
	c.loopWG = &sync.WaitGroup{}
	c.loopWG.Add(1)
	go c.controlLoop()

	c.loopStarted = true
	return nil
}

// Stop waits for the running cycle to finish. The controller keeps its state,
// but the first cycle after a restart is timed as one sample period.
func (c *ControlLoop) Stop() error {
	c.loopMux.Lock()
	defer c.loopMux.Unlock()
	if !c.loopStarted {
		return ErrLoopNotStarted
	}

	close(c.loopStop)
	c.loopWG.Wait()
	c.cycleTimes.Reset()

	c.mux.Lock()
	c.lastTick = time.Time{}
	c.mux.Unlock()

	c.loopStarted = false
	return nil
}

func (c *ControlLoop) controlLoop() {
	ticker := time.NewTicker(c.samplePeriod)
	defer ticker.Stop()
	defer c.loopWG.Done()
	for {
		select {
		case <-ticker.C:
			c.Step()
		case <-c.loopStop:
			return
		}
	}
}

// Step runs a single control cycle and returns the output applied.
func (c *ControlLoop) Step() float64 {
	measured := c.sensor.Measure()

	c.mux.Lock()
	now := c.clock.Now()
	// The first cycle has no previous tick, so the nominal period is used.
	elapsed := c.samplePeriod
	if !c.lastTick.IsZero() {
		elapsed = now.Sub(c.lastTick)
		if elapsed > 0 {
			c.cycleTimes.Add(elapsed)
		}
	}
	c.lastTick = now

	setpoint := c.setpoint
	output := c.pid.Calculate(setpoint, measured, elapsed.Seconds())
	terms := c.pid.Terms()
	c.output = output
	c.mux.Unlock()

	aggregation := c.cycleTimes.Aggregate()
	c.logger.LogMeasurement(setpoint, measured)
	c.logger.LogControllerOutput(output)
	c.logger.LogPIDControllerState(terms.P, terms.I, terms.D, terms.Error)
	c.logger.LogCycleTimes(aggregation.P50.Seconds(), aggregation.P75.Seconds(), aggregation.P95.Seconds())

	c.actuator.Apply(output)
	return output
}

// ReadOutput retrieves the output of the last control cycle.
func (c *ControlLoop) ReadOutput() float64 {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.output
}

func (c *ControlLoop) Gains() (kp, ki, kd float64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.pid.Kp(), c.pid.Ki(), c.pid.Kd()
}

func (c *ControlLoop) SetGains(kp, ki, kd float64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.pid.SetKp(kp)
	c.pid.SetKi(ki)
	c.pid.SetKd(kd)
}

func (c *ControlLoop) SetKp(kp float64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.pid.SetKp(kp)
}

func (c *ControlLoop) SetKi(ki float64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.pid.SetKi(ki)
}

func (c *ControlLoop) SetKd(kd float64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.pid.SetKd(kd)
}

func (c *ControlLoop) IntegralLimit() (float64, bool) {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.pid.IntegralLimit()
}

func (c *ControlLoop) SetIntegralLimit(limit float64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.pid.SetIntegralLimit(limit)
}

func (c *ControlLoop) Setpoint() float64 {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.setpoint
}

func (c *ControlLoop) SetSetpoint(setpoint float64) {
	c.mux.Lock()
	defer c.mux.Unlock()
	c.setpoint = setpoint
}

func (c *ControlLoop) State() controller.State[float64] {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.pid.State()
}

func (c *ControlLoop) Terms() controller.Terms[float64] {
	c.mux.Lock()
	defer c.mux.Unlock()
	return c.pid.Terms()
}

// Snapshot pairs the controller history with the terms of the same cycle.
type Snapshot struct {
	State controller.State[float64]
	Terms controller.Terms[float64]
}

func (c *ControlLoop) Snapshot() Snapshot {
	c.mux.Lock()
	defer c.mux.Unlock()
	return Snapshot{State: c.pid.State(), Terms: c.pid.Terms()}
}

// CycleTimes aggregates the intervals between recent control cycles.
func (c *ControlLoop) CycleTimes() *cycletime.Aggregation {
	return c.cycleTimes.Aggregate()
}

// ResetController replaces the controller with one carrying the same gains
// and integral limit but no history. If clearIntegralLimit is set, the new
// controller is unclamped.
func (c *ControlLoop) ResetController(clearIntegralLimit bool) {
	c.mux.Lock()
	defer c.mux.Unlock()

	var opts []controller.Option[float64]
	if limit, ok := c.pid.IntegralLimit(); ok && !clearIntegralLimit {
		opts = append(opts, controller.WithIntegralLimit(limit))
	}
	c.pid = controller.NewPIDController(c.pid.Kp(), c.pid.Ki(), c.pid.Kd(), opts...)
	c.output = 0
}
