package main

import (
	"fmt"

	"github.com/kcz17/pid/config"
	"github.com/kcz17/pid/controller"
	"github.com/kcz17/pid/logging"
	"github.com/kcz17/pid/simulation"
	"github.com/kcz17/pid/stats"
)

// noiseBound truncates measurement noise to this many standard deviations.
const noiseBound = 3

func newController(c config.Controller) *controller.PIDController[float64] {
	var opts []controller.Option[float64]
	if c.IntegralLimit != nil {
		opts = append(opts, controller.WithIntegralLimit(*c.IntegralLimit))
	}
	return controller.NewPIDController(*c.Kp, *c.Ki, *c.Kd, opts...)
}

func newPlant(s config.Simulation) (simulation.Plant, error) {
	plant, err := simulation.NewPlant(*s.Plant, *s.InitialValue)
	if err != nil {
		return nil, err
	}
	if *s.NoiseStdDev == 0 {
		return plant, nil
	}

	bound := noiseBound * *s.NoiseStdDev
	return &simulation.NoisySensor{
		Plant: plant,
		Noise: &stats.TruncatedNormal{Lo: -bound, Hi: bound, StdDev: *s.NoiseStdDev},
	}, nil
}

func newLogger(l config.Logging) (logging.Logger, error) {
	var influx *logging.InfluxDBOptions
	if l.InfluxDB != nil {
		influx = &logging.InfluxDBOptions{
			Addr:   *l.InfluxDB.Addr,
			Token:  *l.InfluxDB.Token,
			Org:    *l.InfluxDB.Org,
			Bucket: *l.InfluxDB.Bucket,
		}
	}
	logger, err := logging.New(*l.Driver, influx)
	if err != nil {
		return nil, fmt.Errorf("could not create logger: %w", err)
	}
	return logger, nil
}
