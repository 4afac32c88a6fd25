package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/multierr"

	"github.com/kcz17/pid/api"
	"github.com/kcz17/pid/config"
	"github.com/kcz17/pid/controlloop"
	"github.com/kcz17/pid/cycletime"
	"github.com/kcz17/pid/simulation"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "run the control loop in real time with the tuning API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ReadConfig(configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, err := newLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Close()

	collector, err := cycletime.New(*cfg.Loop.CycleTimeCollector, *cfg.Loop.CycleTimeWindow)
	if err != nil {
		return err
	}

	plant, err := newPlant(cfg.Simulation)
	if err != nil {
		return err
	}
	// The plant advances by the nominal period so the simulation keeps pace
	// with the loop.
	driver := simulation.NewPlantDriver(plant, *cfg.Loop.SamplePeriod)

	loop, err := controlloop.NewControlLoop(&controlloop.Options{
		Controller:   newController(cfg.Controller),
		Clock:        controlloop.NewRealtimeClock(),
		Sensor:       driver,
		Actuator:     driver,
		Setpoint:     *cfg.Loop.Setpoint,
		SamplePeriod: time.Duration(*cfg.Loop.SamplePeriod * float64(time.Second)),
		CycleTimes:   collector,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not create control loop: %w", err)
	}
	if err := loop.Start(); err != nil {
		return err
	}

	var apiServer *api.APIServer
	apiErrs := make(chan error, 1)
	if *cfg.API.Enabled {
		apiServer = api.NewAPIServer(loop)
		addr := fmt.Sprintf(":%d", *cfg.API.Port)
		go func() {
			log.Printf("tuning api listening on %s\n", addr)
			apiErrs <- apiServer.ListenAndServe(addr)
		}()
	}

	select {
	case <-ctx.Done():
	case err = <-apiErrs:
		err = fmt.Errorf("api server error: %w", err)
	}

	err = multierr.Append(err, loop.Stop())
	if apiServer != nil {
		err = multierr.Append(err, apiServer.Shutdown())
	}
	log.Printf("control loop stopped; last output %.3f, measured %.3f\n", loop.ReadOutput(), driver.Measure())
	return err
}
