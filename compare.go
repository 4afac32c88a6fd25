package main

import (
	"fmt"
	"io"
	"math"

	"github.com/spf13/cobra"

	"github.com/kcz17/pid/config"
	"github.com/kcz17/pid/simulation"
	"github.com/kcz17/pid/stats"
)

func newCompareCmd() *cobra.Command {
	var kp, ki, kd float64
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "compare candidate gains against the configured gains",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ReadConfig(configPath)
			if err != nil {
				return err
			}

			candidate := cfg.Controller
			if cmd.Flags().Changed("kp") {
				candidate.Kp = &kp
			}
			if cmd.Flags().Changed("ki") {
				candidate.Ki = &ki
			}
			if cmd.Flags().Changed("kd") {
				candidate.Kd = &kd
			}
			return compare(cfg, candidate, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Float64Var(&kp, "kp", 0, "candidate proportional gain")
	cmd.Flags().Float64Var(&ki, "ki", 0, "candidate integral gain")
	cmd.Flags().Float64Var(&kd, "kd", 0, "candidate derivative gain")
	return cmd
}

// compare runs the configured and candidate controllers against identical
// plants, and tests whether their absolute errors are differently distributed.
func compare(cfg *config.Config, candidate config.Controller, out io.Writer) error {
	runs := map[string]config.Controller{
		"baseline":  cfg.Controller,
		"candidate": candidate,
	}
	order := []string{"baseline", "candidate"}

	responses := make(map[string]*stats.StepResponse, len(runs))
	absErrors := make(map[string][]float64, len(runs))
	for _, name := range order {
		plant, err := newPlant(cfg.Simulation)
		if err != nil {
			return err
		}
		trace := simulation.Run(newController(runs[name]), plant, *cfg.Loop.Setpoint, *cfg.Loop.SamplePeriod, *cfg.Simulation.Loops)

		response, err := stats.AnalyzeStepResponse(trace.Times, trace.Measurements, trace.Setpoint, settlingTolerance)
		if err != nil {
			return fmt.Errorf("could not analyze %s step response: %w", name, err)
		}
		responses[name] = response

		errs := make([]float64, len(trace.Errors))
		for i, e := range trace.Errors {
			errs[i] = math.Abs(e)
		}
		absErrors[name] = errs
	}

	writeStepResponse(out, responses, order)

	statistic, rejected, err := stats.KolmogorovSmirnovTest(absErrors["baseline"], absErrors["candidate"], stats.P95)
	if err != nil {
		return fmt.Errorf("could not compare error distributions: %w", err)
	}
	verdict := "not significantly different"
	if rejected {
		verdict = "significantly different"
	}
	fmt.Fprintf(out, "\nKS statistic %.3f: error distributions are %s at p95\n", statistic, verdict)
	return nil
}
