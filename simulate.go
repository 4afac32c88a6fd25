package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kcz17/pid/config"
	"github.com/kcz17/pid/plotting"
	"github.com/kcz17/pid/simulation"
	"github.com/kcz17/pid/stats"
)

// settlingTolerance is the settling band as a fraction of the step size.
const settlingTolerance = 0.02

func newSimulateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "simulate",
		Short: "run the controller against a simulated plant and report the step response",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.ReadConfig(configPath)
			if err != nil {
				return err
			}
			return simulate(cfg, cmd.OutOrStdout())
		},
	}
}

func simulate(cfg *config.Config, out io.Writer) error {
	plant, err := newPlant(cfg.Simulation)
	if err != nil {
		return err
	}

	trace := simulation.Run(newController(cfg.Controller), plant, *cfg.Loop.Setpoint, *cfg.Loop.SamplePeriod, *cfg.Simulation.Loops)
	response, err := stats.AnalyzeStepResponse(trace.Times, trace.Measurements, trace.Setpoint, settlingTolerance)
	if err != nil {
		return fmt.Errorf("could not analyze step response: %w", err)
	}

	fmt.Fprintln(out, plotting.RenderASCII(trace, 15))
	fmt.Fprintln(out)
	writeStepResponse(out, map[string]*stats.StepResponse{"run": response}, []string{"run"})

	if cfg.Simulation.PlotPath != nil && *cfg.Simulation.PlotPath != "" {
		path := *cfg.Simulation.PlotPath
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("could not create plot directory: %w", err)
		}
		if err := plotting.SaveTrace(trace, path); err != nil {
			return err
		}
		fmt.Fprintf(out, "plot saved to %s\n", path)
	}
	return nil
}

func writeStepResponse(out io.Writer, responses map[string]*stats.StepResponse, order []string) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tOVERSHOOT\tSETTLING TIME\tSTEADY-STATE ERROR\tMAE\tIAE")
	for _, name := range order {
		r := responses[name]
		fmt.Fprintf(w, "%s\t%.2f%%\t%.3f\t%.4f\t%.4f\t%.4f\n",
			name, r.Overshoot*100, r.SettlingTime, r.SteadyStateError, r.MeanAbsoluteError, r.IntegralAbsoluteError)
	}
	w.Flush()
}
