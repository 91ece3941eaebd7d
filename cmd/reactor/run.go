package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/wippyai/plugin-reactor/reactor"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a wait scenario",
	Long: `Loads a YAML scenario, subscribes one pollable per wait and drives the
scenario on the reactor until it resolves, times out or is interrupted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("file")
		if path == "" && len(args) > 0 {
			path = args[0]
		}
		if path == "" {
			return fmt.Errorf("scenario file required (-f)")
		}
		interactive, _ := cmd.Flags().GetBool("interactive")
		showMetrics, _ := cmd.Flags().GetBool("metrics")

		log, err := newLogger(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = log.Sync() }()

		sc, err := LoadScenario(path)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		reg := prometheus.NewRegistry()
		metrics := reactor.NewMetrics(reg)

		var out *Outcome
		if interactive && term.IsTerminal(int(os.Stdout.Fd())) {
			out, err = runInteractive(ctx, sc, log, metrics)
		} else {
			out, err = NewRunner(log, metrics, nil).Run(ctx, sc)
		}
		if out != nil {
			printOutcome(cmd.OutOrStdout(), out)
		}
		if showMetrics {
			if merr := printMetrics(cmd.OutOrStdout(), reg); merr != nil && err == nil {
				err = merr
			}
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("file", "f", "", "Scenario file")
	runCmd.Flags().BoolP("interactive", "i", false, "Show reactor activity in a TUI")
	runCmd.Flags().Bool("metrics", true, "Print reactor metrics after the run")
}

func printOutcome(w io.Writer, out *Outcome) {
	fmt.Fprintf(w, "Run:      %s\n", out.RunID)
	fmt.Fprintf(w, "Scenario: %s (%s)\n", out.Scenario, out.Mode)
	fmt.Fprintf(w, "Elapsed:  %s\n", out.Elapsed.Round(time.Microsecond))
	if out.TimedOut {
		fmt.Fprintln(w, "Result:   timed out")
	}
	if len(out.Ready) == 0 {
		fmt.Fprintln(w, "Ready:    none")
		return
	}
	fmt.Fprintf(w, "Ready:    %s\n", strings.Join(out.Ready, ", "))
}

func printMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	sort.Slice(families, func(i, j int) bool { return families[i].GetName() < families[j].GetName() })

	fmt.Fprintln(w, "\nMetrics:")
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			fmt.Fprintf(w, "  %-45s %g\n", mf.GetName(), metricValue(mf.GetType(), m))
		}
	}
	return nil
}

func metricValue(t dto.MetricType, m *dto.Metric) float64 {
	switch t {
	case dto.MetricType_COUNTER:
		return m.GetCounter().GetValue()
	case dto.MetricType_GAUGE:
		return m.GetGauge().GetValue()
	default:
		return m.GetUntyped().GetValue()
	}
}

