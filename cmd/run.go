/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/farzad1132/hellobench/loadgen"
	"github.com/spf13/cobra"
)

// flags for runCmd
var runFlags struct {
	url        string
	dist       string
	rates      string
	durations  string
	workers    int
	transport  string
	output     string
	printStats bool
	warmup     int
	cooldown   int
	slo        int
}

var errRunFailed = errors.New("run finished with skipped iterations or errors")

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:          "run",
	Short:        "run the request workload generator against the server",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return Run(ctx, cmd)
	},
}

func init() {
	runCmd.Flags().StringVarP(&runFlags.url, "url", "u", "http://127.0.0.1:1080/", "URL to fetch over HTTP/1.1")
	runCmd.Flags().StringVarP(&runFlags.dist, "dist", "d", "", "Distribution type to test: fixed or exp")
	runCmd.Flags().StringVarP(&runFlags.rates, "rates", "r", "", "Comma-separated list of rates to test, e.g. 10,20,50")
	runCmd.Flags().StringVarP(&runFlags.durations, "durations", "D", "", "Comma-separated list of durations (in seconds), e.g. 10,20,50")
	runCmd.Flags().IntVarP(&runFlags.workers, "workers", "w", 0, "Number of concurrent workers to use")
	runCmd.Flags().StringVarP(&runFlags.transport, "transport", "t", loadgen.TransportHTTP, "Client stack to use (http or fasthttp)")
	runCmd.Flags().StringVarP(&runFlags.output, "output", "o", "out.csv", "Output file to write results to (CSV format)")
	runCmd.Flags().BoolVarP(&runFlags.printStats, "stats", "s", true, "Print stats at the end of the test")
	runCmd.Flags().IntVar(&runFlags.warmup, "warmup", 0, "Warmup seconds to trim from start of the stats")
	runCmd.Flags().IntVar(&runFlags.cooldown, "cooldown", 0, "Cooldown seconds to trim from end of the stats")
	runCmd.Flags().IntVar(&runFlags.slo, "slo", 0, "SLO in milliseconds; requests slower than this are counted")

	for _, name := range []string{"dist", "rates", "durations", "workers"} {
		if err := runCmd.MarkFlagRequired(name); err != nil {
			panic(err)
		}
	}
	rootCmd.AddCommand(runCmd)
}

func Run(ctx context.Context, cmd *cobra.Command) error {
	phases, err := loadgen.ParsePhases(runFlags.rates, runFlags.durations)
	if err != nil {
		return err
	}
	total := loadgen.TotalDuration(phases)
	warmup := time.Duration(runFlags.warmup) * time.Second
	cooldown := time.Duration(runFlags.cooldown) * time.Second
	if warmup < 0 || cooldown < 0 || runFlags.slo < 0 {
		return errors.New("warmup, cooldown and slo must not be negative")
	}
	if warmup+cooldown >= total {
		return fmt.Errorf("warmup and cooldown (%s) leave nothing of the %s run", warmup+cooldown, total)
	}
	cfg := loadgen.Config{
		URL:       runFlags.url,
		Dist:      runFlags.dist,
		Transport: runFlags.transport,
		Phases:    phases,
		Workers:   runFlags.workers,
	}

	out := cmd.OutOrStdout()
	collector, err := loadgen.Run(ctx, cfg, out)
	if collector == nil {
		return err
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "run interrupted: %v\n", err)
	}

	collector.SLO = time.Duration(runFlags.slo) * time.Millisecond
	if runFlags.printStats {
		collector.Trim(warmup, cooldown, total).PrintStats(out, total-warmup-cooldown)
	}
	if runFlags.output != "" {
		if err := exportCSV(collector, runFlags.output); err != nil {
			return err
		}
		fmt.Fprintln(out, "Exported results to", runFlags.output)
	} else {
		fmt.Fprintln(out, "No output file specified, not writing results")
	}

	st := collector.Stats(total)
	if st.SkippedIterations > 0 || st.NumErrors > 0 {
		return errRunFailed
	}
	return err
}

func exportCSV(collector *loadgen.Collector, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := collector.WriteCSV(w); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
