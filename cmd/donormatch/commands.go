package main

import (
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rgehrsitz/donormatch/internal/calculation"
	"github.com/rgehrsitz/donormatch/internal/config"
	"github.com/rgehrsitz/donormatch/internal/diagnostics"
	"github.com/rgehrsitz/donormatch/internal/domain"
	"github.com/rgehrsitz/donormatch/internal/output"
	"github.com/spf13/cobra"
)

// simpleCLILogger implements calculation.Logger using the standard log package
type simpleCLILogger struct{}

func (simpleCLILogger) Debugf(format string, args ...any) { log.Printf("DEBUG: "+format, args...) }
func (simpleCLILogger) Infof(format string, args ...any)  { log.Printf("INFO: "+format, args...) }
func (simpleCLILogger) Warnf(format string, args ...any)  { log.Printf("WARN: "+format, args...) }
func (simpleCLILogger) Errorf(format string, args ...any) { log.Printf("ERROR: "+format, args...) }

// engineInputs are the files every engine-building command reads.
type engineInputs struct {
	parameters string
	donors     string
	debug      bool
}

func (in *engineInputs) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&in.parameters, "parameters", "p", "", "Engine parameters YAML file (defaults when omitted)")
	cmd.Flags().StringVarP(&in.donors, "donors", "d", "", "Donor population YAML file")
	cmd.Flags().BoolVar(&in.debug, "debug", false, "Enable debug logging")
	_ = cmd.MarkFlagRequired("donors")
}

func (in *engineInputs) build(opts ...calculation.Option) (*calculation.Engine, error) {
	parser := config.NewInputParser()
	params, err := parser.LoadParameters(in.parameters)
	if err != nil {
		return nil, err
	}
	pop, err := parser.LoadPopulation(in.donors)
	if err != nil {
		return nil, err
	}
	if in.debug {
		opts = append(opts, calculation.WithLogger(simpleCLILogger{}))
	}
	engine, err := calculation.NewEngine(params, pop, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build donor engine: %w", err)
	}
	return engine, nil
}

func imputeCmd() *cobra.Command {
	var (
		in           engineInputs
		format       string
		workers      int
		seed         int64
		average      bool
		showIndex    bool
		imperfectOut string
		metricsFile  string
	)
	cmd := &cobra.Command{
		Use:   "impute [households-file]",
		Short: "Impute disposable income and benefits for simulated households",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := output.NewFormatter(format)
			if err != nil {
				return err
			}
			records, err := config.NewInputParser().LoadHouseholds(args[0])
			if err != nil {
				return err
			}

			recorder := diagnostics.NewRecorder(0)
			observers := diagnostics.Tee{recorder}
			registry := prometheus.NewRegistry()
			if metricsFile != "" {
				observers = append(observers, diagnostics.NewPrometheusObserver(registry))
			}

			engine, err := in.build(calculation.WithObserver(observers))
			if err != nil {
				return err
			}

			rng := rand.New(rand.NewSource(seed))
			requests := make([]calculation.Request, len(records))
			for i := range records {
				draw := records[i].Draw.Draw
				switch {
				case average:
					draw = domain.AverageDraw()
				case !records[i].Draw.Set:
					draw = domain.SingleDraw(rng.Float64())
				}
				requests[i] = calculation.Request{Household: &records[i].Household, Draw: draw}
			}

			results := engine.ImputeBatch(cmd.Context(), requests, workers)

			report := &output.Report{
				ParametersFile: in.parameters,
				DonorsFile:     in.donors,
				Rows:           make([]output.Row, len(records)),
			}
			for i, res := range results {
				row := output.Row{
					ID:         records[i].ID,
					Draw:       requests[i].Draw.String(),
					Household:  records[i].Household,
					Imputation: res.Imputation,
				}
				if res.Err != nil {
					row.Error = res.Err.Error()
				}
				report.Rows[i] = row
			}
			report.Summarize(recorder.Len())
			if showIndex {
				report.IndexStats = engine.Index().Stats()
			}

			if imperfectOut != "" {
				if err := writeImperfect(recorder, imperfectOut); err != nil {
					return err
				}
			}
			if metricsFile != "" {
				if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
					return fmt.Errorf("failed to write metrics: %w", err)
				}
			}

			text, err := formatter.Format(report)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			if report.Summary.Failed > 0 {
				return fmt.Errorf("%d of %d households failed", report.Summary.Failed, report.Summary.Households)
			}
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "console", "Output format: "+strings.Join(output.Formats(), ", "))
	cmd.Flags().IntVarP(&workers, "workers", "w", 0, "Worker goroutines (0 = GOMAXPROCS)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Seed for draws of households without one")
	cmd.Flags().BoolVar(&average, "average", false, "Average over preferred donors for every household")
	cmd.Flags().BoolVar(&showIndex, "show-index", false, "Include donor index statistics in the report")
	cmd.Flags().StringVar(&imperfectOut, "imperfect-out", "", "Write imperfect matches to this file (.json or .csv)")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics in text format to this file")
	return cmd
}

func writeImperfect(recorder *diagnostics.Recorder, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		err = recorder.WriteCSV(f)
	} else {
		err = recorder.WriteJSON(f)
	}
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

func validateCmd() *cobra.Command {
	var (
		in     engineInputs
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate engine parameters and a donor population",
		Long: "Builds the donor engine and reports coarsest-regime keys that no donor carries.\n" +
			"Households encoding to such a key cannot be imputed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := in.build()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "✅ %d donor snapshots indexed for system years %v\n",
				engine.Index().Len(), engine.Index().SystemYears())

			gaps := engine.CoverageGaps()
			if len(gaps) == 0 {
				fmt.Fprintln(out, "✅ every coarsest-regime key has donors")
				return nil
			}
			fmt.Fprintf(out, "⚠️  %d coarsest-regime keys have no donors:\n", len(gaps))
			for _, g := range gaps {
				fmt.Fprintf(out, "   %s\n", g)
			}
			if strict {
				return engine.CheckCoverage()
			}
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when coarsest-regime keys have no donors")
	return cmd
}

func indexCmd() *cobra.Command {
	var (
		in     engineInputs
		format string
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Show donor index list sizes per system year and regime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter, err := output.NewFormatter(format)
			if err != nil {
				return err
			}
			engine, err := in.build()
			if err != nil {
				return err
			}
			report := &output.Report{
				ParametersFile: in.parameters,
				DonorsFile:     in.donors,
				IndexStats:     engine.Index().Stats(),
			}
			text, err := formatter.Format(report)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
	in.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "console", "Output format: "+strings.Join(output.Formats(), ", "))
	return cmd
}

func exampleCmd() *cobra.Command {
	var (
		units int
		seed  int64
	)
	cmd := &cobra.Command{
		Use:   "example [output-dir]",
		Short: "Write example parameters, synthetic donors and households",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if units < 2 {
				return fmt.Errorf("need at least 2 donor units, got %d", units)
			}
			paths, err := config.WriteExample(args[0], units, seed)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&units, "units", "n", 2000, "Number of synthetic donor tax units")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed")
	return cmd
}
