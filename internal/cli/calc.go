package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/verity-ndt/tminus/internal/anomaly"
	"github.com/verity-ndt/tminus/internal/audit"
	"github.com/verity-ndt/tminus/internal/calc"
	"github.com/verity-ndt/tminus/internal/compiler"
	"github.com/verity-ndt/tminus/internal/pipeline"
	"github.com/verity-ndt/tminus/internal/store"
	"github.com/verity-ndt/tminus/internal/stress"
)

// CalcOptions holds flags for the calc command.
type CalcOptions struct {
	*RootOptions
	Database      string
	Actor         string
	StressFile    string
	StressVersion string
	ConfigFile    string
}

// ComponentReport summarizes one component's run for CLI output.
type ComponentReport struct {
	ComponentID string `json:"component_id"`
	Status      string `json:"status"` // "ok", "degraded", "failed"
	Error       string `json:"error,omitempty"`

	ActualThickness float64  `json:"actual_thickness_in,omitempty"`
	Required        *float64 `json:"required_thickness_in,omitempty"`
	MAWP            *float64 `json:"mawp_psi,omitempty"`
	CorrosionRate   *float64 `json:"corrosion_rate_in_yr,omitempty"`
	RemainingLife   *float64 `json:"remaining_life_yr,omitempty"`
	NextInspection  string   `json:"next_inspection,omitempty"`
	Reinforced      *bool    `json:"reinforcement_adequate,omitempty"`

	Anomalies int      `json:"anomalies"`
	Warnings  []string `json:"warnings,omitempty"`
}

// VesselReport summarizes one vessel's run for CLI output.
type VesselReport struct {
	VesselID string `json:"vessel_id"`
	RunToken string `json:"run_token"`

	Evaluated          bool    `json:"evaluated"`
	Safe               bool    `json:"safe"`
	GoverningComponent string  `json:"governing_component,omitempty"`
	GoverningMAWP      float64 `json:"governing_mawp_psi,omitempty"`
	DeRateTo           float64 `json:"de_rate_to_psi,omitempty"`

	Components []ComponentReport `json:"components"`
}

// CalcReport is the complete calc command output.
type CalcReport struct {
	TableVersion     string         `json:"table_version"`
	Vessels          []VesselReport `json:"vessels"`
	FailedComponents int            `json:"failed_components"`
}

// NewCalcCommand creates the calc command.
func NewCalcCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CalcOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "calc <defs-path>",
		Short: "Run fitness-for-service calculations for vessel definitions",
		Long: `Run the full calculation chain for every vessel definition found.

Definitions are compiled and validated, components and inline surveys
are imported into the database (write-once per component revision;
bump the revision when geometry or design conditions change), and each
vessel runs against the resolved stress table. Results, anomalies, and
audit entries are persisted in one transaction per vessel run.

The stress table resolves in order: --stress <file> (loaded and stored),
--stress-version <v> (read from the database), or the built-in default.

Exit codes:
  0 - All components calculated
  1 - Invalid definitions, stress table conflict, or failed components
  2 - Command error (bad paths, database errors)

Examples:
  tminus calc --db ./plant.db --actor insp-12 ./defs
  tminus calc --db ./plant.db --actor insp-12 --stress tables/2024_1.yaml defs/v101.cue
  tminus calc --db ./plant.db --actor insp-12 --stress-version 2024.1 ./defs --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCalc(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Actor, "actor", "", "actor recorded on the audit trail (required)")
	_ = cmd.MarkFlagRequired("actor")
	cmd.Flags().StringVar(&opts.StressFile, "stress", "", "stress table YAML file to load and use")
	cmd.Flags().StringVar(&opts.StressVersion, "stress-version", "", "stored stress table version to use")
	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "engine config YAML overlay")

	return cmd
}

func runCalc(opts *CalcOptions, defsPath string, cmd *cobra.Command) error {
	// Configure logging based on verbose flag
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))

	if opts.StressFile != "" && opts.StressVersion != "" {
		return NewExitError(ExitCommandError, "--stress and --stress-version are mutually exclusive")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	// Compile definitions
	slog.Info("compiling definitions", "path", defsPath)
	loadResult, loadErrors := LoadDefinitions(defsPath, LoadModeFailFast)
	if len(loadErrors) > 0 {
		return WrapExitError(ExitCommandError, "failed to compile definitions", loadErrors[0])
	}
	defs := loadResult.Definitions
	slog.Info("definitions compiled", "vessels", len(defs))

	// Validate before anything touches the database
	var validationErrors []compiler.ValidationError
	for i := range defs {
		validationErrors = append(validationErrors, compiler.Validate(&defs[i])...)
	}
	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	// Open database (create if not exists)
	slog.Info("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	table, fromStore, err := resolveStressTable(ctx, st, opts)
	if err != nil {
		return err
	}
	if !fromStore {
		if err := st.WriteStressTable(ctx, table); err != nil {
			// The version exists with different data: refusing protects
			// the audit trail's table-version references.
			return WrapExitError(ExitFailure, "stress table conflict", err)
		}
	}
	slog.Info("stress table resolved", "version", table.Version(), "materials", len(table.Materials()))

	cfg := calc.DefaultConfig()
	if opts.ConfigFile != "" {
		cfg, err = calc.LoadConfig(opts.ConfigFile)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load config", err)
		}
	}

	// Import components and surveys; both writes are idempotent.
	for _, def := range defs {
		for _, c := range def.Components {
			if err := st.WriteComponent(ctx, c); err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("failed to store component %s", c.ID), err)
			}
		}
		for _, m := range def.Surveys {
			if err := st.WriteMeasurement(ctx, m); err != nil {
				return WrapExitError(ExitCommandError, fmt.Sprintf("failed to store survey for %s", m.ComponentID), err)
			}
		}
	}

	// Resume sequence numbering above everything already persisted.
	lastSeq, err := st.LastSeq(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read last sequence", err)
	}

	runner, err := pipeline.New(table, cfg,
		pipeline.WithClock(pipeline.NewClockAt(lastSeq)),
		pipeline.WithLogger(slog.Default()))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to build pipeline", err)
	}

	report := CalcReport{TableVersion: table.Version()}
	for _, def := range defs {
		vesselReport, err := runVessel(ctx, st, runner, def, opts.Actor)
		if err != nil {
			return err
		}
		report.Vessels = append(report.Vessels, *vesselReport)
		for _, c := range vesselReport.Components {
			if c.Status == "failed" {
				report.FailedComponents++
			}
		}
	}

	if opts.Format == "json" {
		if err := outputCalcJSON(cmd, report); err != nil {
			return err
		}
	} else {
		outputCalcText(cmd, report, opts.Verbose)
	}

	if report.FailedComponents > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d component(s) failed", report.FailedComponents))
	}
	return nil
}

// resolveStressTable picks the stress table for this run. The second
// return reports whether the table came from the store (and therefore
// needs no write-back).
func resolveStressTable(ctx context.Context, st *store.Store, opts *CalcOptions) (*stress.Table, bool, error) {
	switch {
	case opts.StressFile != "":
		table, err := stress.LoadFile(opts.StressFile)
		if err != nil {
			return nil, false, WrapExitError(ExitCommandError, "failed to load stress table", err)
		}
		return table, false, nil

	case opts.StressVersion != "":
		table, err := st.ReadStressTable(ctx, opts.StressVersion)
		if err != nil {
			return nil, false, WrapExitError(ExitCommandError,
				fmt.Sprintf("stress table version %q not in store", opts.StressVersion), err)
		}
		return table, true, nil

	default:
		table, err := stress.Default()
		if err != nil {
			return nil, false, WrapExitError(ExitCommandError, "failed to load default stress table", err)
		}
		return table, false, nil
	}
}

// runVessel runs one vessel definition and persists the complete run.
func runVessel(ctx context.Context, st *store.Store, runner *pipeline.Runner, def compiler.Definition, actor string) (*VesselReport, error) {
	inputs := make([]pipeline.ComponentInput, 0, len(def.Components))
	for _, c := range def.Components {
		history, err := st.ReadMeasurements(ctx, c.ID)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to read measurements for %s", c.ID), err)
		}
		inputs = append(inputs, pipeline.ComponentInput{Component: c, Measurements: history})
	}

	out, err := runner.RunVessel(ctx, pipeline.VesselInput{Components: inputs, ActorID: actor})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("vessel %s run failed", def.VesselID), err)
	}

	var (
		results   []calc.Result
		anomalies []anomaly.Anomaly
		entries   []audit.Entry
	)
	for _, o := range out.Outcomes {
		results = append(results, o.Results...)
		anomalies = append(anomalies, o.Anomalies...)
		entries = append(entries, o.Audit...)
	}
	if err := st.WriteRun(ctx, out.RunToken, results, anomalies, entries); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("failed to persist run %s", out.RunToken), err)
	}

	report := &VesselReport{
		VesselID:           out.VesselID,
		RunToken:           out.RunToken,
		Evaluated:          out.Verdict.Evaluated,
		Safe:               out.Verdict.Safe,
		GoverningComponent: out.Verdict.GoverningComponent,
		GoverningMAWP:      out.Verdict.GoverningMAWP,
		DeRateTo:           out.Verdict.DeRateTo,
	}
	for _, o := range out.Outcomes {
		report.Components = append(report.Components, componentReport(o))
	}
	return report, nil
}

// componentReport flattens one outcome into the CLI report row.
func componentReport(o pipeline.ComponentOutcome) ComponentReport {
	r := ComponentReport{
		ComponentID: o.ComponentID,
		Status:      "ok",
		Anomalies:   len(o.Anomalies),
		Warnings:    o.Warnings,
	}
	if o.Err != nil {
		r.Status = "failed"
		r.Error = o.Err.Error()
		return r
	}
	if len(o.Warnings) > 0 {
		r.Status = "degraded"
	}

	r.ActualThickness = o.Actual
	r.Required = resultValue(o, calc.TypeRequiredThickness)
	if r.Required == nil {
		r.Required = resultValue(o, calc.TypeNozzleMinimum)
	}
	r.MAWP = resultValue(o, calc.TypeMAWP)
	r.CorrosionRate = resultValue(o, calc.TypeCorrosionRate)
	r.RemainingLife = resultValue(o, calc.TypeRemainingLife)

	if life := o.Result(calc.TypeRemainingLife); life != nil && !life.NextInspection.IsZero() {
		r.NextInspection = life.NextInspection.Format("2006-01-02")
	}
	if reinf := o.Result(calc.TypeReinforcement); reinf != nil {
		r.Reinforced = reinf.Adequate
	}
	return r
}

func resultValue(o pipeline.ComponentOutcome, t calc.Type) *float64 {
	res := o.Result(t)
	if res == nil {
		return nil
	}
	v := res.Value
	return &v
}

// outputCalcJSON outputs the calc report as JSON.
func outputCalcJSON(cmd *cobra.Command, report CalcReport) error {
	response := CLIResponse{
		Status: "ok",
		Data:   report,
	}
	if report.FailedComponents > 0 {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeGeneric,
			Message: fmt.Sprintf("%d component(s) failed", report.FailedComponents),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputCalcText outputs the calc report as text.
func outputCalcText(cmd *cobra.Command, report CalcReport, verbose bool) {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Stress table: %s\n", report.TableVersion)
	for _, v := range report.Vessels {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Vessel %s  (run %s)\n", v.VesselID, v.RunToken)

		switch {
		case !v.Evaluated:
			fmt.Fprintln(w, "  Verdict: NOT EVALUATED (no component produced a MAWP)")
		case v.Safe:
			fmt.Fprintf(w, "  Verdict: SAFE (governing MAWP %.1f psi at %s)\n",
				v.GoverningMAWP, v.GoverningComponent)
		default:
			fmt.Fprintf(w, "  Verdict: UNSAFE - de-rate to %.1f psi (governing %s)\n",
				v.DeRateTo, v.GoverningComponent)
		}

		for _, c := range v.Components {
			if c.Status == "failed" {
				fmt.Fprintf(w, "  ✗ %-12s failed: %s\n", c.ComponentID, c.Error)
				continue
			}
			marker := "✓"
			if c.Status == "degraded" {
				marker = "!"
			}
			fmt.Fprintf(w, "  %s %-12s %s\n", marker, c.ComponentID, componentSummary(c))
			if verbose {
				for _, warning := range c.Warnings {
					fmt.Fprintf(w, "      warning: %s\n", warning)
				}
			}
			if c.Anomalies > 0 {
				fmt.Fprintf(w, "      %d anomaly finding(s) recorded\n", c.Anomalies)
			}
		}
	}
}

// componentSummary renders the one-line numeric summary for a component.
func componentSummary(c ComponentReport) string {
	s := fmt.Sprintf("t_act %.3f", c.ActualThickness)
	if c.Required != nil {
		s += fmt.Sprintf("  t_req %.3f", *c.Required)
	}
	if c.MAWP != nil {
		s += fmt.Sprintf("  MAWP %.1f", *c.MAWP)
	}
	if c.CorrosionRate != nil {
		s += fmt.Sprintf("  rate %.4f/yr", *c.CorrosionRate)
	}
	if c.RemainingLife != nil {
		s += fmt.Sprintf("  life %.1fy", *c.RemainingLife)
	}
	if c.NextInspection != "" {
		s += fmt.Sprintf("  next %s", c.NextInspection)
	}
	if c.Reinforced != nil {
		if *c.Reinforced {
			s += "  reinforcement ok"
		} else {
			s += "  reinforcement INADEQUATE"
		}
	}
	return s
}
