package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verity-ndt/tminus/internal/calc"
	"github.com/verity-ndt/tminus/internal/store"
	"github.com/verity-ndt/tminus/internal/vessel"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	CalcType string // optional - filter to specific calculation type
}

// historyTypes are the calculation types the --type filter accepts.
var historyTypes = []calc.Type{
	calc.TypeRequiredThickness,
	calc.TypeMAWP,
	calc.TypeCorrosionRate,
	calc.TypeRemainingLife,
	calc.TypeNozzleMinimum,
	calc.TypeReinforcement,
}

// HistoryComponent describes the component record in history output.
type HistoryComponent struct {
	ID                 string  `json:"id"`
	Revision           int     `json:"revision"`
	VesselID           string  `json:"vessel_id"`
	Kind               string  `json:"kind"`
	Material           string  `json:"material"`
	DesignPressure     float64 `json:"design_pressure_psi"`
	DesignTemperature  float64 `json:"design_temperature_f"`
	NominalThickness   float64 `json:"nominal_thickness_in"`
	CorrosionAllowance float64 `json:"corrosion_allowance_in"`
	InstallDate        string  `json:"install_date"`
}

// HistorySurvey describes one thickness survey in history output.
type HistorySurvey struct {
	TakenAt   string    `json:"taken_at"`
	Readings  []float64 `json:"readings_in"`
	Governing float64   `json:"governing_in"`
	Inspector string    `json:"inspector,omitempty"`
}

// HistoryResult describes one persisted calculation result.
type HistoryResult struct {
	Seq       int64    `json:"seq"`
	Type      string   `json:"type"`
	Value     float64  `json:"value"`
	Unit      string   `json:"unit"`
	Adequate  *bool    `json:"adequate,omitempty"`
	Governs   string   `json:"governs,omitempty"`
	RunToken  string   `json:"run_token"`
	Rationale string   `json:"rationale,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	CodeRef   string   `json:"code_ref,omitempty"`
}

// HistoryAnomaly describes one unreviewed finding in history output.
type HistoryAnomaly struct {
	Category string  `json:"category"`
	Severity string  `json:"severity"`
	Detected float64 `json:"detected"`
	Expected string  `json:"expected"`
	Detail   string  `json:"detail"`
}

// HistoryStats holds summary statistics for the component.
type HistoryStats struct {
	Surveys          int `json:"surveys"`
	Results          int `json:"results"`
	Runs             int `json:"runs"`
	PendingAnomalies int `json:"pending_anomalies"`
}

// HistoryReport holds the complete history output.
type HistoryReport struct {
	Component HistoryComponent `json:"component"`
	Surveys   []HistorySurvey  `json:"surveys"`
	Results   []HistoryResult  `json:"results"`
	Pending   []HistoryAnomaly `json:"pending_anomalies"`
	Stats     HistoryStats     `json:"stats"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history <component-id>",
		Short: "Show a component's surveys, results, and pending findings",
		Long: `Show the stored inspection history for one component.

The output includes:
- Component: The latest stored revision and its design conditions
- Surveys: Thickness surveys in date order with governing readings
- Results: Persisted calculation results in sequence order
- Pending Anomalies: Findings still awaiting review
- Stats: Summary statistics

Examples:
  tminus history --db ./plant.db V-101-S1
  tminus history --db ./plant.db V-101-S1 --type mawp
  tminus history --db ./plant.db V-101-S1 --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.CalcType, "type", "", "filter results to one calculation type")

	return cmd
}

func runHistory(opts *HistoryOptions, componentID string, cmd *cobra.Command) error {
	if opts.CalcType != "" && !isValidHistoryType(opts.CalcType) {
		return NewExitError(ExitCommandError,
			fmt.Sprintf("unknown calculation type %q (valid: %s)", opts.CalcType, historyTypeList()))
	}

	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	comp, err := st.ReadLatestComponent(ctx, componentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return NewExitError(ExitCommandError, fmt.Sprintf("component not found: %s", componentID))
		}
		return WrapExitError(ExitCommandError, "failed to read component", err)
	}

	surveys, err := st.ReadMeasurements(ctx, componentID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read surveys", err)
	}

	results, err := st.ReadResults(ctx, componentID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read results", err)
	}

	pending, err := st.ReadPendingAnomalies(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read anomalies", err)
	}

	report := buildHistoryReport(comp, surveys, results, pending, calc.Type(opts.CalcType))

	if opts.Format == "json" {
		return outputHistoryJSON(cmd, report)
	}
	return outputHistoryText(cmd, report, opts.Verbose)
}

// buildHistoryReport assembles the report, filtering results to one
// calculation type when typeFilter is non-empty and anomalies to the
// requested component.
func buildHistoryReport(comp vessel.Component, surveys []vessel.MeasurementEvent, results []calc.Result, pending []store.StoredAnomaly, typeFilter calc.Type) HistoryReport {
	report := HistoryReport{
		Component: HistoryComponent{
			ID:                 comp.ID,
			Revision:           comp.Revision,
			VesselID:           comp.VesselID,
			Kind:               string(comp.Geometry.Kind()),
			Material:           comp.Material,
			DesignPressure:     comp.DesignPressure,
			DesignTemperature:  comp.DesignTemperature,
			NominalThickness:   comp.NominalThickness,
			CorrosionAllowance: comp.CorrosionAllowance,
			InstallDate:        comp.InstallDate.Format("2006-01-02"),
		},
		Surveys: []HistorySurvey{},
		Results: []HistoryResult{},
		Pending: []HistoryAnomaly{},
	}

	for _, m := range surveys {
		report.Surveys = append(report.Surveys, HistorySurvey{
			TakenAt:   m.TakenAt.Format("2006-01-02"),
			Readings:  m.Readings,
			Governing: m.Governing(),
			Inspector: m.Inspector,
		})
	}

	runs := make(map[string]bool)
	for _, r := range results {
		runs[r.RunToken] = true
		if typeFilter != "" && r.Type != typeFilter {
			continue
		}
		report.Results = append(report.Results, HistoryResult{
			Seq:       r.Seq,
			Type:      string(r.Type),
			Value:     r.Value,
			Unit:      r.Unit,
			Adequate:  r.Adequate,
			Governs:   r.Governs,
			RunToken:  r.RunToken,
			Rationale: r.Rationale,
			Warnings:  r.Warnings,
			CodeRef:   r.CodeRef,
		})
	}

	for _, a := range pending {
		if a.ComponentID != comp.ID {
			continue
		}
		report.Pending = append(report.Pending, HistoryAnomaly{
			Category: string(a.Category),
			Severity: string(a.Severity),
			Detected: a.Detected,
			Expected: a.Expected,
			Detail:   a.Detail,
		})
	}

	report.Stats = HistoryStats{
		Surveys:          len(report.Surveys),
		Results:          len(report.Results),
		Runs:             len(runs),
		PendingAnomalies: len(report.Pending),
	}
	return report
}

// outputHistoryJSON outputs the history report as JSON.
func outputHistoryJSON(cmd *cobra.Command, report HistoryReport) error {
	response := CLIResponse{
		Status: "ok",
		Data:   report,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputHistoryText outputs the history report as text.
func outputHistoryText(cmd *cobra.Command, report HistoryReport, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "History for Component: %s\n", report.Component.ID)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Component ===")
	c := report.Component
	fmt.Fprintf(w, "  Kind:      %s (revision %d, vessel %s)\n", c.Kind, c.Revision, c.VesselID)
	fmt.Fprintf(w, "  Material:  %s\n", c.Material)
	fmt.Fprintf(w, "  Design:    %.1f psi at %.0f F\n", c.DesignPressure, c.DesignTemperature)
	fmt.Fprintf(w, "  Nominal:   %.3f in (CA %.3f in)\n", c.NominalThickness, c.CorrosionAllowance)
	fmt.Fprintf(w, "  Installed: %s\n", c.InstallDate)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Surveys ===")
	if len(report.Surveys) == 0 {
		fmt.Fprintln(w, "  (no surveys)")
	} else {
		for _, s := range report.Surveys {
			fmt.Fprintf(w, "  %s  governing %.3f in (%d readings)", s.TakenAt, s.Governing, len(s.Readings))
			if s.Inspector != "" {
				fmt.Fprintf(w, "  by %s", s.Inspector)
			}
			fmt.Fprintln(w)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Results ===")
	if len(report.Results) == 0 {
		fmt.Fprintln(w, "  (no results)")
	} else {
		for _, r := range report.Results {
			formatHistoryResult(w, r, verbose)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Pending Anomalies ===")
	if len(report.Pending) == 0 {
		fmt.Fprintln(w, "  (none)")
	} else {
		for _, a := range report.Pending {
			fmt.Fprintf(w, "  [%s/%s] %s\n", a.Severity, a.Category, a.Detail)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Surveys: %d\n", report.Stats.Surveys)
	fmt.Fprintf(w, "  Results: %d\n", report.Stats.Results)
	fmt.Fprintf(w, "  Runs:    %d\n", report.Stats.Runs)
	fmt.Fprintf(w, "  Pending: %d\n", report.Stats.PendingAnomalies)

	return nil
}

// formatHistoryResult formats a single result row for text output.
func formatHistoryResult(w interface{ Write([]byte) (int, error) }, r HistoryResult, verbose bool) {
	line := fmt.Sprintf("  [%d] %-26s %.4f %s", r.Seq, r.Type, r.Value, r.Unit)
	if r.Adequate != nil {
		if *r.Adequate {
			line += "  adequate"
		} else {
			line += "  INADEQUATE"
		}
	}
	if r.Governs != "" {
		line += fmt.Sprintf("  %s governs", r.Governs)
	}
	fmt.Fprintf(w, "%s  (run %s)\n", line, truncateID(r.RunToken))

	if verbose {
		if r.Rationale != "" {
			fmt.Fprintf(w, "       %s\n", r.Rationale)
		}
		for _, warning := range r.Warnings {
			fmt.Fprintf(w, "       warning: %s\n", warning)
		}
		if r.CodeRef != "" {
			fmt.Fprintf(w, "       ref: %s\n", r.CodeRef)
		}
	}
}

// truncateID truncates a long token for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

func isValidHistoryType(t string) bool {
	for _, valid := range historyTypes {
		if calc.Type(t) == valid {
			return true
		}
	}
	return false
}

func historyTypeList() string {
	names := make([]string, len(historyTypes))
	for i, t := range historyTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
