package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verity-ndt/tminus/internal/audit"
	"github.com/verity-ndt/tminus/internal/store"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
	Database    string
	RunToken    string // optional - specific run only
	ComponentID string // optional - specific component only
}

// ComponentVerification holds the verification result for one component.
type ComponentVerification struct {
	ComponentID string `json:"component_id"`
	Entries     int    `json:"entries"`
	Clean       bool   `json:"clean"`
}

// VerifyFindingReport is one audit entry that failed re-verification.
type VerifyFindingReport struct {
	ResultID    string `json:"result_id"`
	ComponentID string `json:"component_id,omitempty"`
	Error       string `json:"error"`
}

// VerifyResult holds the overall verification result.
type VerifyResult struct {
	RunToken       string                  `json:"run_token,omitempty"`
	Components     []ComponentVerification `json:"components,omitempty"`
	TotalEntries   int                     `json:"total_entries"`
	Findings       []VerifyFindingReport   `json:"findings"`
	IncompleteRuns []string                `json:"incomplete_runs,omitempty"`
	Clean          bool                    `json:"clean"`
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify the audit trail against stored inputs",
		Long: `Recompute every audit hash from its stored input snapshot and
report entries that no longer match what was recorded.

With no flags every audited component is checked and runs whose results
lack audit entries are reported. Scope the check with --run or
--component.

Exit codes:
  0 - Audit trail verified
  1 - Verification failed (hash mismatches or incomplete runs)
  2 - Command error (database not found, etc.)

Examples:
  tminus verify --db ./plant.db
  tminus verify --db ./plant.db --component V-101-S1
  tminus verify --db ./plant.db --run run-7f3a... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunToken, "run", "", "verify a specific run only")
	cmd.Flags().StringVar(&opts.ComponentID, "component", "", "verify a specific component only")

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command) error {
	if opts.RunToken != "" && opts.ComponentID != "" {
		return NewExitError(ExitCommandError, "--run and --component are mutually exclusive")
	}

	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var result VerifyResult
	if opts.RunToken != "" {
		result, err = verifyRun(ctx, st, opts.RunToken)
	} else {
		result, err = verifyComponents(ctx, st, opts.ComponentID)
	}
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		return outputVerifyJSON(cmd, result)
	}
	return outputVerifyText(cmd, result, opts.Verbose)
}

// verifyRun re-verifies every audit entry persisted under one run and
// reports results that never received an entry.
func verifyRun(ctx context.Context, st *store.Store, runToken string) (VerifyResult, error) {
	state, err := st.ReadRunState(ctx, runToken)
	if err != nil {
		return VerifyResult{}, WrapExitError(ExitCommandError, fmt.Sprintf("failed to read run %s", runToken), err)
	}

	result := VerifyResult{
		RunToken:     runToken,
		TotalEntries: len(state.AuditEntries),
		Findings:     []VerifyFindingReport{},
	}

	audited := make(map[string]bool, len(state.AuditEntries))
	for _, e := range state.AuditEntries {
		audited[e.ResultID] = true
		if verr := audit.Verify(e); verr != nil {
			result.Findings = append(result.Findings, VerifyFindingReport{
				ResultID:    e.ResultID,
				ComponentID: e.ComponentID,
				Error:       verr.Error(),
			})
		}
	}
	for _, r := range state.Results {
		if !audited[r.ID] {
			result.Findings = append(result.Findings, VerifyFindingReport{
				ResultID:    r.ID,
				ComponentID: r.ComponentID,
				Error:       "no audit entry recorded",
			})
		}
	}

	result.Clean = len(result.Findings) == 0
	return result, nil
}

// verifyComponents re-verifies audit trails component by component. An
// empty componentID checks every audited component and also sweeps for
// incomplete runs.
func verifyComponents(ctx context.Context, st *store.Store, componentID string) (VerifyResult, error) {
	var ids []string
	if componentID != "" {
		ids = []string{componentID}
	} else {
		var err error
		ids, err = st.ListAuditedComponents(ctx)
		if err != nil {
			return VerifyResult{}, WrapExitError(ExitCommandError, "failed to list components", err)
		}
	}

	result := VerifyResult{
		Components: []ComponentVerification{},
		Findings:   []VerifyFindingReport{},
	}

	for _, id := range ids {
		findings, err := st.VerifyAuditTrail(ctx, id)
		if err != nil {
			return VerifyResult{}, WrapExitError(ExitCommandError, fmt.Sprintf("failed to verify component %s", id), err)
		}
		entries, err := st.ReadAuditTrail(ctx, id)
		if err != nil {
			return VerifyResult{}, WrapExitError(ExitCommandError, fmt.Sprintf("failed to read audit trail for %s", id), err)
		}

		result.Components = append(result.Components, ComponentVerification{
			ComponentID: id,
			Entries:     len(entries),
			Clean:       len(findings) == 0,
		})
		result.TotalEntries += len(entries)
		for _, f := range findings {
			result.Findings = append(result.Findings, VerifyFindingReport{
				ResultID:    f.ResultID,
				ComponentID: id,
				Error:       f.Err.Error(),
			})
		}
	}

	if componentID == "" {
		incomplete, err := st.FindIncompleteRuns(ctx)
		if err != nil {
			return VerifyResult{}, WrapExitError(ExitCommandError, "failed to find incomplete runs", err)
		}
		result.IncompleteRuns = incomplete
	}

	result.Clean = len(result.Findings) == 0 && len(result.IncompleteRuns) == 0
	return result, nil
}

// outputVerifyJSON outputs the verification result as JSON.
func outputVerifyJSON(cmd *cobra.Command, result VerifyResult) error {
	response := CLIResponse{
		Status: "ok",
		Data:   result,
	}

	if !result.Clean {
		response.Status = "error"
		response.Error = &CLIError{
			Code:    ErrCodeIntegrity,
			Message: "audit verification failed",
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if !result.Clean {
		// Integrity failure = exit code 1
		return NewExitError(ExitFailure, "audit verification failed")
	}
	return nil
}

// outputVerifyText outputs the verification result as text.
func outputVerifyText(cmd *cobra.Command, result VerifyResult, verbose bool) error {
	w := cmd.OutOrStdout()

	if result.RunToken != "" {
		fmt.Fprintf(w, "Audit Verification: run %s\n", result.RunToken)
		fmt.Fprintf(w, "  Entries: %d\n", result.TotalEntries)
	} else {
		fmt.Fprintf(w, "Audit Verification: %d component(s)\n", len(result.Components))
		fmt.Fprintln(w)

		for _, c := range result.Components {
			status := "✓"
			if !c.Clean {
				status = "✗"
			}
			fmt.Fprintf(w, "%s %-16s %d entries\n", status, c.ComponentID, c.Entries)
		}
	}

	if len(result.Findings) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Findings:")
		for _, f := range result.Findings {
			fmt.Fprintf(w, "  %s: %s\n", f.ResultID, f.Error)
		}
	}

	if len(result.IncompleteRuns) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Incomplete runs (results missing audit entries):")
		for _, token := range result.IncompleteRuns {
			fmt.Fprintf(w, "  %s\n", token)
		}
	}

	fmt.Fprintln(w)
	if result.Clean {
		fmt.Fprintf(w, "✓ Audit trail verified (%d entries)\n", result.TotalEntries)
		return nil
	}

	fmt.Fprintln(w, "✗ Audit verification failed")
	// Integrity failure = exit code 1
	return NewExitError(ExitFailure, "audit verification failed")
}
