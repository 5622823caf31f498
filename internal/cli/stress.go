package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verity-ndt/tminus/internal/store"
	"github.com/verity-ndt/tminus/internal/stress"
)

// StressOptions holds flags for the stress subcommands.
type StressOptions struct {
	*RootOptions
	Database string
}

// StressTableInfo summarizes one stored stress table version.
type StressTableInfo struct {
	Version   string `json:"version"`
	Materials int    `json:"materials"`
	Points    int    `json:"points"`
}

// NewStressCommand creates the stress command group.
func NewStressCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Manage material stress tables",
		Long: `Load and inspect the allowable-stress tables used by calculations.

Tables are versioned and write-once: loading a version that already
exists with different contents is refused, because persisted audit
entries reference table versions by name.`,
	}

	cmd.AddCommand(newStressLoadCommand(rootOpts))
	cmd.AddCommand(newStressListCommand(rootOpts))

	return cmd
}

// newStressLoadCommand creates the stress load subcommand.
func newStressLoadCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StressOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "load <table.yaml>",
		Short: "Load a stress table YAML file into the database",
		Long: `Parse a stress table YAML file and store it under its version.

Exit codes:
  0 - Table stored (or identical version already present)
  1 - Version exists with different contents
  2 - Command error (unreadable file, parse error, database error)

Examples:
  tminus stress load --db ./plant.db tables/2024_1.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStressLoad(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runStressLoad(opts *StressOptions, path string, cmd *cobra.Command) error {
	table, err := stress.LoadFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load stress table", err)
	}

	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.WriteStressTable(ctx, table); err != nil {
		return WrapExitError(ExitFailure, "stress table conflict", err)
	}

	info := tableInfo(table)
	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: info}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(response)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Loaded stress table %s (%d materials, %d points)\n",
		info.Version, info.Materials, info.Points)
	return nil
}

// newStressListCommand creates the stress list subcommand.
func newStressListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &StressOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored stress table versions",
		Long: `List every stress table version in the database with its
material and point counts.

Examples:
  tminus stress list --db ./plant.db
  tminus stress list --db ./plant.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStressList(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runStressList(opts *StressOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	versions, err := st.ListStressVersions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list stress tables", err)
	}

	infos := make([]StressTableInfo, 0, len(versions))
	for _, version := range versions {
		table, err := st.ReadStressTable(ctx, version)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read stress table %s", version), err)
		}
		infos = append(infos, tableInfo(table))
	}

	if opts.Format == "json" {
		response := CLIResponse{Status: "ok", Data: infos}
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(response)
	}

	w := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(w, "No stress tables loaded.")
		return nil
	}
	for _, info := range infos {
		fmt.Fprintf(w, "%-12s %d materials, %d points\n", info.Version, info.Materials, info.Points)
	}
	return nil
}

// tableInfo counts a table's materials and points for display.
func tableInfo(table *stress.Table) StressTableInfo {
	info := StressTableInfo{Version: table.Version()}
	for _, spec := range table.Materials() {
		info.Materials++
		if points, ok := table.Points(spec); ok {
			info.Points += len(points)
		}
	}
	return info
}
