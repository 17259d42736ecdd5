package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentstation/worldstat"
	"github.com/agentstation/worldstat/pkg/document"
	"github.com/agentstation/worldstat/pkg/logging"
)

// NewRunCommand creates the run command.
func (a *App) NewRunCommand() *cobra.Command {
	var (
		dryRun  bool
		timeout time.Duration
		every   time.Duration
	)

	cmd := &cobra.Command{
		Use:     "run",
		GroupID: "core",
		Short:   "Fetch, reconcile and publish the dataset",
		Long: `Run fetches every source in the dataset, reconciles the observations and
atomically replaces the output document. Failed sources are left out of
the merge. When no source produced data the previous document is kept.

With --every the run repeats on that interval until interrupted.`,
		Example: `  worldstat run
  worldstat run --dataset datasets/energy.yaml --output public/global_data.json
  worldstat run --mode history --provenance provenance.yaml --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("output") {
				a.config.Output = mustGetString(cmd, "output")
			}
			if flags.Changed("provenance") {
				a.config.Provenance = mustGetString(cmd, "provenance")
			}
			if flags.Changed("metrics") {
				a.config.Metrics = mustGetString(cmd, "metrics")
			}
			if flags.Changed("mode") {
				a.config.Mode = mustGetString(cmd, "mode")
			}
			if !flags.Changed("timeout") {
				timeout = a.config.Timeout
			}
			if !flags.Changed("every") {
				every = a.config.Every
			}

			ws, err := a.Worldstat()
			if err != nil {
				return err
			}

			ctx := logging.WithLogger(cmd.Context(), a.logger)
			opts := []worldstat.RunOption{
				worldstat.WithDryRun(dryRun),
				worldstat.WithTimeout(timeout),
			}

			if every > 0 {
				ws.OnPublished(func(doc *document.Document, path string) {
					fmt.Fprintf(cmd.OutOrStdout(), "published %d countries to %s\n", doc.Metadata.CountryCount, path)
				})
				return ws.Schedule(ctx, every, opts...)
			}

			result, err := ws.Run(ctx, opts...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
			return nil
		},
	}

	cmd.Flags().StringP("output", "o", "", "document path (default \"global_data.json\")")
	cmd.Flags().String("provenance", "", "write a provenance report to this path")
	cmd.Flags().String("metrics", "", "write run metrics in Prometheus text format to this path")
	cmd.Flags().String("mode", "", "record mode: history or snapshot (default from the dataset)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "reconcile without publishing")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "bound the whole run (default 15m)")
	cmd.Flags().DurationVar(&every, "every", 0, "repeat the run on this interval")

	return cmd
}

// NewValidateCommand creates the validate command.
func (a *App) NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "validate",
		GroupID: "core",
		Short:   "Check a dataset definition",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dataset, err := a.Dataset()
			if err != nil {
				return err
			}

			codes, err := dataset.CountryCodes()
			if err != nil {
				return err
			}
			names := make([]string, 0, len(dataset.Indicators))
			for _, ind := range dataset.Indicators {
				names = append(names, string(ind.Name))
			}
			ids := make([]string, 0, len(dataset.Sources))
			for _, src := range dataset.Sources {
				ids = append(ids, string(src.ID))
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dataset %q is valid\n", dataset.Name)
			fmt.Fprintf(out, "  mode:       %s\n", dataset.Mode)
			fmt.Fprintf(out, "  countries:  %d\n", len(codes))
			fmt.Fprintf(out, "  indicators: %s\n", strings.Join(names, ", "))
			fmt.Fprintf(out, "  sources:    %s\n", strings.Join(ids, ", "))
			return nil
		},
	}
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("worldstat %s\n", a.version)
			if a.config.Verbose {
				cmd.Printf("  commit:   %s\n", a.commit)
				cmd.Printf("  built:    %s\n", a.date)
				cmd.Printf("  built by: %s\n", a.builtBy)
			}
		},
	}
}
