package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/linkedin-optimizer/internal/db"
	"github.com/jonathan/linkedin-optimizer/internal/observability"
	"github.com/jonathan/linkedin-optimizer/internal/store"
	"github.com/jonathan/linkedin-optimizer/internal/types"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List stored run results or show one",
	Long: `Lists results_*.json files in the data directory, newest first.
--show prints the newest result (or --name); --history lists runs stored in the database.`,
	RunE: runResults,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the newest result as a text file",
	Long: `Writes <data-dir>/linkedin_optimized_YYYYMMDD_HHMMSS.txt with the optimized profile and the
quality review. --stdout prints only the optimized profile instead.`,
	RunE: runExport,
}

var (
	resultsShow    bool
	resultsName    string
	resultsHistory bool
	resultsRunID   string
	resultsLimit   int
	exportName     string
	exportStdout   bool
)

func init() {
	resultsCmd.Flags().BoolVar(&resultsShow, "show", false, "Print the stage outputs of a result")
	resultsCmd.Flags().StringVar(&resultsName, "name", "", "Result file name (defaults to the newest)")
	resultsCmd.Flags().BoolVar(&resultsHistory, "history", false, "List runs stored in the database")
	resultsCmd.Flags().StringVar(&resultsRunID, "run-id", "", "Show one run from the database")
	resultsCmd.Flags().IntVar(&resultsLimit, "limit", db.DefaultListLimit, "Maximum runs to list with --history")

	exportCmd.Flags().StringVar(&exportName, "name", "", "Result file name (defaults to the newest)")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "Print the optimized profile instead of writing a file")

	rootCmd.AddCommand(resultsCmd)
	rootCmd.AddCommand(exportCmd)
}

func runResults(cmd *cobra.Command, _ []string) error {
	cfg, st, err := loadStore(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if resultsHistory || resultsRunID != "" {
		return runHistory(cmd, cfg.DatabaseURL)
	}

	if resultsShow {
		result, err := loadResult(st, resultsName)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "Target Role: %s\nModel: %s\nGenerated: %s\n",
			result.Profile.TargetRole, result.Model, result.Timestamp.Format("2006-01-02 15:04:05"))
		observability.NewPrinter(out).PrintRunResult(result)
		return nil
	}

	files, err := st.ListResults()
	if err != nil {
		return err
	}
	if len(files) == 0 {
		_, _ = fmt.Fprintf(out, "No results in %s yet. Run the optimizer first.\n", st.Dir())
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "NAME\tMODIFIED")
	for _, f := range files {
		_, _ = fmt.Fprintf(tw, "%s\t%s\n", f.Name, f.ModTime.Format(time.DateTime))
	}
	return tw.Flush()
}

func runHistory(cmd *cobra.Command, databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable or --db-url flag is required")
	}

	ctx := cmd.Context()
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	out := cmd.OutOrStdout()
	if resultsRunID != "" {
		id, err := uuid.Parse(resultsRunID)
		if err != nil {
			return fmt.Errorf("invalid run id: %w", err)
		}
		result, err := database.GetRun(ctx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return fmt.Errorf("run not found: %s", id)
		}
		observability.NewPrinter(out).PrintRunResult(result)
		return nil
	}

	runs, err := database.ListRuns(ctx, resultsLimit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTARGET ROLE\tMODEL\tCOMPLETED")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, r.TargetRole, r.Model, r.CompletedAt.Format(time.DateTime))
	}
	return tw.Flush()
}

func runExport(cmd *cobra.Command, _ []string) error {
	_, st, err := loadStore(cmd)
	if err != nil {
		return err
	}
	result, err := loadResult(st, exportName)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if exportStdout {
		_, _ = fmt.Fprintln(out, store.DownloadContent(result))
		return nil
	}

	path, err := st.Export(result, time.Now())
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "✅ Exported to: %s\n", path)
	return nil
}

// loadResult reads the named result file, or the newest one when name is empty.
func loadResult(st *store.Store, name string) (*types.RunResult, error) {
	if name != "" {
		return st.LoadResult(name)
	}
	result, err := st.LatestResult()
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, fmt.Errorf("no results in %s; run the optimizer first", st.Dir())
	}
	return result, nil
}
