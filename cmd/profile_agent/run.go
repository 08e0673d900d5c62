package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/linkedin-optimizer/internal/db"
	"github.com/jonathan/linkedin-optimizer/internal/observability"
	"github.com/jonathan/linkedin-optimizer/internal/pipeline"
	"github.com/jonathan/linkedin-optimizer/internal/types"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the four-stage optimizer against the saved profile",
	Long: `Runs analysis -> critical review -> rewrite -> quality review against the saved profile.
Any stage failure stops the run; nothing is saved for a stopped run.

A successful run is written to <data-dir>/results_YYYYMMDD_HHMMSS.json and, when a database
is configured, stored in the run history.`,
	RunE: runOptimizerCmd,
}

func init() {
	rootCmd.AddCommand(runCommand)
}

func runOptimizerCmd(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, st, err := loadStore(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	printer := observability.NewPrinter(out)

	profile, err := st.LoadProfile()
	if err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("no saved profile; run 'profile set --target-role ...' or an import command first")
	}
	if err := profile.Validate(); err != nil {
		return errors.New("⚠️ Please set a target role first (profile set --target-role)")
	}
	if err := requireAPIKey(cfg); err != nil {
		return err
	}

	if cfg.Verbose {
		printer.PrintProfilePreview(profile)
		printer.PrintKeywordHints(types.HintsForRole(profile.TargetRole))
	}

	client, err := newClient(ctx, cfg.LLMConfig(), cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer client.Close()

	_, _ = fmt.Fprintf(out, "🚀 Optimizing profile for %q with %s\n", profile.TargetRole, client.Model())
	exec, err := pipeline.Run(ctx, client, *profile, pipeline.Options{
		StageDelay:    cfg.StageDelay,
		Parallel:      cfg.Parallel,
		DetectMarkers: cfg.DetectMarkers,
		Out:           out,
	})
	if cfg.Verbose && exec != nil {
		printer.PrintActivity(exec.Activity, 0)
	}
	if err != nil {
		var abortErr *pipeline.AbortError
		if errors.As(err, &abortErr) {
			return fmt.Errorf("run stopped at %s: %s", abortErr.Stage, abortErr.Message)
		}
		return err
	}

	path, err := st.SaveResult(exec.Result)
	if err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	_, _ = fmt.Fprintf(out, "Results saved to: %s\n", path)

	if cfg.DatabaseURL != "" {
		if err := saveRunToDB(ctx, cfg.DatabaseURL, exec.Result); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		} else {
			_, _ = fmt.Fprintf(out, "Run stored in history: %s\n", exec.Result.ID)
		}
	}

	if cfg.Verbose {
		printer.PrintRunResult(exec.Result)
	} else {
		_, _ = fmt.Fprintf(out, "\n%s\n", exec.Result.Results[types.StageRewriter])
	}
	return nil
}

func saveRunToDB(ctx context.Context, databaseURL string, result *types.RunResult) error {
	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.SaveRun(ctx, result); err != nil {
		return fmt.Errorf("failed to store run: %w", err)
	}
	return nil
}
