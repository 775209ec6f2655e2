package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/opencivica/legisync/pkg/db"
	"github.com/opencivica/legisync/pkg/logging"
	"github.com/opencivica/legisync/pkg/scheduler"
	"github.com/opencivica/legisync/pkg/source"
	"github.com/opencivica/legisync/pkg/stats"
	"github.com/opencivica/legisync/pkg/syncer"
)

var (
	syncSource string
	syncForce  bool
	syncLimit  int
	syncAll    bool

	scheduleDryRun bool

	groupsChamber string
)

var rootCmd = &cobra.Command{
	Use:           "synctl",
	Short:         "Operate the parliamentary open-data sync pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync pass now",
	RunE:  runSync,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show per-source freshness",
	RunE:  runStatus,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the daemon's job schedule",
	RunE:  runSchedule,
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "List stored political groups",
	RunE:  runGroups,
}

func init() {
	syncCmd.Flags().StringVar(&syncSource, "source", "", "sync a single source (roster, ballots, amendments, interventions, lobbying)")
	syncCmd.Flags().BoolVar(&syncForce, "force", false, "bypass the change check")
	syncCmd.Flags().IntVar(&syncLimit, "limit", 0, "bound the number of records per source (0 = no limit)")
	syncCmd.Flags().BoolVar(&syncAll, "all", false, "sync every source")
	scheduleCmd.Flags().BoolVar(&scheduleDryRun, "dry-run", false, "print the schedule without side effects")
	groupsCmd.Flags().StringVar(&groupsChamber, "chamber", "", "restrict to one chamber")
	rootCmd.AddCommand(syncCmd, statusCmd, scheduleCmd, groupsCmd)
}

// connect builds the store-backed pipeline shared by sync and status.
func connect(ctx context.Context) (*zap.Logger, *db.Store, error) {
	logger, err := logging.New()
	if err != nil {
		return nil, nil, err
	}
	store, err := db.New(ctx, logger, "synctl")
	if err != nil {
		return nil, nil, fmt.Errorf("connect store: %w", err)
	}
	return logger, store, nil
}

// knownSources are the names --source accepts, in stage order.
var knownSources = []string{
	source.NameRoster,
	source.NameBallots,
	source.NameAmendments,
	source.NameInterventions,
	source.NameLobbying,
}

func runSync(cmd *cobra.Command, _ []string) error {
	if syncSource == "" && !syncAll {
		return fmt.Errorf("pick --source or --all")
	}
	if syncSource != "" {
		known := false
		for _, name := range knownSources {
			if syncSource == name {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("unknown source %q (valid: %s)", syncSource, strings.Join(knownSources, ", "))
		}
	}

	ctx := cmd.Context()
	logger, store, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	cfg := source.DefaultConfig()
	calculator := stats.NewCalculator(logger, store)
	orchestrator := syncer.NewOrchestrator(logger, store, calculator, cfg.Chamber,
		source.NewRoster(logger, store, cfg),
		source.NewBallots(logger, store, cfg),
		source.NewAmendments(logger, store, cfg),
		source.NewInterventions(logger, store, cfg),
		source.NewLobbying(logger, store, cfg),
	)

	opts := syncer.RunOptions{Force: syncForce, Limit: syncLimit}
	if syncSource != "" {
		opts.Sources = []string{syncSource}
	}

	report := orchestrator.Run(ctx, opts)
	for _, sr := range report.Sources {
		line := fmt.Sprintf("%-14s %-10s created=%d updated=%d skipped=%d (%s)",
			sr.Source, sr.Status, sr.Result.Created, sr.Result.Updated, sr.Result.Skipped,
			sr.Duration.Round(time.Millisecond))
		if sr.Error != "" {
			line += " error=" + sr.Error
		}
		cmd.Println(line)
	}
	if report.Stats != nil {
		cmd.Printf("stats          recomputed=%d errors=%d (%s)\n",
			report.Stats.Updated, report.Stats.Errors, report.Stats.Duration.Round(time.Millisecond))
	}
	cmd.Printf("total          %s\n", report.Duration.Round(time.Millisecond))

	if report.Failed() {
		return fmt.Errorf("one or more sources failed")
	}
	return nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	_, store, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	states, err := store.ListSyncStates(ctx)
	if err != nil {
		return fmt.Errorf("load sync states: %w", err)
	}
	if len(states) == 0 {
		cmd.Println("No source has synced yet.")
		return nil
	}
	for _, s := range states {
		cmd.Printf("%-14s last=%s fingerprint=%s\n",
			s.Source, s.LastSyncedAt.Format(time.RFC3339), s.Fingerprint)
	}
	return nil
}

func runSchedule(cmd *cobra.Command, _ []string) error {
	logger, err := logging.New()
	if err != nil {
		return err
	}
	// The schedule is static configuration; printing it needs no store.
	s := scheduler.New(logger, nil, nil, scheduler.DefaultJobs())
	for _, line := range s.DryRun() {
		cmd.Println(line)
	}
	if scheduleDryRun {
		return nil
	}
	now := time.Now()
	for _, job := range scheduler.DefaultJobs() {
		spec, err := cron.ParseStandard(job.Spec)
		if err != nil {
			return fmt.Errorf("parse %s: %w", job.Name, err)
		}
		cmd.Printf("%-16s next %s\n", job.Name, spec.Next(now).Format(time.RFC3339))
	}
	return nil
}

func runGroups(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	_, store, err := connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	groups, err := store.ListPoliticalGroups(ctx, groupsChamber)
	if err != nil {
		return fmt.Errorf("load groups: %w", err)
	}
	for _, g := range groups {
		cmd.Printf("%-10s %-10s %-30s %s\n", g.Chamber, g.ExtID, g.Name, g.Slug)
	}
	return nil
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
