// Command railseed loads station and train datasets into the railway
// database, once or on a schedule.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"railseed/internal/config"
	"railseed/internal/logging"
	"railseed/internal/service"
	"railseed/internal/storage/history"
)

var (
	configPath  string
	verbose     bool
	listenAddr  string
	printReport bool
	historyMax  int

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "railseed",
	Short: "Normalize and bulk-load railway stations and trains",
	Long: `railseed reads station and train datasets of loosely defined shape
(GeoJSON feature collections, plain lists, wrapped lists, CSV tables, query
results) and inserts them into the stations and trains tables. Rows whose
natural key already exists are left untouched, so runs are repeatable.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return err
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one seeding pass and exit",
	RunE:  runOnce,
}

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Seed on a cron schedule and/or when source files change",
	Long: `Starts the scheduler configured under "schedule" and an HTTP control
server on server.addr:

  GET  /healthz    liveness
  GET  /runs       past runs, newest first (?limit=N)
  GET  /runs/last  last run report
  GET  /runs/:id   one run report
  POST /runs       run now (409 while a run is in progress)
  GET  /metrics    Prometheus metrics`,
	RunE: runSchedule,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs recorded under history.path",
	RunE:  listHistory,
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the available source types and their settings",
	RunE:  listSources,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "railseed.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging, including dataset samples")

	scheduleCmd.Flags().StringVar(&listenAddr, "addr", "", "override server.addr")
	runCmd.Flags().BoolVar(&printReport, "json", false, "print the run report as JSON")
	historyCmd.Flags().IntVarP(&historyMax, "limit", "n", 0, "number of runs to show (default history.limit)")

	rootCmd.AddCommand(runCmd, scheduleCmd, historyCmd, sourcesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runOnce(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, closeSvc, err := newService()
	if err != nil {
		return err
	}
	defer closeSvc()

	report, err := svc.RunOnce(ctx)
	if printReport && report != nil {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(report); encErr != nil {
			return encErr
		}
	}
	return err
}

func runSchedule(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.Schedule.Cron == "" && len(cfg.Schedule.Watch) == 0 {
		return fmt.Errorf("nothing to schedule: set schedule.cron or schedule.watch")
	}
	addr := cfg.Server.Addr
	if listenAddr != "" {
		addr = listenAddr
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, closeSvc, err := newService()
	if err != nil {
		return err
	}
	defer closeSvc()

	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	err = service.Serve(ctx, addr, service.NewRouter(svc), logger)

	waitCtx, cancel := context.WithTimeout(context.Background(), cfg.GetLoadTimeout()+5*time.Second)
	defer cancel()
	svc.WaitRunning(waitCtx)
	return err
}

// newService builds the seed service, opening the run history when one is
// configured. The returned func releases it.
func newService() (*service.SeedService, func(), error) {
	if cfg.History.Path == "" {
		return service.NewSeedService(cfg, logger), func() {}, nil
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return nil, nil, err
	}
	svc := service.NewSeedService(cfg, logger, service.WithHistory(store))
	return svc, func() { store.Close() }, nil
}

func listHistory(cmd *cobra.Command, args []string) error {
	if cfg.History.Path == "" {
		return fmt.Errorf("no run history: set history.path or RAILSEED_HISTORY_PATH")
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	limit := cfg.History.Limit
	if historyMax > 0 {
		limit = historyMax
	}
	reports, err := store.List(cmd.Context(), limit)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSTARTED\tSTATUS\tSTATIONS\tTRAINS\tDURATION\tERROR")
	for _, r := range reports {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d/%d\t%s\t%s\n",
			r.RunID, r.StartedAt.Format(time.RFC3339), r.Status,
			r.Stations.Inserted, r.Stations.Submitted,
			r.Trains.Inserted, r.Trains.Submitted,
			r.Duration.Round(time.Millisecond), r.Error)
	}
	return w.Flush()
}

func listSources(cmd *cobra.Command, args []string) error {
	svc := service.NewSeedService(cfg, logger)
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tFIELD\tREQUIRED\tHELP")
	for _, spec := range svc.ListSources() {
		fmt.Fprintf(w, "%s\t\t\t%s\n", spec.Type, spec.Label)
		for _, f := range spec.ConfigFields {
			fmt.Fprintf(w, "\t%s\t%t\t%s\n", f.Key, f.Required, f.Help)
		}
	}
	return w.Flush()
}
