// Package main is the entry point for the descope-sync binary.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/spf13/cobra"

	"github.com/nikhil-at-pieces/descope-sync/internal/api"
	"github.com/nikhil-at-pieces/descope-sync/internal/config"
	"github.com/nikhil-at-pieces/descope-sync/internal/domain"
	"github.com/nikhil-at-pieces/descope-sync/internal/provider"
	"github.com/nikhil-at-pieces/descope-sync/internal/runlog"
	syncsvc "github.com/nikhil-at-pieces/descope-sync/internal/service/sync"
	"github.com/nikhil-at-pieces/descope-sync/internal/warehouse"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	os.Exit(execute())
}

func execute() int {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

var errRunFailed = errors.New("sync run failed")

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "descope-sync",
		Short:         "Incremental provider-to-warehouse sync engine",
		Long:          "Syncs identity, social, and video provider data into a local analytical warehouse.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML stage-config overrides")

	rootCmd.AddCommand(newRunCmd(&configPath))
	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// bootstrap loads configuration, builds the logger, and opens the
// warehouse and run log.
func bootstrap(ctx context.Context, configPath string) (*appState, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return nil, err
	}
	if configPath != "" {
		if err := cfg.ApplyFile(configPath); err != nil {
			return nil, err
		}
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	wh, err := warehouse.Open(cfg.WarehousePath, logger)
	if err != nil {
		return nil, fmt.Errorf("open warehouse: %w", err)
	}
	if err := wh.EnsureTables(ctx, domain.UsersTable, domain.AnalyticsEventsTable, domain.PostsTable, domain.VideosTable); err != nil {
		wh.Close() //nolint:errcheck
		return nil, fmt.Errorf("ensure tables: %w", err)
	}

	runDB, err := runlog.OpenSQLite(cfg.RunlogPath)
	if err != nil {
		wh.Close() //nolint:errcheck
		return nil, err
	}
	if err := runlog.Migrate(runDB); err != nil {
		runDB.Close() //nolint:errcheck
		wh.Close()    //nolint:errcheck
		return nil, err
	}
	runs := runlog.NewStore(runDB)

	var yt *provider.YouTube
	if cfg.YouTube.Configured() {
		yt, err = provider.NewYouTube(ctx, cfg.YouTube)
		if err != nil {
			logger.Warn("video platform client unavailable", "error", err)
		}
	}

	svc := syncsvc.New(cfg, wh, runs, yt, logger)
	return &appState{cfg: cfg, logger: logger, wh: wh, runs: runs, svc: svc, closers: []func() error{runDB.Close, wh.Close}}, nil
}

type appState struct {
	cfg     *config.Config
	logger  *slog.Logger
	wh      *warehouse.Warehouse
	runs    *runlog.Store
	svc     *syncsvc.Service
	closers []func() error
}

func (a *appState) close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
}

func newRunCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute one sync run and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			app, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.close()

			report := app.svc.Run(ctx, domain.TriggerTypeManual)
			if !report.Success {
				return errRunFailed
			}
			return nil
		},
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP trigger API, optionally on a cron schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			app, err := bootstrap(ctx, *configPath)
			if err != nil {
				return err
			}
			defer app.close()

			if spec := app.cfg.ScheduleCron; spec != "" {
				sched, err := syncsvc.NewScheduler(app.svc, spec, app.logger)
				if err != nil {
					return err
				}
				sched.Start()
				defer sched.Stop()
			}

			handler := api.NewHandler(app.svc, app.runs, app.cfg.TriggerToken, app.logger)
			srv := &http.Server{
				Addr:              app.cfg.ListenAddr,
				Handler:           handler.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				app.logger.Info("http server listening", "addr", app.cfg.ListenAddr)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				app.logger.Info("shutting down")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				return err
			}
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("descope-sync %s (%s)\n", version, commit)
		},
	}
}
