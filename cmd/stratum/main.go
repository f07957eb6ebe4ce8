package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/stratumhq/stratum/pkg/api"
	"github.com/stratumhq/stratum/pkg/clusterstate"
	"github.com/stratumhq/stratum/pkg/config"
	"github.com/stratumhq/stratum/pkg/log"
	"github.com/stratumhq/stratum/pkg/manager"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "stratum",
	Short: "Stratum - cluster-state manager for distributed storage",
	Long: `Stratum aggregates statistics reports from storage nodes and periodic
cluster map snapshots into a single authoritative, versioned view of
placement-group and node state, and serves diagnostics derived from it.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Stratum version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("config", "", "Path to YAML config file")
	runCmd.Flags().String("data-dir", "", "Data directory (overrides config)")
	runCmd.Flags().String("admin-addr", "", "Admin API listen address (overrides config)")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the Stratum manager",
	Long: `Run the Stratum manager: restore the last checkpoint if present, start
the periodic commit and checkpoint loops, and serve the admin API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		adminAddr, _ := cmd.Flags().GetString("admin-addr")

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if dataDir != "" {
			cfg.Manager.DataDir = dataDir
		}
		if adminAddr != "" {
			cfg.Admin.ListenAddr = adminAddr
		}

		log.Init(log.Config{
			Level:      log.Level(cfg.Log.Level),
			JSONOutput: cfg.Log.JSON,
		})
		logger := log.WithComponent("main")

		mgr, err := manager.NewManager(&manager.Config{
			DataDir:            cfg.Manager.DataDir,
			CommitInterval:     time.Duration(cfg.Manager.CommitIntervalS) * time.Second,
			CheckpointInterval: time.Duration(cfg.Manager.CheckpointIntervalS) * time.Second,
			Thresholds:         cfg.Thresholds(),
		}, clusterstate.BasicChecker{})
		if err != nil {
			return fmt.Errorf("failed to create manager: %w", err)
		}
		mgr.Start()

		admin := api.NewAdminServer(mgr)
		if err := mgr.State().RegisterCommands(admin); err != nil {
			return fmt.Errorf("failed to register commands: %w", err)
		}

		go func() {
			if err := admin.Start(cfg.Admin.ListenAddr); err != nil {
				logger.Error().Err(err).Msg("admin server failed")
			}
		}()

		logger.Info().
			Str("data_dir", cfg.Manager.DataDir).
			Str("admin_addr", cfg.Admin.ListenAddr).
			Uint64("version", mgr.State().Version()).
			Msg("stratum manager running")

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info().Msg("shutting down")
		mgr.State().UnregisterCommands(admin)

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := admin.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("admin shutdown failed")
		}
		mgr.Stop()
		return nil
	},
}
