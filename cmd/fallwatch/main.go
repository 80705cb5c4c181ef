package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"fallwatch/internal/config"
	"fallwatch/internal/motion"
	"fallwatch/internal/web"
)

var configPath string

func main() {
	root := &cobra.Command{
		Use:   "fallwatch",
		Short: "Fall and shake detection from accelerometer and gyroscope samples",
		Long: `fallwatch runs a rule-based motion pipeline over IMU samples and raises
emergencies on falls and vigorous shaking.

Commands:
  run                 Monitor the configured source (IMU, serial, replay, sim)
  simulate <name>     Run a built-in or YAML scenario offline and print events
  replay <log>        Run a recorded sample log offline and print events
  record <log>        Write samples from the configured source to a log
  inspect <log>       Summarize a recorded sample log`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config (defaults apply when empty)")

	root.AddCommand(
		runCmd(),
		simulateCmd(),
		replayCmd(),
		recordCmd(),
		inspectCmd(),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, error) {
	if configPath == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func runCmd() *cobra.Command {
	var start bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Monitor the configured source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if start {
				cfg.State.AlwaysStart = true
			}
			logs := web.NewLogBuffer(2000)
			log.SetOutput(io.MultiWriter(os.Stderr, logs))
			return runService(cmd.Context(), cfg, logs)
		},
	}
	cmd.Flags().BoolVar(&start, "start", false, "start monitoring even if it was stopped before the last exit")
	return cmd
}

func simulateCmd() *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "simulate <builtin|scenario.yaml>",
		Short: "Run a scenario offline and print the events it triggers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return simulate(cmd.OutOrStdout(), args[0], interval, cfg.Pipeline.MinInterval)
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", motion.DefaultMinInterval, "sample spacing")
	return cmd
}

func replayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <log>",
		Short: "Run a recorded sample log offline and print the events it triggers",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return replayOffline(cmd.Context(), cmd.OutOrStdout(), args[0], cfg.Pipeline.MinInterval)
		},
	}
}

func recordCmd() *cobra.Command {
	var duration time.Duration
	cmd := &cobra.Command{
		Use:   "record <log>",
		Short: "Write samples from the configured source to a log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			return record(ctx, cfg.Source, args[0])
		},
	}
	cmd.Flags().DurationVar(&duration, "duration", 0, "stop after this long (0 = until interrupted)")
	return cmd
}

func inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <log>",
		Short: "Summarize a recorded sample log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return printLogSummary(cmd.OutOrStdout(), args[0])
		},
	}
}
