package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"midas/internal/config"
	"midas/internal/logging"
)

const version = "1.0.0"

var (
	// Global flags
	configPath string
	verbose    bool
	workspace  string
	timeout    time.Duration

	// Loaded configuration, available to every RunE
	cfg *config.Config
)

// rootCmd represents the base command. Running midas with no arguments
// executes the verification pipeline, mirroring the original default target.
var rootCmd = &cobra.Command{
	Use:   "midas",
	Short: "MIDAS streaming edge anomaly scorer",
	Long: `midas scores (source, dest, time) edge streams for anomalies using
count-min sketches (the MIDAS / MIDAS-R algorithms).

The default command runs the verification pipeline: score the input into
test.out.csv and compare it byte-for-byte against the reference out.csv.
A missing reference is generated first. Scoring is deterministic, so
'midas clean' followed by 'midas' always reproduces the same outputs.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logging.Init(verbose); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		if workspace != "" {
			if err := os.Chdir(workspace); err != nil {
				return fmt.Errorf("failed to enter workspace: %w", err)
			}
		}
		var err error
		cfg, err = config.Load(configPath)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: runTest,
}

// versionCmd prints the build version.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the midas version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("midas %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultFileName, "Config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: current)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 5*time.Minute, "Operation timeout")

	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// commandContext builds the context for a single command run: bounded by
// the --timeout flag and cancelled by SIGINT/SIGTERM.
func commandContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	return withSignals(ctx, cancel)
}

// watchContext is commandContext without the deadline, for long-running
// commands.
func watchContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	return withSignals(ctx, cancel)
}

func withSignals(ctx context.Context, cancel context.CancelFunc) (context.Context, context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}
