package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"testpilot/internal/coverage"
	"testpilot/internal/decide"
	"testpilot/internal/types"
	"testpilot/internal/watcher"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [path]",
	Short: "Watch the working tree and suggest suites on change",
	Long: `Watch a directory tree for file changes and, after each debounced
batch, print which test suites the changes call for. Runs until
interrupted.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", watcher.DefaultDebounce, "quiet period before a change batch is processed")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	root := "."
	if len(args) > 0 {
		root = args[0]
	}

	history, closeHistory, err := openHistory(cmd, cfg)
	if err != nil {
		return err
	}
	defer closeHistory()

	w, err := watcher.New(root, watchDebounce)
	if err != nil {
		return fmt.Errorf("starting watcher on %s: %w", root, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("watching for changes", "root", root, "debounce", watchDebounce)

	return w.Run(ctx, func(changes []types.FileChange) {
		snap := coverage.ParseFile(cfg.Coverage.ReportPath)
		decision := decide.SelectSuites(changes, cfg, snap, history.CurrentTrend())

		color.Cyan("%d file(s) changed", len(changes))
		for _, change := range changes {
			fmt.Printf("  %-9s %s\n", change.Kind, change.Path)
		}
		printDecision(&decision)
	})
}
