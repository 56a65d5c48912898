package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"midas/internal/pipeline"
	"midas/internal/watch"
)

// watchCmd re-runs the verification pipeline whenever the input changes.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the verification pipeline when the input file changes",
	Long: `Watches the input CSV and re-runs score + compare after each change,
debounced so editor save bursts trigger a single run. Runs until
interrupted.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := watchContext()
	defer cancel()

	debounce, err := cfg.DebounceDuration()
	if err != nil {
		return err
	}

	rerun := func(ctx context.Context) {
		err := pipeline.Verify(ctx, cfg)
		var mismatch *pipeline.MismatchError
		switch {
		case errors.As(err, &mismatch):
			fmt.Fprint(os.Stderr, mismatch.Result.Report(20))
		case err != nil:
			fmt.Fprintf(os.Stderr, "verify failed: %v\n", err)
		default:
			fmt.Printf("ok: %s matches %s\n", cfg.Paths.TestOutput, cfg.Paths.Output)
		}
	}

	w, err := watch.New(cfg.Paths.Input, debounce, rerun)
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	fmt.Printf("watching %s (Ctrl+C to stop)\n", cfg.Paths.Input)
	rerun(ctx)

	<-ctx.Done()
	fmt.Println("\nstopping watch")
	return nil
}
