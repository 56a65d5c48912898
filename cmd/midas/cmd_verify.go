package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"midas/internal/pipeline"
)

// testCmd runs the verification pipeline: score, then compare against the
// reference. This is also what the bare midas invocation does.
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Score the input and verify it against the reference output",
	Long: `Scores the input stream into the test output file and compares it
byte-for-byte against the reference output. Exits nonzero and prints a
line-level diff when the two differ. If the reference output does not
exist yet it is generated first.`,
	Args: cobra.NoArgs,
	RunE: runTest,
}

func runTest(cmd *cobra.Command, args []string) error {
	ctx, cancel := commandContext()
	defer cancel()

	err := pipeline.Verify(ctx, cfg)
	var mismatch *pipeline.MismatchError
	if errors.As(err, &mismatch) {
		fmt.Fprint(os.Stderr, mismatch.Result.Report(20))
		return err
	}
	if err != nil {
		return err
	}

	fmt.Printf("ok: %s matches %s\n", cfg.Paths.TestOutput, cfg.Paths.Output)
	return nil
}
