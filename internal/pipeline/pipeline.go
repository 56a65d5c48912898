// Package pipeline drives the score/verify/clean workflow. Stages run
// strictly in order and fail fast: the first error aborts the run and the
// failed stage's declared output files are removed, so a broken run never
// leaves a partial artifact behind for a later run to trust.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"

	"golang.org/x/sync/errgroup"

	"midas/internal/config"
	"midas/internal/detector"
	"midas/internal/diff"
	"midas/internal/logging"
	"midas/internal/stream"
)

// Stage is one step of a run. Outputs lists the files the stage writes;
// they are deleted if Run fails.
type Stage struct {
	Name    string
	Outputs []string
	Run     func(ctx context.Context) error
}

// Runner executes stages sequentially.
type Runner struct {
	stages []Stage
}

// NewRunner builds a runner over the given stages.
func NewRunner(stages ...Stage) *Runner {
	return &Runner{stages: stages}
}

// Run executes every stage in order, stopping at the first failure. A
// failed stage's outputs are removed before the error is returned.
func (r *Runner) Run(ctx context.Context) error {
	log := logging.Get(logging.CategoryPipeline)
	for _, stage := range r.stages {
		if err := ctx.Err(); err != nil {
			return err
		}
		timer := logging.StartTimer(logging.CategoryPipeline, stage.Name)
		log.Infow("stage start", "stage", stage.Name)
		if err := stage.Run(ctx); err != nil {
			for _, out := range stage.Outputs {
				if rmErr := os.Remove(out); rmErr != nil && !os.IsNotExist(rmErr) {
					log.Warnw("could not remove partial output", "path", out, "error", rmErr)
				}
			}
			return fmt.Errorf("pipeline: stage %s: %w", stage.Name, err)
		}
		timer.StopWithInfo()
	}
	return nil
}

// Anomaly is an above-threshold score observed during a run.
type Anomaly struct {
	Line   int64
	Source uint64
	Dest   uint64
	Tick   uint64
	Score  float64
}

// Stats summarizes a scoring run.
type Stats struct {
	Edges     int64
	MaxScore  float64
	Anomalies []Anomaly
}

// scored pairs an input edge with its score and source line.
type scored struct {
	edge  stream.Edge
	line  int64
	score float64
}

// numbered pairs an input edge with its source line.
type numbered struct {
	edge stream.Edge
	line int64
}

// Score streams the configured input through a fresh detector and writes
// one score per edge to dst. Reading, scoring and writing run as separate
// goroutines joined by an errgroup; scoring itself stays sequential because
// the detector state is ordered by edge time. A failed run removes the
// partially written dst.
func Score(ctx context.Context, cfg *config.Config, dst string) (*Stats, error) {
	det, err := detector.New(cfg.Detector.Variant, cfg.Params())
	if err != nil {
		return nil, err
	}

	in, err := os.Open(cfg.Paths.Input)
	if err != nil {
		return nil, fmt.Errorf("pipeline: open input: %w", err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("pipeline: create output: %w", err)
	}

	logging.Get(logging.CategoryPipeline).Infow("scoring",
		"variant", cfg.Detector.Variant, "input", cfg.Paths.Input, "output", dst)

	stats := &Stats{}
	g, ctx := errgroup.WithContext(ctx)
	edges := make(chan numbered, 256)
	scores := make(chan scored, 256)

	g.Go(func() error {
		defer close(edges)
		r := stream.NewReader(in)
		for {
			edge, err := r.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case edges <- numbered{edge: edge, line: int64(r.Line())}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	g.Go(func() error {
		defer close(scores)
		for n := range edges {
			score, err := det.Insert(n.edge.Source, n.edge.Dest, n.edge.Time)
			if err != nil {
				return fmt.Errorf("line %d: %w", n.line, err)
			}
			stats.Edges++
			if score > stats.MaxScore {
				stats.MaxScore = score
			}
			if score >= cfg.Archive.Threshold {
				stats.Anomalies = append(stats.Anomalies, Anomaly{
					Line:   n.line,
					Source: n.edge.Source,
					Dest:   n.edge.Dest,
					Tick:   n.edge.Time,
					Score:  score,
				})
			}
			select {
			case scores <- scored{edge: n.edge, line: n.line, score: score}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	g.Go(func() error {
		w := stream.NewScoreWriter(out)
		for s := range scores {
			if err := w.Write(s.score); err != nil {
				return err
			}
		}
		return w.Flush()
	})

	if err := g.Wait(); err != nil {
		out.Close()
		if rmErr := os.Remove(dst); rmErr != nil && !os.IsNotExist(rmErr) {
			logging.Get(logging.CategoryPipeline).Warnw("could not remove partial output", "path", dst, "error", rmErr)
		}
		return nil, err
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("pipeline: close output: %w", err)
	}

	logging.Get(logging.CategoryPipeline).Infow("scored",
		"edges", stats.Edges, "max_score", stats.MaxScore, "anomalies", len(stats.Anomalies))
	return stats, nil
}

// MismatchError reports a verification failure. It names both files and
// carries the full diff for rendering.
type MismatchError struct {
	Result *diff.Result
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("pipeline: %s and %s differ (%d lines)",
		e.Result.RefPath, e.Result.CandidatePath, len(e.Result.Edits))
}

// Verify re-scores the input to the test output path and compares it
// against the reference output. A missing reference is generated first, so
// a clean workspace verifies from scratch; scoring is deterministic, which
// keeps the regenerated reference honest. A mismatch yields a
// *MismatchError.
func Verify(ctx context.Context, cfg *config.Config) error {
	var stages []Stage
	if _, err := os.Stat(cfg.Paths.Output); os.IsNotExist(err) {
		stages = append(stages, Stage{
			Name:    "build-reference",
			Outputs: []string{cfg.Paths.Output},
			Run: func(ctx context.Context) error {
				_, err := Score(ctx, cfg, cfg.Paths.Output)
				return err
			},
		})
	}
	stages = append(stages,
		Stage{
			Name:    "score",
			Outputs: []string{cfg.Paths.TestOutput},
			Run: func(ctx context.Context) error {
				_, err := Score(ctx, cfg, cfg.Paths.TestOutput)
				return err
			},
		},
		Stage{
			Name: "compare",
			Run: func(ctx context.Context) error {
				result, err := diff.Compare(cfg.Paths.Output, cfg.Paths.TestOutput)
				if err != nil {
					return err
				}
				if !result.Identical {
					return &MismatchError{Result: result}
				}
				return nil
			},
		},
	)
	return NewRunner(stages...).Run(ctx)
}

// Clean removes the generated artifacts: the reference output, the test
// output and, when archiving is enabled, the archive database. Missing
// files are fine. The list of files actually removed is returned.
func Clean(cfg *config.Config) ([]string, error) {
	targets := []string{cfg.Paths.Output, cfg.Paths.TestOutput}
	if cfg.Archive.Enabled {
		targets = append(targets, cfg.Archive.DatabasePath)
	}

	var removed []string
	for _, path := range targets {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed = append(removed, path)
		case os.IsNotExist(err):
		default:
			return removed, fmt.Errorf("pipeline: remove %s: %w", path, err)
		}
	}
	return removed, nil
}
