package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"midas/internal/store"
)

var (
	runsLimit int
	topRunID  string
	topLimit  int
)

// runsCmd lists archived scoring runs.
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List archived scoring runs",
	Args:  cobra.NoArgs,
	RunE:  listRuns,
}

// topCmd shows the highest-scoring archived anomalies.
var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the highest-scoring archived anomalies",
	Args:  cobra.NoArgs,
	RunE:  listTop,
}

func init() {
	runsCmd.Flags().IntVar(&runsLimit, "limit", 10, "Maximum runs to list")
	topCmd.Flags().StringVar(&topRunID, "run", "", "Restrict to one run id")
	topCmd.Flags().IntVar(&topLimit, "limit", 10, "Maximum anomalies to list")
	runsCmd.AddCommand(topCmd)
}

func openArchive() (*store.Store, error) {
	if !cfg.Archive.Enabled {
		return nil, fmt.Errorf("archiving is disabled; enable archive.enabled in %s", configPath)
	}
	return store.Open(cfg.Archive.DatabasePath)
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openArchive()
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.RecentRuns(runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no archived runs")
		return nil
	}

	for _, r := range runs {
		fmt.Printf("%s  %s  %s  edges=%d  max=%.6f  %s\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Variant,
			r.Edges, r.MaxScore, r.Input)
	}
	return nil
}

func listTop(cmd *cobra.Command, args []string) error {
	st, err := openArchive()
	if err != nil {
		return err
	}
	defer st.Close()

	anomalies, err := st.TopAnomalies(topRunID, topLimit)
	if err != nil {
		return err
	}
	if len(anomalies) == 0 {
		fmt.Println("no archived anomalies")
		return nil
	}

	fmt.Printf("%-8s %-12s %-12s %-8s %s\n", "line", "source", "dest", "tick", "score")
	for _, a := range anomalies {
		fmt.Printf("%-8d %-12d %-12d %-8d %.6f\n", a.Line, a.Source, a.Dest, a.Tick, a.Score)
	}
	return nil
}
