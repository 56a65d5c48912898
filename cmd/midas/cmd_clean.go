package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"midas/internal/pipeline"
)

// cleanCmd removes generated artifacts.
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove generated outputs and the archive database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		removed, err := pipeline.Clean(cfg)
		for _, path := range removed {
			fmt.Printf("removed %s\n", path)
		}
		if err != nil {
			return err
		}
		if len(removed) == 0 {
			fmt.Println("nothing to clean")
		}
		return nil
	},
}
