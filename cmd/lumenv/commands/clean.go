package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/lumenv/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Clean the package index cache and stored state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cache, _ := cmd.Flags().GetBool("cache")
			all, _ := cmd.Flags().GetBool("all")

			opts := app.CleanOptions{}
			switch {
			case all:
				opts.All = true
			case cache:
				opts.Cache = true
			}

			return c.app.Clean(cmd.Context(), opts)
		},
	}

	cmd.Flags().Bool("cache", true, "Clean the package index cache")
	cmd.Flags().BoolP("all", "a", false, "Remove all state, including published channels and snapshots")

	return cmd
}
