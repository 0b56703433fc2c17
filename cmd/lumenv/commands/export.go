package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *CLI) newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [refs...] --mount DIR",
		Short: "Export channels to a mountable directory",
		Long: "Write snapshots, channel pointers and install files for the given channel\n" +
			"references, or the latest version of every channel, below DIR.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mountDir, _ := cmd.Flags().GetString("mount")

			written, err := c.app.Export(cmd.Context(), args, mountDir)
			if err != nil {
				return err
			}
			for _, path := range written {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
	cmd.Flags().String("mount", "", "Directory to export to")
	_ = cmd.MarkFlagRequired("mount")
	return cmd
}
