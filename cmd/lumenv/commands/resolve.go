package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.trai.ch/lumenv/internal/app"
)

func (c *CLI) newResolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve [channels...]",
		Short: "Resolve configured channels into published snapshots",
		Long: "Resolve the package lists of the named channels, or of every channel in the\n" +
			"configuration, and publish each result as a new channel version.",
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromEnv, _ := cmd.Flags().GetBool("from-env")
			refresh, _ := cmd.Flags().GetBool("refresh")

			published, err := c.app.Resolve(cmd.Context(), args, app.ResolveOptions{
				FromEnv: fromEnv,
				Refresh: refresh,
			})
			if err != nil {
				return err
			}
			for _, p := range published {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Channel.Ref(), p.Channel.Digest)
			}
			return nil
		},
	}
	cmd.Flags().Bool("from-env", false, "Add EXTRA_CONDA_PACKAGES and EXTRA_PIP_PACKAGES to every channel")
	cmd.Flags().Bool("refresh", false, "Bypass the package index cache")
	return cmd
}

func (c *CLI) newExtrasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extras",
		Short: "Resolve EXTRA_CONDA_PACKAGES and EXTRA_PIP_PACKAGES into a channel",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			channel, _ := cmd.Flags().GetString("channel")
			refresh, _ := cmd.Flags().GetBool("refresh")

			p, err := c.app.Extras(cmd.Context(), channel, app.ResolveOptions{Refresh: refresh})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", p.Channel.Ref(), p.Channel.Digest)
			return nil
		},
	}
	cmd.Flags().StringP("channel", "c", "", "Channel to publish to (default \"extras\")")
	cmd.Flags().Bool("refresh", false, "Bypass the package index cache")
	return cmd
}
