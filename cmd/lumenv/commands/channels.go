package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/lumenv/internal/core/domain"
)

func (c *CLI) newChannelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "List published channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			history, _ := cmd.Flags().GetString("history")

			var (
				channels []domain.Channel
				err      error
			)
			if history != "" {
				channels, err = c.app.History(cmd.Context(), history)
			} else {
				channels, err = c.app.Channels(cmd.Context(), sourceOptions(cmd))
			}
			if err != nil {
				return err
			}
			for _, ch := range channels {
				printChannel(cmd.OutOrStdout(), ch)
			}
			return nil
		},
	}
	cmd.Flags().String("history", "", "List every version of one channel in the local store")
	addSourceFlags(cmd)
	cmd.MarkFlagsMutuallyExclusive("history", "addr")
	cmd.MarkFlagsMutuallyExclusive("history", "mount")
	return cmd
}
