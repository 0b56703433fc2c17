package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/lumenv/internal/app"
	"go.trai.ch/lumenv/internal/core/domain"
)

func (c *CLI) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve snapshots over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, _ := cmd.Flags().GetString("addr")
			mountDir, _ := cmd.Flags().GetString("mount")
			idle, _ := cmd.Flags().GetDuration("idle")

			return c.app.Serve(cmd.Context(), app.ServeOptions{
				Addr:     addr,
				MountDir: mountDir,
				Idle:     idle,
			})
		},
	}
	cmd.Flags().String("addr", domain.DefaultAddr, "Listen address (host:port or unix:///path)")
	cmd.Flags().String("mount", "", "Serve a mounted snapshot export instead of the local store")
	cmd.Flags().Duration("idle", 0, "Stop after this long without requests (0 disables)")
	return cmd
}
