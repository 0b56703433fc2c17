package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/lumenv/internal/app"
	"go.trai.ch/lumenv/internal/core/domain"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <module>",
		Short: "Run a flow module against a snapshot",
		Long: "Run a flow, referenced by module path such as pkg.flows.train, with the\n" +
			"pinned packages of a channel exported into its environment.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			channel, _ := cmd.Flags().GetString("channel")
			backend, _ := cmd.Flags().GetString("backend")
			workdir, _ := cmd.Flags().GetString("workdir")
			env, _ := cmd.Flags().GetStringArray("env")
			image, _ := cmd.Flags().GetString("image")

			return c.app.Run(cmd.Context(), app.RunOptions{
				Module:     args[0],
				Channel:    channel,
				Backend:    backend,
				WorkingDir: workdir,
				Env:        env,
				Image:      image,
				Source:     sourceOptions(cmd),
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
			})
		},
	}
	cmd.Flags().StringP("channel", "c", "", "Snapshot reference the job runs against")
	cmd.Flags().StringP("backend", "b", domain.BackendLocal, "Backend: local or docker")
	cmd.Flags().StringP("workdir", "w", "", "Working directory of the job")
	cmd.Flags().StringArrayP("env", "e", nil, "Job environment variable (KEY=VALUE, repeatable)")
	cmd.Flags().String("image", "", "Container image for the docker backend")
	addSourceFlags(cmd)
	_ = cmd.MarkFlagRequired("channel")
	return cmd
}
