package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/lumenv/internal/app"
)

const formatUsage = "Output format: json, requirements, conda, or environment"

func (c *CLI) newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <ref>",
		Short: "Print a snapshot from the local store",
		Long:  "Print the snapshot a reference (name, name@version, name@latest or sha256:<hex>) points to.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			return c.show(cmd, args[0], format, app.SourceOptions{})
		},
	}
	cmd.Flags().StringP("format", "f", app.FormatJSON, formatUsage)
	return cmd
}

func (c *CLI) newFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch <ref>",
		Short: "Fetch a snapshot from a distribution server or mount",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			return c.show(cmd, args[0], format, sourceOptions(cmd))
		},
	}
	cmd.Flags().StringP("format", "f", app.FormatJSON, formatUsage)
	addSourceFlags(cmd)
	return cmd
}

func (c *CLI) show(cmd *cobra.Command, ref, format string, opts app.SourceOptions) error {
	data, err := c.app.Show(cmd.Context(), ref, format, opts)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}
