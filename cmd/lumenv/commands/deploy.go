package commands

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"go.trai.ch/lumenv/internal/core/domain"
)

func (c *CLI) newDeployCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Record and inspect deployment dependencies",
	}

	cmd.AddCommand(c.newDeployRecordCmd())
	cmd.AddCommand(c.newDeployDepsCmd())

	return cmd
}

func (c *CLI) newDeployRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "record <id> <ref>",
		Short: "Record the snapshot a deployment was built from",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := c.app.RecordDeployment(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			return writeRecord(cmd, record)
		},
	}
}

func (c *CLI) newDeployDepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "deps <id>",
		Short: "Print the dependencies recorded for a deployment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			record, err := c.app.Dependencies(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeRecord(cmd, record)
		},
	}
}

func writeRecord(cmd *cobra.Command, record domain.DeploymentRecord) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}
