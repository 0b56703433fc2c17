// Package commands implements the CLI commands for lumenv.
package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.trai.ch/lumenv/internal/adapters/detector" //nolint:depguard // Log format detection
	"go.trai.ch/lumenv/internal/app"
	"go.trai.ch/lumenv/internal/build"
	"go.trai.ch/lumenv/internal/core/domain"
)

// CLI represents the command line interface for lumenv.
type CLI struct {
	app     Application
	log     LogConfigurer
	rootCmd *cobra.Command
}

// Application represents the application logic interface.
type Application interface {
	Resolve(ctx context.Context, names []string, opts app.ResolveOptions) ([]app.Published, error)
	Extras(ctx context.Context, channel string, opts app.ResolveOptions) (app.Published, error)
	Show(ctx context.Context, ref, format string, opts app.SourceOptions) ([]byte, error)
	Channels(ctx context.Context, opts app.SourceOptions) ([]domain.Channel, error)
	History(ctx context.Context, name string) ([]domain.Channel, error)
	Export(ctx context.Context, refs []string, mountDir string) ([]string, error)
	Serve(ctx context.Context, opts app.ServeOptions) error
	Run(ctx context.Context, opts app.RunOptions) error
	RecordDeployment(ctx context.Context, deploymentID, ref string) (domain.DeploymentRecord, error)
	Dependencies(ctx context.Context, deploymentID string) (domain.DeploymentRecord, error)
	Clean(ctx context.Context, opts app.CleanOptions) error
}

// LogConfigurer is the part of the logger the global flags control.
type LogConfigurer interface {
	SetJSON(enable bool)
	SetLevel(level domain.LogLevel)
}

// Option configures a CLI.
type Option func(*CLI)

// WithLogConfigurer lets the global flags switch the log format and level.
func WithLogConfigurer(l LogConfigurer) Option {
	return func(c *CLI) {
		c.log = l
	}
}

// New creates a new CLI instance with the given app.
func New(a Application, opts ...Option) *CLI {
	rootCmd := &cobra.Command{
		Use:           "lumenv",
		Short:         "Reproducible package environments for isolated jobs",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.PersistentFlags().String("log-format", "auto", "Log format: auto, pretty, or json")
	rootCmd.PersistentFlags().Bool("json", false, "Write logs as JSON (shorthand for --log-format=json)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show debug logs")

	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"{{.Name}} version {{.Version}} (commit: %s, date: %s)\n",
		build.Commit,
		build.Date,
	))
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		app:     a,
		rootCmd: rootCmd,
	}
	for _, opt := range opts {
		opt(c)
	}

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		c.configureLogging(cmd)
	}

	rootCmd.AddCommand(c.newResolveCmd())
	rootCmd.AddCommand(c.newExtrasCmd())
	rootCmd.AddCommand(c.newShowCmd())
	rootCmd.AddCommand(c.newFetchCmd())
	rootCmd.AddCommand(c.newChannelsCmd())
	rootCmd.AddCommand(c.newExportCmd())
	rootCmd.AddCommand(c.newServeCmd())
	rootCmd.AddCommand(c.newRunCmd())
	rootCmd.AddCommand(c.newDeployCmd())
	rootCmd.AddCommand(c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

func (c *CLI) configureLogging(cmd *cobra.Command) {
	if c.log == nil {
		return
	}

	format, _ := cmd.Flags().GetString("log-format")
	if jsonLogs, _ := cmd.Flags().GetBool("json"); jsonLogs {
		format = "json"
	}
	c.log.SetJSON(detector.ResolveFormat(detector.DetectEnvironment(), format) == detector.FormatJSON)

	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		c.log.SetLevel(domain.LogLevelDebug)
	}
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}

// addSourceFlags registers the flags that select a snapshot source.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("addr", "", "Fetch from a distribution server (host:port or unix:///path)")
	cmd.Flags().String("mount", "", "Fetch from a mounted snapshot export")
	cmd.MarkFlagsMutuallyExclusive("addr", "mount")
}

func sourceOptions(cmd *cobra.Command) app.SourceOptions {
	addr, _ := cmd.Flags().GetString("addr")
	mountDir, _ := cmd.Flags().GetString("mount")
	return app.SourceOptions{Addr: addr, MountDir: mountDir}
}

func printChannel(w io.Writer, ch domain.Channel) {
	_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", ch.Ref(), ch.Digest, ch.CreatedAt.UTC().Format(time.RFC3339))
}
