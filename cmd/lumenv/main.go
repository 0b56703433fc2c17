// Package main is the entry point for the lumenv environment tool.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/lumenv/cmd/lumenv/commands"
	"go.trai.ch/lumenv/internal/app"
	"go.trai.ch/lumenv/internal/core/domain"
	_ "go.trai.ch/lumenv/internal/wiring"
)

// ComponentProvider is a function that returns the application components.
type ComponentProvider func(context.Context) (*app.Components, func(), error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr, func(ctx context.Context) (*app.Components, func(), error) {
		c, _, err := graft.ExecuteFor[*app.Components](ctx)
		return c, func() {}, err
	}))
}

func run(
	ctx context.Context,
	args []string,
	stderr io.Writer,
	provider ComponentProvider,
	opts ...func(*app.App),
) int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Initialize application components
	components, release, err := provider(ctx)
	if err != nil {
		// Logger is not available yet if initialization failed
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return 1
	}
	defer release()

	for _, opt := range opts {
		opt(components.App)
	}

	// 2. Interface - CLI
	var cliOpts []commands.Option
	if l, ok := components.Logger.(commands.LogConfigurer); ok {
		cliOpts = append(cliOpts, commands.WithLogConfigurer(l))
	}
	cli := commands.New(components.App, cliOpts...)
	cli.SetArgs(args)
	cli.SetOutput(os.Stdout, stderr)

	// 3. Execution
	if err := cli.Execute(ctx); err != nil {
		components.Logger.Error(err)
		return exitCode(err)
	}
	return 0
}

// exitCode returns the exit code of a failed job, or 1 for any other error.
func exitCode(err error) int {
	if !errors.Is(err, domain.ErrJobFailed) {
		return 1
	}
	for current := err; current != nil; current = errors.Unwrap(current) {
		md, ok := current.(interface{ Metadata() map[string]any })
		if !ok {
			continue
		}
		if code, ok := md.Metadata()["exit_code"].(int); ok && code > 0 {
			return code
		}
	}
	return 1
}
