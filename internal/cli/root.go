// Package cli implements the giftexchange admin commands.
package cli

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"giftexchange/internal/app"
	"giftexchange/internal/platform/config"
	"giftexchange/internal/platform/logger"
)

// RootOptions holds global flags and the dependency builder shared by every
// command.
type RootOptions struct {
	Format string // "text" | "json"

	// Build opens the application. Logs go to logOut so they never mix with
	// command output.
	Build func(ctx context.Context, logOut io.Writer) (*app.App, error)
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command configured from the environment.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(&RootOptions{Build: BuildFromEnv})
}

// NewRootCommandWith creates the root command around opts.
func NewRootCommandWith(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "giftexchange",
		Short:         "Anonymous family gift-exchange draws",
		Long:          "Manage the exchange roster and draw yearly cycles that never repeat a recent pairing.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewMembersCommand(opts))
	cmd.AddCommand(NewDrawCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// BuildFromEnv loads configuration from the environment and opens the app.
func BuildFromEnv(ctx context.Context, logOut io.Writer) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.New(ctx, cfg, logger.NewWithWriter(logOut, cfg.LogLevel, cfg.LogFormat))
}

// withApp opens the app for one command and closes it afterwards.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, a *app.App) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := opts.Build(ctx, cmd.ErrOrStderr())
	if err != nil {
		return WrapExitError(ExitCommandError, "open giftexchange", err)
	}
	defer func() {
		if closeErr := a.Close(context.WithoutCancel(ctx)); closeErr != nil && err == nil {
			err = WrapExitError(ExitCommandError, "close giftexchange", closeErr)
		}
	}()
	return fn(ctx, a)
}
