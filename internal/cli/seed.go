package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"giftexchange/internal/app"
	rosterHandler "giftexchange/internal/roster/handler"
	"giftexchange/internal/roster/models"
)

// DefaultFamily is the roster seeded when no file is given.
var DefaultFamily = []string{
	"Brenden", "Carol Ann", "D'Andre", "Pippin", "Bear", "Mack", "Dan",
	"Lara", "Sameera", "Piper", "Kyle", "Robbie", "Jazz", "Eric",
}

// SeedFile is the YAML layout accepted by seed --file:
//
//	members:
//	  - Brenden
//	  - Carol Ann
type SeedFile struct {
	Members []string `yaml:"members"`
}

// LoadSeedFile reads and validates a seed file.
func LoadSeedFile(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f SeedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file %s: %w", path, err)
	}
	if len(f.Members) == 0 {
		return nil, fmt.Errorf("seed file %s lists no members", path)
	}
	return f.Members, nil
}

// NewSeedCommand creates the seed command.
func NewSeedCommand(rootOpts *RootOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add a batch of members in one transaction",
		Long: `Add the built-in family roster, or the members listed in a YAML file.
Either every member is added or, when any name is already taken, none are.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names := DefaultFamily
			if file != "" {
				var err error
				if names, err = LoadSeedFile(file); err != nil {
					return WrapExitError(ExitCommandError, "seed", err)
				}
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				created := make([]*models.Member, 0, len(names))
				err := a.RunInTx(ctx, func(ctx context.Context) error {
					for _, name := range names {
						m, err := a.Roster.Create(ctx, name)
						if err != nil {
							return fmt.Errorf("add %q: %w", name, err)
						}
						created = append(created, m)
					}
					return nil
				})
				if err != nil {
					return domainExit("seed", err)
				}
				out := rosterHandler.FromMembers(created)
				return formatter{rootOpts.Format, cmd.OutOrStdout()}.emit(out, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "seeded %d members\n", len(out))
				})
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with a members list")
	return cmd
}
