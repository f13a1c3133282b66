package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"giftexchange/internal/app"
	rosterHandler "giftexchange/internal/roster/handler"
	id "giftexchange/pkg/domain"
)

// NewMembersCommand groups the roster commands.
func NewMembersCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "members",
		Short: "Manage the exchange roster",
	}
	cmd.AddCommand(
		newMembersListCommand(rootOpts),
		newMembersAddCommand(rootOpts),
		newMembersRenameCommand(rootOpts),
		newMembersDeleteCommand(rootOpts),
	)
	return cmd
}

func newMembersListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List members in the order they joined",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				members, err := a.Roster.List(ctx)
				if err != nil {
					return domainExit("list members", err)
				}
				out := rosterHandler.FromMembers(members)
				return formatter{rootOpts.Format, cmd.OutOrStdout()}.emit(out, func(tw *tabwriter.Writer) {
					fmt.Fprintln(tw, "ID\tNAME")
					for _, m := range out {
						fmt.Fprintf(tw, "%s\t%s\n", m.ID, m.Name)
					}
				})
			})
		},
	}
}

func newMembersAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <name>",
		Short: "Add a member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				m, err := a.Roster.Create(ctx, args[0])
				if err != nil {
					return domainExit("add member", err)
				}
				out := rosterHandler.FromMember(m)
				return formatter{rootOpts.Format, cmd.OutOrStdout()}.emit(out, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "added %s\t%s\n", out.Name, out.ID)
				})
			})
		},
	}
}

func newMembersRenameCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <name>",
		Short: "Change a member's display name",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID, err := id.ParseMemberID(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "rename member", err)
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				res, err := a.Roster.Rename(ctx, memberID, args[1])
				if err != nil {
					return domainExit("rename member", err)
				}
				out := rosterHandler.FromRename(res)
				return formatter{rootOpts.Format, cmd.OutOrStdout()}.emit(out, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "renamed %s -> %s\n", out.OldName, out.Name)
				})
			})
		},
	}
}

func newMembersDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a member; past cycles keep their assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			memberID, err := id.ParseMemberID(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "delete member", err)
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				m, err := a.Roster.Delete(ctx, memberID)
				if err != nil {
					return domainExit("delete member", err)
				}
				out := rosterHandler.FromDeleted(m)
				return formatter{rootOpts.Format, cmd.OutOrStdout()}.emit(out, func(tw *tabwriter.Writer) {
					fmt.Fprintf(tw, "deleted %s\t%s\n", out.Name, out.ID)
				})
			})
		},
	}
}
