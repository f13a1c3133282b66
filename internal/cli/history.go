package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"giftexchange/internal/app"
	exchangeHandler "giftexchange/internal/exchange/handler"
	audit "giftexchange/pkg/platform/audit"
)

// HistoryResponse is the JSON shape of the history command.
type HistoryResponse struct {
	Cycles []exchangeHandler.CycleResponse `json:"cycles"`
	Events []audit.Event                   `json:"events,omitempty"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var auditLimit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past cycles, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				cycles, err := a.Exchange.ListCycles(ctx)
				if err != nil {
					return domainExit("list cycles", err)
				}
				names, err := memberNames(ctx, a)
				if err != nil {
					return err
				}
				resp := HistoryResponse{Cycles: exchangeHandler.FromCycles(cycles)}
				if auditLimit > 0 {
					resp.Events, err = a.Audit.List(ctx, auditLimit)
					if err != nil {
						return WrapExitError(ExitCommandError, "list audit events", err)
					}
				}

				return formatter{rootOpts.Format, cmd.OutOrStdout()}.emit(resp, func(tw *tabwriter.Writer) {
					if len(cycles) == 0 {
						fmt.Fprintln(tw, "no cycles drawn yet")
					}
					for i := range cycles {
						fmt.Fprintf(tw, "cycle %s drawn %s\n", cycles[i].Key, cycles[i].CreatedAt.Format(time.DateOnly))
						writeAssignments(tw, &cycles[i], names)
						fmt.Fprintln(tw)
					}
					for _, e := range resp.Events {
						fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.Timestamp.Format(time.RFC3339), e.Action, e.Subject, e.Reason)
					}
				})
			})
		},
	}
	cmd.Flags().IntVar(&auditLimit, "audit", 0, "also show the N most recent audit events")
	return cmd
}
