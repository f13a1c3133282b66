package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"giftexchange/internal/app"
	exchangeHandler "giftexchange/internal/exchange/handler"
	exchangeService "giftexchange/internal/exchange/service"
	"giftexchange/internal/pairing/models"
	id "giftexchange/pkg/domain"
)

type drawOptions struct {
	cycleKey    int64
	maxAttempts int
	dryRun      bool
	repeat      int
}

// SimulationResponse is the JSON shape of draw --repeat.
type SimulationResponse struct {
	Runs          int     `json:"runs"`
	Succeeded     int     `json:"succeeded"`
	Exhausted     int     `json:"exhausted"`
	MaxAttempts   int     `json:"max_attempts"`
	MeanAttempts  float64 `json:"mean_attempts"`
	TotalAttempts int     `json:"total_attempts"`
}

// NewDrawCommand creates the draw command.
func NewDrawCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &drawOptions{}
	cmd := &cobra.Command{
		Use:   "draw",
		Short: "Draw the next gift-exchange cycle",
		Long: `Draw a cycle for the current roster that repeats no pairing from the
recent cycles. Without --cycle-key the next key after the latest cycle is used,
or the current year when there is no history.

With --repeat N the draw runs N times against the same roster and history
without saving anything and reports how many runs succeeded.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.repeat < 0 {
				return WrapExitError(ExitCommandError, "draw", fmt.Errorf("--repeat must not be negative"))
			}
			if opts.maxAttempts < 0 {
				return WrapExitError(ExitCommandError, "draw", fmt.Errorf("--max-attempts must not be negative"))
			}
			return withApp(cmd, rootOpts, func(ctx context.Context, a *app.App) error {
				out := formatter{rootOpts.Format, cmd.OutOrStdout()}
				if opts.repeat > 0 {
					return runSimulation(ctx, a, opts, out)
				}
				return runDraw(ctx, a, opts, out)
			})
		},
	}

	cmd.Flags().Int64Var(&opts.cycleKey, "cycle-key", 0, "cycle to draw (default: next after the latest)")
	cmd.Flags().IntVar(&opts.maxAttempts, "max-attempts", 0, "shuffles to try before giving up (default from config)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "draw without saving the cycle")
	cmd.Flags().IntVar(&opts.repeat, "repeat", 0, "stress-run the draw N times without saving")

	return cmd
}

func runDraw(ctx context.Context, a *app.App, opts *drawOptions, out formatter) error {
	req := exchangeService.GenerateRequest{MaxAttempts: opts.maxAttempts, DryRun: opts.dryRun}
	if opts.cycleKey != 0 {
		key, err := id.NewCycleKey(opts.cycleKey)
		if err != nil {
			return WrapExitError(ExitCommandError, "draw", err)
		}
		req.Key = &key
	}

	res, err := a.Exchange.Generate(ctx, req)
	if err != nil {
		return domainExit("draw", err)
	}
	names, err := memberNames(ctx, a)
	if err != nil {
		return err
	}

	return out.emit(exchangeHandler.FromGenerated(res), func(tw *tabwriter.Writer) {
		status := "saved"
		if res.DryRun {
			status = "dry run, not saved"
		}
		fmt.Fprintf(tw, "cycle %s (%d members, %d attempts, %s)\n", res.Cycle.Key, res.RosterSize, res.Attempts, status)
		writeAssignments(tw, res.Cycle, names)
	})
}

func runSimulation(ctx context.Context, a *app.App, opts *drawOptions, out formatter) error {
	report, err := a.Exchange.Simulate(ctx, opts.repeat, opts.maxAttempts)
	if err != nil {
		return domainExit("simulate", err)
	}
	resp := SimulationResponse{
		Runs:          report.Runs,
		Succeeded:     report.Succeeded,
		Exhausted:     report.Exhausted,
		MaxAttempts:   report.MaxAttempts,
		MeanAttempts:  report.MeanAttempts(),
		TotalAttempts: report.TotalAttempts,
	}
	return out.emit(resp, func(tw *tabwriter.Writer) {
		fmt.Fprintf(tw, "runs\t%d\n", resp.Runs)
		fmt.Fprintf(tw, "succeeded\t%d\n", resp.Succeeded)
		fmt.Fprintf(tw, "exhausted\t%d\n", resp.Exhausted)
		fmt.Fprintf(tw, "mean attempts\t%.2f\n", resp.MeanAttempts)
		fmt.Fprintf(tw, "max attempts\t%d\n", resp.MaxAttempts)
	})
}

// memberNames maps current member ids to display names.
func memberNames(ctx context.Context, a *app.App) (map[id.MemberID]string, error) {
	members, err := a.Roster.List(ctx)
	if err != nil {
		return nil, domainExit("list members", err)
	}
	names := make(map[id.MemberID]string, len(members))
	for _, m := range members {
		names[m.ID] = m.Name
	}
	return names, nil
}

// writeAssignments prints one giver/recipient row per assignment. Members
// deleted since the draw show as their id.
func writeAssignments(tw *tabwriter.Writer, c *models.Cycle, names map[id.MemberID]string) {
	label := func(m id.MemberID) string {
		if name, ok := names[m]; ok {
			return name
		}
		return m.String()
	}
	fmt.Fprintln(tw, "GIVER\tRECIPIENT")
	for _, as := range c.Assignments {
		fmt.Fprintf(tw, "%s\t%s\n", label(as.Giver), label(as.Recipient))
	}
}
