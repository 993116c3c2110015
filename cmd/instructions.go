package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/jonesrussell/north-cloud/scan-registry/internal/bootstrap"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/daytime"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/models"
	"github.com/jonesrussell/north-cloud/scan-registry/internal/scheduler"
)

const dateLayout = "2006-01-02"

var errSiteRequired = errors.New("--site is required")

func newInstructionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "instructions",
		Short: "Manage server instructions",
	}
	cmd.AddCommand(
		newInstructionsCreateCommand(),
		newInstructionsListCommand(),
		newInstructionsNextCommand(),
		newInstructionsSetRunningCommand(),
	)
	return cmd
}

type createFlags struct {
	site         string
	operation    string
	times        []string
	weekdays     []int
	excludeDates []string
	stopAt       string
}

func (f createFlags) request(site bson.ObjectID) (scheduler.Request, error) {
	op, ok := models.ParseOperation(strings.ToUpper(f.operation))
	if !ok {
		// Unknown names reach the scheduler, which reports them.
		op = models.Operation(f.operation)
	}
	req := scheduler.Request{Operation: op, Site: site, Times: f.times, Weekdays: f.weekdays}

	if f.excludeDates != nil {
		req.ExcludeDates = make([]time.Time, 0, len(f.excludeDates))
		for _, raw := range f.excludeDates {
			d, err := time.ParseInLocation(dateLayout, raw, time.UTC)
			if err != nil {
				return scheduler.Request{}, fmt.Errorf("exclude date %q: expected YYYY-MM-DD: %w", raw, err)
			}
			req.ExcludeDates = append(req.ExcludeDates, d)
		}
	}
	if f.stopAt != "" {
		at, err := time.Parse(time.RFC3339, f.stopAt)
		if err != nil {
			return scheduler.Request{}, fmt.Errorf("stop time %q: expected RFC 3339: %w", f.stopAt, err)
		}
		req.StopAt = &at
	}
	return req, nil
}

func newInstructionsCreateCommand() *cobra.Command {
	var flags createFlags
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a server instruction for a site",
		Long: `Create a RUN, STOP or "STOP AND RUN" instruction. A site holds at most two
instructions, never two of the same operation and never STOP together with
STOP AND RUN.

Example:
  scan-registry instructions create --site https://www.site1.com --op RUN \
    --times 09:00:00,18:30:00 --weekdays 0,2,4 --exclude-date 2024-12-25`,
		Args: cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ []string) error {
			if cmd.Flags().Changed("exclude-date") && flags.excludeDates == nil {
				flags.excludeDates = []string{}
			}
			site, err := resolveSite(cmd.Context(), app, flags.site)
			if err != nil {
				return err
			}
			req, err := flags.request(site)
			if err != nil {
				return err
			}
			id, err := app.Scheduler.CreateInstruction(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.Hex())
			return nil
		}),
	}
	cmd.Flags().StringVar(&flags.site, "site", "", "site ID or URL")
	cmd.Flags().StringVar(&flags.operation, "op", string(models.OperationRun), `operation: RUN, STOP or "STOP AND RUN"`)
	cmd.Flags().StringSliceVar(&flags.times, "times", nil, "run times as HH:MM:SS")
	cmd.Flags().IntSliceVar(&flags.weekdays, "weekdays", nil, "run weekdays, 0 is Monday")
	cmd.Flags().StringSliceVar(&flags.excludeDates, "exclude-date", nil, "dates to skip as YYYY-MM-DD")
	cmd.Flags().StringVar(&flags.stopAt, "stop-at", "", "stop time in RFC 3339")
	return cmd
}

func newInstructionsListCommand() *cobra.Command {
	var siteFlag string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the instructions of a site",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ []string) error {
			site, err := resolveSite(cmd.Context(), app, siteFlag)
			if err != nil {
				return err
			}
			instructions, err := app.Scheduler.List(cmd.Context(), site)
			if err != nil {
				return err
			}
			renderInstructions(cmd.OutOrStdout(), instructions, time.Now().UTC())
			return nil
		}),
	}
	cmd.Flags().StringVar(&siteFlag, "site", "", "site ID or URL")
	return cmd
}

func newInstructionsNextCommand() *cobra.Command {
	var siteFlag, afterFlag string
	cmd := &cobra.Command{
		Use:   "next",
		Short: "Show when each instruction of a site next takes effect",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ []string) error {
			after := time.Now().UTC()
			if afterFlag != "" {
				parsed, err := time.Parse(time.RFC3339, afterFlag)
				if err != nil {
					return fmt.Errorf("after %q: expected RFC 3339: %w", afterFlag, err)
				}
				after = parsed
			}
			site, err := resolveSite(cmd.Context(), app, siteFlag)
			if err != nil {
				return err
			}
			instructions, err := app.Scheduler.List(cmd.Context(), site)
			if err != nil {
				return err
			}
			renderInstructions(cmd.OutOrStdout(), instructions, after)
			return nil
		}),
	}
	cmd.Flags().StringVar(&siteFlag, "site", "", "site ID or URL")
	cmd.Flags().StringVar(&afterFlag, "after", "", "reference time in RFC 3339 (default now)")
	return cmd
}

func newInstructionsSetRunningCommand() *cobra.Command {
	var siteFlag string
	var running bool
	cmd := &cobra.Command{
		Use:   "set-running",
		Short: "Flip the running flag of a site's instructions",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, app *bootstrap.App, _ []string) error {
			site, err := resolveSite(cmd.Context(), app, siteFlag)
			if err != nil {
				return err
			}
			failures, err := app.Scheduler.SetRunning(cmd.Context(), site, running)
			if err != nil {
				return err
			}
			for _, f := range failures {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed: %v\n", f)
			}
			if len(failures) > 0 {
				return fmt.Errorf("%d instructions not updated", len(failures))
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&siteFlag, "site", "", "site ID or URL")
	cmd.Flags().BoolVar(&running, "running", true, "running state to set")
	return cmd
}

// resolveSite turns a hex ID or URL into a site identity.
func resolveSite(ctx context.Context, app *bootstrap.App, ref string) (bson.ObjectID, error) {
	if ref == "" {
		return bson.ObjectID{}, errSiteRequired
	}
	if id, err := bson.ObjectIDFromHex(ref); err == nil {
		return id, nil
	}
	site, err := app.Sites.FindByURL(ctx, ref)
	if err != nil {
		return bson.ObjectID{}, err
	}
	return site.ID, nil
}

func renderInstructions(w io.Writer, instructions []*models.ServerInstruction, after time.Time) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Operation", "Times", "Weekdays", "Excluded", "Stop At", "Running", "Next"})
	for _, inst := range instructions {
		next := "-"
		if at, ok := scheduler.NextRun(inst, after); ok {
			next = at.Format(time.RFC3339)
		}
		stop := "-"
		if inst.StopAt != nil {
			stop = inst.StopAt.UTC().Format(time.RFC3339)
		}
		t.AppendRow(table.Row{
			inst.ID.Hex(),
			inst.Operation,
			formatTimes(inst.Times),
			fmt.Sprint(inst.Weekdays),
			formatDates(inst.ExcludeDates),
			stop,
			inst.Running,
			next,
		})
	}
	t.Render()
}

func formatTimes(times []int) string {
	parts := make([]string, len(times))
	for i, ds := range times {
		h, m, s := daytime.Clock(ds)
		parts[i] = fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return strings.Join(parts, ",")
}

func formatDates(dates []time.Time) string {
	parts := make([]string, len(dates))
	for i, d := range dates {
		parts[i] = d.UTC().Format(dateLayout)
	}
	return strings.Join(parts, ",")
}
