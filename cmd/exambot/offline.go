package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	service "github.com/okian/exambot/internal/app"
	"github.com/okian/exambot/internal/domain/model"
	"github.com/okian/exambot/internal/domain/types"
)

func newCheckCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Ingest a timetable workbook and report what was read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, rep, err := c.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
}

func newQueryCmd(c *cli) *cobra.Command {
	var roles bool
	cmd := &cobra.Command{
		Use:   "query <file> <course...>",
		Short: "Print the exams of the given courses",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, _, err := c.load(ctx, args[0])
			if err != nil {
				return err
			}
			var res types.Pages
			if roles {
				if res, err = svc.RoleExams(ctx, args[1:]); err != nil {
					return err
				}
			} else {
				res = svc.Exams(ctx, args[1:])
			}
			printPages(cmd.OutOrStdout(), res, false)
			return nil
		},
	}
	cmd.Flags().BoolVar(&roles, "roles", false, "Treat arguments as chat role names such as COMP-102")
	return cmd
}

func newListCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "list <file>",
		Short: "Print every exam in course order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, _, err := c.load(ctx, args[0])
			if err != nil {
				return err
			}
			res, err := svc.List(ctx)
			if err != nil {
				return err
			}
			printPages(cmd.OutOrStdout(), res, true)
			return nil
		},
	}
}

// load ingests path into a service that is never started.
func (c *cli) load(ctx context.Context, path string) (*service.Service, types.IngestReport, error) {
	cfg := c.cfg
	svc := service.New(
		service.WithLogger(c.log.Named("service")),
		service.WithDataFile(path),
		service.WithSheet(cfg.Sheet),
		service.WithBudget(cfg.MessageBudget),
		service.WithIngestOptions(ingestOptions(cfg)...),
		service.WithWatchDataFile(false),
	)
	rep, err := svc.Ingest(ctx, path)
	if err != nil {
		return nil, rep, err
	}
	return svc, rep, nil
}

func printReport(w io.Writer, rep types.IngestReport) { //nolint:gocritic // hugeParam: printed once
	fmt.Fprintf(w, "courses: %d\n", rep.Courses)
	fmt.Fprintf(w, "rows scanned: %d (skipped %d, duplicates %d, last row %d)\n",
		rep.RowsScanned, rep.RowsSkipped, rep.Duplicates, rep.LastRow)
	for _, is := range rep.Issues {
		fmt.Fprintf(w, "row %d column %s: %q: %s\n", is.Row, is.Column, is.Value, is.Error)
	}
}

func printPages(w io.Writer, res types.Pages, footers bool) {
	for i, p := range res.Pages {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprint(w, p)
		if footers {
			fmt.Fprintf(w, "Page %d of %d\n", i+1, len(res.Pages))
		}
	}
	for _, m := range res.Misses {
		fmt.Fprintf(w, "%s: %s\n", m.Token, missText(m.Reason))
	}
}

func missText(r model.Reason) string {
	switch r {
	case model.ReasonNotACourse:
		return "not a course code"
	case model.ReasonNoData:
		return "no exam data"
	default:
		return string(r)
	}
}
