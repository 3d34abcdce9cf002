package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"notedesk/internal/layout"
	"notedesk/internal/model"
	"notedesk/internal/web"
)

func newLayoutCmd(opts *rootOptions) *cobra.Command {
	var date, user string

	cmd := &cobra.Command{
		Use:   "layout",
		Short: "Print the column layout of one day's events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loc := opts.cfg.Location()
			day, err := parseDate(date, loc)
			if err != nil {
				return err
			}

			st, err := opts.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			events, err := st.EventsBetween(cmd.Context(), user, day.UnixMilli(), day.AddDate(0, 0, 1).UnixMilli())
			if err != nil {
				return err
			}
			return printDay(cmd.OutOrStdout(), layout.EventsOnDay(events, day), day, loc)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to lay out, YYYY-MM-DD (default today).")
	cmd.Flags().StringVar(&user, "user", web.DefaultUser, "Owner of the calendars.")
	return cmd
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		now := time.Now().In(loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc), nil
	}
	d, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

func printDay(out io.Writer, events []model.Event, day time.Time, loc *time.Location) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\n", day.Format("Mon 2006-01-02"))

	timed := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if ev.AllDay {
			fmt.Fprintf(tw, "all-day\t\t%s\n", ev.Title)
			continue
		}
		timed = append(timed, ev)
	}
	for _, p := range layout.Day(timed) {
		fmt.Fprintf(tw, "%s-%s\t%d/%d\t%s\n",
			p.Start(loc).Format("15:04"), p.End(loc).Format("15:04"),
			p.Column+1, p.TotalColumns, p.Title)
	}
	return tw.Flush()
}
