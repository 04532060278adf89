package main

import (
	"fmt"
	"io"
	"time"

	"github.com/cyp0633/caldora/engine/interval"
	"github.com/cyp0633/caldora/engine/props"
	"github.com/cyp0633/caldora/engine/schedule"
	"github.com/cyp0633/caldora/engine/store"
	"github.com/samber/mo"
	"github.com/spf13/cobra"
)

type fitOptions struct {
	from string
	days int
}

func newFitCmd(a *app) *cobra.Command {
	opts := &fitOptions{}
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Place unscheduled tasks with an estimated duration into free time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFit(cmd.OutOrStdout(), a, opts)
		},
	}
	cmd.Flags().StringVar(&opts.from, "from", "", "day to start fitting (YYYY-MM-DD), defaults to today")
	cmd.Flags().IntVar(&opts.days, "days", 0, "days of events treated as busy, defaults to horizon_days")
	return cmd
}

func runFit(w io.Writer, a *app, opts *fitOptions) error {
	from, err := a.startOfDay(opts.from)
	if err != nil {
		return err
	}
	to := a.cfg.Horizon(from)
	if opts.days > 0 {
		to = from.AddDate(0, 0, opts.days)
	}

	var occupied []interval.Range
	for _, res := range a.store.Window(props.KindEvent, interval.New(from, to)) {
		occupied = append(occupied, res.Range)
	}

	var (
		tasks []store.Record
		items []schedule.Item
	)
	// Unscheduled tasks have neither start nor due, so none has an earliest start.
	for _, rec := range a.store.Unscheduled(props.KindTask) {
		d, ok := rec.Props.EstimatedDuration.Get()
		if !ok {
			a.logger.Debug("task has no estimated duration", "uid", rec.UID)
			continue
		}
		tasks = append(tasks, rec)
		items = append(items, schedule.Item{EarliestStart: mo.None[time.Time](), Duration: d})
	}
	if len(items) == 0 {
		fmt.Fprintln(w, "no tasks to fit")
		return nil
	}

	for i, placed := range schedule.Fit(from, occupied, items) {
		name := recordTitle(tasks[i])
		r, ok := placed.Get()
		if !ok {
			fmt.Fprintf(w, "%s: no free slot\n", name)
			continue
		}
		fmt.Fprintf(w, "%s: %s - %s\n", name,
			r.Start.In(a.loc).Format("Mon 2006-01-02 15:04"),
			r.End.In(a.loc).Format("15:04"))
	}
	return nil
}

func recordTitle(r store.Record) string {
	if s, ok := r.Props.Summary.Get(); ok && s != "" {
		return s
	}
	return r.UID
}
