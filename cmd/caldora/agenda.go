package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cyp0633/caldora/engine/interval"
	"github.com/cyp0633/caldora/engine/layout"
	"github.com/cyp0633/caldora/engine/props"
	"github.com/cyp0633/caldora/engine/store"
	"github.com/cyp0633/caldora/internal/xcal"
	"github.com/spf13/cobra"
)

type agendaOptions struct {
	from     string
	days     int
	week     bool
	tasks    bool
	xcal     bool
	match    []string
	matchAny bool
}

func newAgendaCmd(a *app) *cobra.Command {
	opts := &agendaOptions{}
	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "List occurrences in a date range with their display columns",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgenda(cmd.OutOrStdout(), a, opts)
		},
	}
	cmd.Flags().StringVar(&opts.from, "from", "", "first day (YYYY-MM-DD), defaults to today")
	cmd.Flags().IntVar(&opts.days, "days", 0, "number of days, defaults to horizon_days")
	cmd.Flags().BoolVar(&opts.week, "week", false, "start at the beginning of the week containing --from")
	cmd.Flags().BoolVar(&opts.tasks, "tasks", false, "include tasks")
	cmd.Flags().BoolVar(&opts.xcal, "xcal", false, "write xCal XML instead of text")
	cmd.Flags().StringArrayVar(&opts.match, "match", nil, "property filter, e.g. summary=standup, !status==cancelled, -location (repeatable)")
	cmd.Flags().BoolVar(&opts.matchAny, "any", false, "keep occurrences matching any --match instead of all")
	return cmd
}

func runAgenda(w io.Writer, a *app, opts *agendaOptions) error {
	from, err := a.startOfDay(opts.from)
	if err != nil {
		return err
	}
	if opts.week {
		from = a.cfg.WeekOf(from)
	}
	to := a.cfg.Horizon(from)
	if opts.days > 0 {
		to = from.AddDate(0, 0, opts.days)
	}
	window := interval.New(from, to)

	filter, err := parseFilter(opts.match, opts.matchAny)
	if err != nil {
		return err
	}

	kinds := []props.Kind{props.KindEvent}
	if opts.tasks {
		kinds = append(kinds, props.KindTask)
	}

	var (
		results []store.Result
		slots   []layout.Slot
	)
	for _, k := range kinds {
		res := filter.Apply(a.store.Window(k, window))
		results = append(results, res...)
		slots = append(slots, store.Layout(res)...)
	}

	if opts.xcal {
		return xcal.Write(w, results, slots)
	}
	printAgenda(w, a.loc, results, slots)
	return nil
}

func parseFilter(exprs []string, matchAny bool) (store.Filter, error) {
	f := store.Filter{Test: "allof"}
	if matchAny {
		f.Test = "anyof"
	}
	for _, e := range exprs {
		pf, err := store.ParsePropFilter(e)
		if err != nil {
			return store.Filter{}, err
		}
		f.PropFilters = append(f.PropFilters, pf)
	}
	return f, nil
}

func printAgenda(w io.Writer, loc *time.Location, results []store.Result, slots []layout.Slot) {
	if len(results) == 0 {
		fmt.Fprintln(w, "nothing scheduled")
		return
	}
	var lastDay string
	for i, res := range results {
		if res.Kind == props.KindTask && (i == 0 || results[i-1].Kind != props.KindTask) {
			fmt.Fprintln(w, "Tasks")
			lastDay = ""
		}
		start := res.Range.Start.In(loc)
		if day := start.Format("Mon 2006-01-02"); day != lastDay {
			fmt.Fprintln(w, day)
			lastDay = day
		}

		when := start.Format("15:04")
		if !res.Range.IsPoint() {
			when += "-" + res.Range.End.In(loc).Format("15:04")
		}
		var flags []string
		if res.IsOverride {
			flags = append(flags, "moved")
		}
		if st, ok := res.Bag.Status.Get(); ok {
			flags = append(flags, strings.ToLower(st.String()))
		}
		line := fmt.Sprintf("  %-11s [%d/%d] %s", when, slots[i].Column+1, slots[i].MaxN, title(res))
		if len(flags) > 0 {
			line += " (" + strings.Join(flags, ", ") + ")"
		}
		fmt.Fprintln(w, line)
	}
}

func title(res store.Result) string {
	if res.Bag != nil {
		if s, ok := res.Bag.Summary.Get(); ok && s != "" {
			return s
		}
	}
	return res.UID
}
