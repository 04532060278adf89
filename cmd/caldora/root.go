package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cyp0633/caldora/engine/store"
	"github.com/cyp0633/caldora/internal/config"
	"github.com/cyp0633/caldora/internal/icalsrc"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

// app is the state shared by all subcommands once the root has run.
type app struct {
	configPath string
	sources    []string
	logLevel   string

	cfg    *config.Config
	loc    *time.Location
	logger *slog.Logger
	store  *store.Store
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "caldora",
		Short:         "Calendar and task engine over iCalendar files",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "caldora.yaml", "path to a YAML or TOML config file")
	root.PersistentFlags().StringArrayVar(&a.sources, "ics", nil, "iCalendar file to load (repeatable, overrides config sources)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")

	root.AddCommand(newAgendaCmd(a), newFitCmd(a))
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
		cfg.Normalize()
	}
	a.cfg = cfg

	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	if a.loc, err = cfg.Location(); err != nil {
		return err
	}

	sources := a.sources
	if len(sources) == 0 {
		sources = cfg.Sources
	}
	a.store = store.New(store.Options{Logger: a.logger, Engine: cfg.Engine()})
	for _, path := range sources {
		if err := a.loadFile(path); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) loadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	results, err := icalsrc.Decode(f, a.loc)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	var records []store.Record
	for _, res := range results {
		rec, err := res.Get()
		if err != nil {
			a.logger.Warn("skipping component", "file", path, "error", err)
			continue
		}
		records = append(records, rec)
	}
	loaded := a.store.Load(records)
	a.logger.Info("loaded calendar", "file", path, "records", loaded.Loaded, "rejected", len(loaded.Rejected))
	return nil
}

// startOfDay parses a --from value in the configured zone. Empty means today.
func (a *app) startOfDay(v string) (time.Time, error) {
	if v == "" {
		now := time.Now().In(a.loc)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.loc), nil
	}
	t, err := time.ParseInLocation(dateLayout, v, a.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", v)
	}
	return t, nil
}
