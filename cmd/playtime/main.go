// Command playtime is an operator tool over per-user playtime
// databases: it migrates them, records play sessions and manual
// corrections, and prints the recorded statistics.
//
// Usage:
//
//	playtime --data-dir ~/.playtime --user 76561198000000000 stats
//	playtime --user 76561198000000000 add 1245620 "Elden Ring" \
//	  --start 2024-01-01T22:00:00 --end 2024-01-02T02:00:00
package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/playtime/tracker/pkg/config"
	"github.com/playtime/tracker/pkg/playtime"
	"github.com/playtime/tracker/pkg/registry"
	"github.com/playtime/tracker/pkg/sqlite"
	"github.com/playtime/tracker/pkg/users"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	DataDir    string
	User       string
	ConfigFile string
	Verbose    bool

	log      *slog.Logger
	registry *registry.Registry
	manager  *users.Manager
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "playtime",
		Short:         "Inspect and maintain per-user playtime databases",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return opts.registry.Clear()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "root data directory (overrides config)")
	cmd.PersistentFlags().StringVar(&opts.User, "user", "", "numeric user id")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "optional YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newCorrectCommand(opts))
	cmd.AddCommand(newSessionsCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newDailyCommand(opts))
	cmd.AddCommand(newGamesCommand(opts))
	cmd.AddCommand(newUsersCommand(opts))

	return cmd
}

func (o *rootOptions) setup() error {
	level := slog.LevelInfo
	if o.Verbose {
		level = slog.LevelDebug
	}
	o.log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var (
		cfg config.Config
		err error
	)
	if o.ConfigFile != "" {
		cfg, err = config.LoadFile(o.ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	if o.DataDir != "" {
		cfg.Users.DataDir = o.DataDir
	}

	o.registry = registry.New(o.log)
	o.manager, err = users.NewManager(cfg.Users, o.registry, o.log)
	return err
}

// openDB opens the database of the user selected with --user.
func (o *rootOptions) openDB(cmd *cobra.Command) (*sqlite.Database, error) {
	if o.User == "" {
		return nil, fmt.Errorf("--user is required")
	}
	return o.manager.Open(cmd.Context(), o.User)
}

func newMigrateCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Open a user's database and bring its schema up to date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDB(cmd)
			if err != nil {
				return err
			}

			version, err := sqlite.Version(cmd.Context(), db)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", db.Path(), version)
			return nil
		},
	}
}

func newAddCommand(opts *rootOptions) *cobra.Command {
	var start, end, provenance string

	cmd := &cobra.Command{
		Use:   "add <game-id> <game-name>",
		Short: "Record a play session, split at local day boundaries",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			startedAt, err := parseTime(start)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
			endedAt, err := parseTime(end)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}

			db, err := opts.openDB(cmd)
			if err != nil {
				return err
			}

			tracker := playtime.NewTracker(db, opts.log)
			if err := tracker.AddTime(cmd.Context(), args[0], args[1], startedAt, endedAt, provenance); err != nil {
				return err
			}

			total, err := tracker.RunningTotal(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "recorded %s for %s (total %s)\n",
				formatSeconds(endedAt.Sub(startedAt).Seconds()), args[0], formatSeconds(total))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "session start (RFC3339 or 2006-01-02T15:04:05 local)")
	cmd.Flags().StringVar(&end, "end", "", "session end (RFC3339 or 2006-01-02T15:04:05 local)")
	cmd.Flags().StringVar(&provenance, "provenance", "", "optional origin tag for the ledger rows")
	cmd.MarkFlagRequired("start")
	cmd.MarkFlagRequired("end")

	return cmd
}

func newCorrectCommand(opts *rootOptions) *cobra.Command {
	var seconds float64
	var provenance string

	cmd := &cobra.Command{
		Use:   "correct <game-id> <game-name>",
		Short: "Record a signed manual adjustment in the ledger",
		Long: `Record a signed manual adjustment in the ledger.

The adjustment is stamped with the current time and the provenance tag.
It does not change the running total, which covers tracked sessions only.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDB(cmd)
			if err != nil {
				return err
			}

			tracker := playtime.NewTracker(db, opts.log)
			if err := tracker.ApplyManualCorrection(cmd.Context(), args[0], args[1], seconds, provenance); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "recorded %+.0fs correction for %s\n", seconds, args[0])
			return nil
		},
	}

	cmd.Flags().Float64Var(&seconds, "seconds", 0, "adjustment in seconds, may be negative")
	cmd.Flags().StringVar(&provenance, "provenance", "manual-correction", "origin tag for the ledger row")
	cmd.MarkFlagRequired("seconds")

	return cmd
}

func newSessionsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions <game-id>",
		Short: "List the recorded ledger rows of a game, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDB(cmd)
			if err != nil {
				return err
			}

			sessions, err := playtime.NewTracker(db, opts.log).Sessions(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			for _, s := range sessions {
				tag := s.Provenance
				if tag == "" {
					tag = "-"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %10s  %s\n",
					s.StartedAt.Format(playtime.TimeFormat), formatSeconds(s.Duration), tag)
			}
			return nil
		},
	}
}

func newStatsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats [game-id]",
		Short: "Print overall statistics, or one game's statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDB(cmd)
			if err != nil {
				return err
			}
			stats := playtime.NewStats(db)

			if len(args) == 1 {
				gs, err := stats.ForGame(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				printGameStats(cmd, gs)
				return nil
			}

			overall, err := stats.Overall(cmd.Context())
			if err != nil {
				return err
			}
			for _, gs := range overall {
				printGameStats(cmd, gs)
			}
			return nil
		},
	}
}

func newDailyCommand(opts *rootOptions) *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "daily",
		Short: "Print per-day, per-game activity for a date range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			toDate := time.Now()
			fromDate := toDate.AddDate(0, 0, -7)

			var err error
			if from != "" {
				if fromDate, err = time.ParseInLocation(playtime.DateFormat, from, time.Local); err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
			}
			if to != "" {
				if toDate, err = time.ParseInLocation(playtime.DateFormat, to, time.Local); err != nil {
					return fmt.Errorf("invalid --to: %w", err)
				}
			}

			db, err := opts.openDB(cmd)
			if err != nil {
				return err
			}

			days, err := playtime.NewStats(db).Daily(cmd.Context(), fromDate, toDate)
			if err != nil {
				return err
			}

			for _, day := range days {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\n", day.Date.Format(playtime.DateFormat))
				for _, game := range day.Games {
					fmt.Fprintf(cmd.OutOrStdout(), "  %-40s %10s  (%d sessions)\n",
						game.Game.Name, formatSeconds(game.Seconds), len(game.Sessions))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "start date YYYY-MM-DD (default: 7 days ago)")
	cmd.Flags().StringVar(&to, "to", "", "end date YYYY-MM-DD (default: today)")

	return cmd
}

func newGamesCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List the game dictionary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := opts.openDB(cmd)
			if err != nil {
				return err
			}

			games, err := playtime.NewGames(db).All(cmd.Context())
			if err != nil {
				return err
			}

			for _, game := range games {
				fmt.Fprintf(cmd.OutOrStdout(), "%-20s %s\n", game.ID, game.Name)
			}
			return nil
		},
	}
}

func newUsersCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "users",
		Short: "List users with a database on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := opts.manager.List()
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
}

func printGameStats(cmd *cobra.Command, gs playtime.GameStats) {
	lastPlayed := "never"
	if !gs.LastPlayed.IsZero() {
		lastPlayed = gs.LastPlayed.Format(playtime.TimeFormat)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%-20s %-40s %10s  %4d sessions  last %s\n",
		gs.Game.ID, gs.Game.Name, formatSeconds(gs.TotalSeconds), gs.Sessions, lastPlayed)
}

// parseTime accepts RFC3339 or the database's local wall-clock layout.
func parseTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation(playtime.TimeFormat, s, time.Local)
}

func formatSeconds(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return d.String()
}
