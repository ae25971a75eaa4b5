package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/freeeve/civ-balance/api/internal/logger"
	"github.com/freeeve/civ-balance/api/internal/model"
	"github.com/freeeve/civ-balance/api/internal/repository/postgres"
	"github.com/freeeve/civ-balance/api/pkg/balance"
)

// runOptions are the flags of the run command.
type runOptions struct {
	profile  string
	spread   float64
	players  int
	matches  int
	kFactor  float64
	mode     string
	seed     int64
	runs     int
	workers  int
	every    int
	progress bool
	archive  bool
	dbURL    string
}

// runOutcome is one finished simulation.
type runOutcome struct {
	Run    *model.Run `json:"run"`
	Report string     `json:"report"`
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one or more simulations and print per-civ results",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			opts.profile, _ = cmd.Flags().GetString("profile")

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			outcomes, err := runSimulations(ctx, opts)
			if err != nil && len(outcomes) == 0 {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, outcomes)
			}
			printSummary(cmd.OutOrStdout(), outcomes)
			return err
		},
	}
	cmd.Flags().Float64Var(&opts.spread, "spread", 0, "Strength spread (0 = profile default)")
	cmd.Flags().IntVarP(&opts.players, "players", "p", 0, "Population size (0 = profile default)")
	cmd.Flags().IntVarP(&opts.matches, "matches", "m", 0, "Matches per run (0 = profile default)")
	cmd.Flags().Float64VarP(&opts.kFactor, "k-factor", "k", 0, "Elo K-factor (0 = profile default)")
	cmd.Flags().StringVar(&opts.mode, "mode", string(balance.ModeElo), "Matchmaking mode: elo or random")
	cmd.Flags().Int64Var(&opts.seed, "seed", 0, "Base seed (0 = random); run i uses seed+i")
	cmd.Flags().IntVarP(&opts.runs, "runs", "n", 1, "Number of independent runs")
	cmd.Flags().IntVar(&opts.workers, "workers", 1, "Runs executed in parallel")
	cmd.Flags().IntVar(&opts.every, "every", 0, "Matches between progress reports (0 = 10% of the run)")
	cmd.Flags().BoolVar(&opts.progress, "progress", false, "Log progress while running")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "Save results to the Postgres run archive")
	cmd.Flags().StringVar(&opts.dbURL, "db", "", "Database URL (or use DATABASE_URL env)")
	return cmd
}

// runSimulations plays opts.runs independent simulations over a shared
// registry, opts.workers at a time. Runs that fail are logged and left out of
// the result; the first failure is returned alongside the successes.
func runSimulations(ctx context.Context, opts runOptions) ([]runOutcome, error) {
	reg, err := balance.LoadRegistry(opts.profile, opts.spread)
	if err != nil {
		return nil, err
	}

	var archive *postgres.RunRepo
	if opts.archive {
		dbURL := opts.dbURL
		if dbURL == "" {
			dbURL = os.Getenv("DATABASE_URL")
		}
		if dbURL == "" {
			return nil, errors.New("--archive needs --db or DATABASE_URL")
		}
		db, err := postgres.Connect(dbURL)
		if err != nil {
			return nil, fmt.Errorf("connect archive: %w", err)
		}
		defer db.Close()
		archive = postgres.NewRunRepo(db)
	}

	runs := max(opts.runs, 1)
	workers := min(max(opts.workers, 1), runs)
	results := make([]*runOutcome, runs)

	var mu sync.Mutex
	var firstErr error
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)

	for i := 0; i < runs; i++ {
		wg.Add(1)
		sem <- struct{}{}

		go func(idx int) {
			defer wg.Done()
			defer func() { <-sem }()

			seed := opts.seed
			if seed != 0 {
				seed += int64(idx)
			}
			runCtx := logger.WithRunID(ctx, fmt.Sprintf("run-%d", idx+1))
			outcome, err := runOne(runCtx, reg, opts, seed)
			if err == nil && archive != nil {
				err = archive.Save(context.WithoutCancel(runCtx), outcome.Run)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.FromContext(runCtx).Error().Err(err).Msg("Run failed")
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			results[idx] = outcome
		}(i)
	}
	wg.Wait()

	var out []runOutcome
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, firstErr
}

func runOne(ctx context.Context, reg *balance.Registry, opts runOptions, seed int64) (*runOutcome, error) {
	cfg := balance.Config{
		PlayerCount: opts.players,
		MatchCount:  opts.matches,
		KFactor:     opts.kFactor,
		Mode:        balance.ParseMode(opts.mode),
		Seed:        seed,
	}
	// Normalize early so the progress interval is derived from the real match count.
	cfg = cfg.Normalize(reg.Defaults())
	cfg.ProgressEvery = opts.every
	if cfg.ProgressEvery <= 0 {
		cfg.ProgressEvery = max(cfg.MatchCount/10, 1)
	}

	sim := balance.New(reg, cfg)
	l := logger.FromContext(ctx)
	started := time.Now()

	var hook balance.ProgressFunc
	if opts.progress {
		hook = func(p balance.Progress) error {
			l.Info().
				Int("matches", p.MatchesCompleted).
				Int("total", p.TotalMatches).
				Float64("meanRating", model.RoundTo(p.MeanRating, 1)).
				Msgf("%.0f%% complete", p.Ratio()*100)
			return nil
		}
	}
	if err := sim.Run(ctx, hook); err != nil {
		return nil, err
	}

	final := sim.Progress()
	report := sim.Insights()
	cfg = sim.Config()
	run := &model.Run{
		ID:               logger.NewID(),
		Profile:          sim.Registry().Profile(),
		Mode:             string(cfg.Mode),
		Status:           model.RunCompleted,
		PlayerCount:      cfg.PlayerCount,
		MatchCount:       cfg.MatchCount,
		MatchesCompleted: final.MatchesCompleted,
		KFactor:          cfg.KFactor,
		Spread:           sim.Registry().Spread(),
		Seed:             cfg.Seed,
		MeanRating:       final.MeanRating,
		AverageStrength:  final.AverageStrength,
		Insights:         &report,
		Civilizations:    model.CivResultsFrom(final),
		StartedAt:        started.UTC(),
		FinishedAt:       time.Now().UTC(),
	}
	log.Debug().Str("runId", run.ID).Dur("elapsed", time.Since(started)).Msg("Run completed")
	return &runOutcome{Run: run, Report: report.Message()}, nil
}

// civTotals aggregates one civ over several runs.
type civTotals struct {
	name     string
	strength float64
	expected float64
	wins     int
	games    int
}

func printSummary(w io.Writer, outcomes []runOutcome) {
	if len(outcomes) == 0 {
		fmt.Fprintln(w, "No runs completed.")
		return
	}
	first := outcomes[0].Run
	matches := 0
	byCiv := make(map[string]*civTotals)
	for _, o := range outcomes {
		matches += o.Run.MatchesCompleted
		for _, c := range o.Run.Civilizations {
			t, ok := byCiv[c.Name]
			if !ok {
				t = &civTotals{name: c.Name, strength: c.Strength, expected: c.ExpectedRandomWinRate}
				byCiv[c.Name] = t
			}
			t.wins += c.Wins
			t.games += c.Games
		}
	}

	rows := make([]*civTotals, 0, len(byCiv))
	for _, t := range byCiv {
		rows = append(rows, t)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].strength != rows[j].strength {
			return rows[i].strength > rows[j].strength
		}
		return rows[i].name < rows[j].name
	})

	fmt.Fprintf(w, "\nResults (%d runs, %s matches, %s mode, %s players, K=%g, spread %.2f, profile %s):\n",
		len(outcomes), balance.FormatCount(matches), first.Mode, balance.FormatCount(first.PlayerCount),
		first.KFactor, first.Spread, first.Profile)
	fmt.Fprintf(w, "  %-18s %8s %8s %8s %8s %8s\n", "CIV", "STRENGTH", "EXPECTED", "OBSERVED", "DIFF", "GAMES")
	for _, t := range rows {
		if t.games == 0 {
			fmt.Fprintf(w, "  %-18s %8.3f %8.4f %8s %8s %8d\n", t.name, t.strength, t.expected, "no data", "-", 0)
			continue
		}
		rate := float64(t.wins) / float64(t.games)
		fmt.Fprintf(w, "  %-18s %8.3f %8.4f %8.4f %+8.4f %8d\n", t.name, t.strength, t.expected, rate, rate-t.expected, t.games)
	}

	fmt.Fprintln(w)
	for i, o := range outcomes {
		fmt.Fprintf(w, "Run %d (mean rating %.1f): %s\n", i+1, o.Run.MeanRating, o.Report)
		if o.Run.Insights == nil {
			continue
		}
		for _, e := range o.Run.Insights.Overperformers {
			fmt.Fprintf(w, "  + %s\n", e.Summary())
		}
		for _, e := range o.Run.Insights.Underperformers {
			fmt.Fprintf(w, "  - %s\n", e.Summary())
		}
	}
}
