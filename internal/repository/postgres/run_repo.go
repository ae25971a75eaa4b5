package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/freeeve/civ-balance/api/internal/model"
	"github.com/freeeve/civ-balance/api/pkg/balance"
)

// RunRepo archives finished simulation runs.
type RunRepo struct {
	db *sql.DB
}

// NewRunRepo creates a RunRepo.
func NewRunRepo(db *sql.DB) *RunRepo {
	return &RunRepo{db: db}
}

// Save inserts a run, replacing any earlier row with the same ID.
func (r *RunRepo) Save(ctx context.Context, run *model.Run) error {
	insights, err := json.Marshal(run.Insights)
	if err != nil {
		return fmt.Errorf("marshal insights: %w", err)
	}
	civs, err := json.Marshal(run.Civilizations)
	if err != nil {
		return fmt.Errorf("marshal civilizations: %w", err)
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO runs (id, profile, mode, status, error, player_count, match_count, matches_completed,
		                   k_factor, spread, seed, mean_rating, average_strength, insights, civilizations,
		                   started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status, error = EXCLUDED.error,
		   matches_completed = EXCLUDED.matches_completed, mean_rating = EXCLUDED.mean_rating,
		   insights = EXCLUDED.insights, civilizations = EXCLUDED.civilizations,
		   finished_at = EXCLUDED.finished_at`,
		run.ID, run.Profile, run.Mode, run.Status, run.Error, run.PlayerCount, run.MatchCount, run.MatchesCompleted,
		run.KFactor, run.Spread, run.Seed, run.MeanRating, run.AverageStrength, string(insights), string(civs),
		run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// FindByID returns a run with its per-civ results, or nil when absent.
func (r *RunRepo) FindByID(ctx context.Context, id string) (*model.Run, error) {
	var run model.Run
	var insights, civs []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, profile, mode, status, error, player_count, match_count, matches_completed,
		        k_factor, spread, seed, mean_rating, average_strength, insights, civilizations,
		        started_at, finished_at
		 FROM runs WHERE id = $1`, id,
	).Scan(&run.ID, &run.Profile, &run.Mode, &run.Status, &run.Error, &run.PlayerCount, &run.MatchCount,
		&run.MatchesCompleted, &run.KFactor, &run.Spread, &run.Seed, &run.MeanRating, &run.AverageStrength,
		&insights, &civs, &run.StartedAt, &run.FinishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find run: %w", err)
	}
	if err := decodeInsights(insights, &run); err != nil {
		return nil, err
	}
	if len(civs) > 0 {
		if err := json.Unmarshal(civs, &run.Civilizations); err != nil {
			return nil, fmt.Errorf("decode civilizations: %w", err)
		}
	}
	return &run, nil
}

// ListRecent returns the most recently finished runs without per-civ detail.
func (r *RunRepo) ListRecent(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, profile, mode, status, error, player_count, match_count, matches_completed,
		        k_factor, spread, seed, mean_rating, average_strength, insights, started_at, finished_at
		 FROM runs ORDER BY finished_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		var insights []byte
		if err := rows.Scan(&run.ID, &run.Profile, &run.Mode, &run.Status, &run.Error, &run.PlayerCount,
			&run.MatchCount, &run.MatchesCompleted, &run.KFactor, &run.Spread, &run.Seed, &run.MeanRating,
			&run.AverageStrength, &insights, &run.StartedAt, &run.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := decodeInsights(insights, &run); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func decodeInsights(data []byte, run *model.Run) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	var report balance.InsightReport
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("decode insights: %w", err)
	}
	run.Insights = &report
	return nil
}
