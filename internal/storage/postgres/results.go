package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/guessword/internal/history"
)

// ResultRepository persists finished-game results. It implements history.Store.
type ResultRepository struct {
	db *pgxpool.Pool
}

// NewResultRepository creates a ResultRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewResultRepository(db *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{db: db}
}

// SaveResult inserts one finished game. Saving the same session twice keeps
// the first row.
//
// Postcondition: The result is stored, or a non-nil error is returned.
func (r *ResultRepository) SaveResult(ctx context.Context, res history.Result) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO game_results
		     (session_id, puzzle, outcome, words_found, words_total, started_at, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (session_id) DO NOTHING`,
		res.SessionID, res.Puzzle, string(res.Outcome),
		res.WordsFound, res.WordsTotal, res.StartedAt, res.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting game result %s: %w", res.SessionID, err)
	}
	return nil
}

// Recent returns up to limit results, most recently ended first.
//
// Precondition: limit > 0.
func (r *ResultRepository) Recent(ctx context.Context, limit int) ([]history.Result, error) {
	rows, err := r.db.Query(ctx,
		`SELECT session_id::text, puzzle, outcome, words_found, words_total, started_at, ended_at
		 FROM game_results
		 ORDER BY ended_at DESC, id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying recent results: %w", err)
	}

	results, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.Result, error) {
		var (
			res     history.Result
			outcome string
		)
		err := row.Scan(&res.SessionID, &res.Puzzle, &outcome,
			&res.WordsFound, &res.WordsTotal, &res.StartedAt, &res.EndedAt)
		res.Outcome = history.Outcome(outcome)
		return res, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning recent results: %w", err)
	}
	return results, nil
}

// Summary aggregates results per outcome.
type Summary struct {
	Games  int
	Won    int
	TimeUp int
	Quit   int
}

// Summarize counts stored games by outcome.
func (r *ResultRepository) Summarize(ctx context.Context) (Summary, error) {
	var s Summary
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE outcome = 'won'),
		        COUNT(*) FILTER (WHERE outcome = 'time_up'),
		        COUNT(*) FILTER (WHERE outcome = 'quit')
		 FROM game_results`,
	).Scan(&s.Games, &s.Won, &s.TimeUp, &s.Quit)
	if err != nil {
		return Summary{}, fmt.Errorf("summarizing results: %w", err)
	}
	return s, nil
}
