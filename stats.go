/*
Copyright © 2025 Pawbag123 <pawbag123@proton.me>
*/

package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MatchRecord is the shape committed to the persistence collaborator when
// a started session is torn down: at-least-once delivery is acceptable,
// idempotency is not required.
type MatchRecord struct {
	SessionID string        `json:"session_id"`
	HostID    string        `json:"host_id"`
	Started   bool          `json:"started"`
	Roster    []Participant `json:"roster"`
	Score     map[Team]int  `json:"score"`
	WordsUsed []string      `json:"words_used"`
	EndedAt   time.Time     `json:"ended_at"`
}

// PlayerStats aggregates a player's lifetime numbers across matches.
type PlayerStats struct {
	Name          string `json:"name"`
	Matches       int    `json:"matches"`
	WordsGuessed  int    `json:"words_guessed"`
	WellDescribed int    `json:"well_described"`
}

// MatchRecorder is the boundary to historical match storage. Failures are
// logged by callers and never block in-memory session teardown.
type MatchRecorder interface {
	RecordMatchResult(ctx context.Context, record MatchRecord) error
	FetchPlayerStats(ctx context.Context, name string) (PlayerStats, error)
}

const statsSchema = `
CREATE TABLE IF NOT EXISTS matches (
	id BIGSERIAL PRIMARY KEY,
	session_id TEXT NOT NULL,
	host_id TEXT NOT NULL,
	score JSONB NOT NULL,
	roster JSONB NOT NULL,
	words_used JSONB NOT NULL,
	ended_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS player_stats (
	name TEXT PRIMARY KEY,
	matches BIGINT NOT NULL DEFAULT 0,
	words_guessed BIGINT NOT NULL DEFAULT 0,
	well_described BIGINT NOT NULL DEFAULT 0
);`

// postgresRecorder persists match results and per-player aggregates via a
// pgx connection pool.
type postgresRecorder struct {
	pool *pgxpool.Pool
}

func newPostgresRecorder(ctx context.Context, databaseURL string) (*postgresRecorder, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if _, err := pool.Exec(ctx, statsSchema); err != nil {
		pool.Close()
		return nil, err
	}
	return &postgresRecorder{pool: pool}, nil
}

func (r *postgresRecorder) Close() {
	r.pool.Close()
}

func (r *postgresRecorder) RecordMatchResult(ctx context.Context, record MatchRecord) error {
	score, err := json.Marshal(record.Score)
	if err != nil {
		return err
	}
	roster, err := json.Marshal(record.Roster)
	if err != nil {
		return err
	}
	words, err := json.Marshal(record.WordsUsed)
	if err != nil {
		return err
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO matches (session_id, host_id, score, roster, words_used, ended_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		record.SessionID, record.HostID, score, roster, words, record.EndedAt)
	if err != nil {
		return err
	}

	for _, p := range record.Roster {
		_, err = tx.Exec(ctx,
			`INSERT INTO player_stats (name, matches, words_guessed, well_described)
			 VALUES ($1, 1, $2, $3)
			 ON CONFLICT (name) DO UPDATE SET
				matches = player_stats.matches + 1,
				words_guessed = player_stats.words_guessed + EXCLUDED.words_guessed,
				well_described = player_stats.well_described + EXCLUDED.well_described`,
			p.Name, p.WordsGuessed, p.WellDescribed)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (r *postgresRecorder) FetchPlayerStats(ctx context.Context, name string) (PlayerStats, error) {
	stats := PlayerStats{Name: name}

	err := r.pool.QueryRow(ctx,
		`SELECT matches, words_guessed, well_described FROM player_stats WHERE name = $1`,
		name).Scan(&stats.Matches, &stats.WordsGuessed, &stats.WellDescribed)
	if errors.Is(err, pgx.ErrNoRows) {
		return PlayerStats{}, notFound("no stats recorded for player %q", name)
	}
	if err != nil {
		return PlayerStats{}, err
	}

	return stats, nil
}

// memoryRecorder keeps match history in memory. It backs the server when
// no --database-url is configured, and the tests.
type memoryRecorder struct {
	mu      sync.Mutex
	records []MatchRecord
	players map[string]*PlayerStats
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{players: make(map[string]*PlayerStats)}
}

func (r *memoryRecorder) RecordMatchResult(_ context.Context, record MatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, record)
	for _, p := range record.Roster {
		stats, ok := r.players[p.Name]
		if !ok {
			stats = &PlayerStats{Name: p.Name}
			r.players[p.Name] = stats
		}
		stats.Matches++
		stats.WordsGuessed += p.WordsGuessed
		stats.WellDescribed += p.WellDescribed
	}

	return nil
}

func (r *memoryRecorder) FetchPlayerStats(_ context.Context, name string) (PlayerStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.players[name]
	if !ok {
		return PlayerStats{}, notFound("no stats recorded for player %q", name)
	}
	return *stats, nil
}
