package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Sternrassler/ladder-ingest/pkg/league"
)

// Run identifies one ingestion run. Every row it writes carries the run ID.
type Run struct {
	ID        uuid.UUID
	StartedAt time.Time
}

// NewRun starts a run with a random ID.
func NewRun(now time.Time) Run {
	return Run{ID: uuid.New(), StartedAt: now.UTC()}
}

// Entity is a row type built from an API record.
type Entity interface {
	FromRecord(rec league.Record) error
	Insert(ctx context.Context, tx *sql.Tx, run Run) error
}

// MiniSeries is a promotion series in progress.
type MiniSeries struct {
	ID       int64
	Target   int
	Wins     int
	Losses   int
	Progress string
}

// FromRecord reads the series fields.
func (m *MiniSeries) FromRecord(rec league.Record) error {
	var err error
	if m.Target, err = rec.Int("target"); err != nil {
		return err
	}
	if m.Wins, err = rec.Int("wins"); err != nil {
		return err
	}
	if m.Losses, err = rec.Int("losses"); err != nil {
		return err
	}
	if m.Progress, err = rec.String("progress"); err != nil {
		return err
	}
	if len(m.Progress) > 5 {
		return fmt.Errorf("mini series progress %q longer than 5", m.Progress)
	}
	return nil
}

// Insert writes the series and sets its ID.
func (m *MiniSeries) Insert(ctx context.Context, tx *sql.Tx, _ Run) error {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO mini_series (target, wins, losses, progress)
		VALUES (?, ?, ?, ?)
		RETURNING id`,
		m.Target, m.Wins, m.Losses, m.Progress,
	).Scan(&m.ID)
	if err != nil {
		return fmt.Errorf("insert mini series: %w", err)
	}
	storeRowsInserted.WithLabelValues("mini_series").Inc()
	return nil
}

// Player is one ladder entry.
type Player struct {
	Server       league.Server
	Queue        league.Queue
	Tier         league.Tier
	Division     league.Division
	SummonerID   string
	SummonerName string
	LeaguePoints int
	Wins         int
	Losses       int
	Veteran      bool
	Inactive     bool
	FreshBlood   bool
	HotStreak    bool
	MiniSeries   *MiniSeries
}

// FromRecord reads a league entry as returned by the entries endpoint.
// The server is not part of the API payload; the client adds it under
// the "server" key.
//
// Enum fields must hold known codes. An unknown code fails the record.
func (p *Player) FromRecord(rec league.Record) error {
	codes := make(map[string]string, 4)
	for _, key := range []string{"server", "queueType", "tier", "rank"} {
		v, err := rec.String(key)
		if err != nil {
			return err
		}
		codes[key] = v
	}

	var err error
	if p.Server, err = league.ParseServer(codes["server"]); err != nil {
		return err
	}
	if p.Queue, err = league.ParseQueue(codes["queueType"]); err != nil {
		return err
	}
	if p.Tier, err = league.ParseTier(codes["tier"]); err != nil {
		return err
	}
	if p.Division, err = league.ParseDivision(codes["rank"]); err != nil {
		return err
	}

	if p.SummonerID, err = rec.String("summonerId"); err != nil {
		return err
	}
	// Names are optional in newer payloads.
	if _, ok := rec["summonerName"]; ok {
		if p.SummonerName, err = rec.String("summonerName"); err != nil {
			return err
		}
	}
	if p.LeaguePoints, err = rec.Int("leaguePoints"); err != nil {
		return err
	}
	if p.Wins, err = rec.Int("wins"); err != nil {
		return err
	}
	if p.Losses, err = rec.Int("losses"); err != nil {
		return err
	}

	flags := []struct {
		key string
		dst *bool
	}{
		{"veteran", &p.Veteran},
		{"inactive", &p.Inactive},
		{"freshBlood", &p.FreshBlood},
		{"hotStreak", &p.HotStreak},
	}
	for _, f := range flags {
		if *f.dst, err = rec.Bool(f.key); err != nil {
			return err
		}
	}

	series, ok, err := rec.Map("miniSeries")
	if err != nil {
		return err
	}
	p.MiniSeries = nil
	if ok {
		p.MiniSeries = &MiniSeries{}
		if err := p.MiniSeries.FromRecord(series); err != nil {
			return fmt.Errorf("miniSeries: %w", err)
		}
	}
	return nil
}

// Insert writes the player and its mini series, if any.
func (p *Player) Insert(ctx context.Context, tx *sql.Tx, run Run) error {
	var seriesID sql.NullInt64
	if p.MiniSeries != nil {
		if err := p.MiniSeries.Insert(ctx, tx, run); err != nil {
			return err
		}
		seriesID = sql.NullInt64{Int64: p.MiniSeries.ID, Valid: true}
	}

	var name sql.NullString
	if p.SummonerName != "" {
		name = sql.NullString{String: p.SummonerName, Valid: true}
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO players (
			run_id, server, ranked_queue, tier, division,
			summoner_id, summoner_name, league_points, wins, losses,
			is_veteran, is_inactive, is_fresh_blood, is_hot_streak,
			mini_series_id, fetched_at
		) VALUES (CAST(? AS UUID), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID.String(), string(p.Server), string(p.Queue), string(p.Tier), string(p.Division),
		p.SummonerID, name, p.LeaguePoints, p.Wins, p.Losses,
		p.Veteran, p.Inactive, p.FreshBlood, p.HotStreak,
		seriesID, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert player %s: %w", p.SummonerID, err)
	}
	storeRowsInserted.WithLabelValues("players").Inc()
	return nil
}
