package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/splitfi/tranche/internal/tranche"
)

var _ tranche.EventSink = (*Store)(nil)

// WriteEvent appends one event to the journal.
// Uses ON CONFLICT(id) DO NOTHING for idempotency: the same event written
// twice is silently ignored. A different event reusing a (series, seq)
// slot still violates the UNIQUE constraint and fails.
func (s *Store) WriteEvent(ctx context.Context, ev tranche.Event) error {
	amountsJSON, err := json.Marshal(ev.Amounts)
	if err != nil {
		return fmt.Errorf("write event: marshal amounts: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(id, series, seq, kind, caller, sender, recipient, amounts, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.ID,
		ev.Series,
		ev.Seq,
		string(ev.Kind),
		ev.Caller,
		ev.From,
		ev.To,
		string(amountsJSON),
		ev.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Append implements tranche.EventSink, so an open store can be handed to
// the engine directly as its journal.
func (s *Store) Append(ev tranche.Event) error {
	return s.WriteEvent(context.Background(), ev)
}

// ReadTrace returns every event for a series in deterministic order:
// ORDER BY seq ASC, id ASC COLLATE BINARY. Returns an empty slice, not
// nil, when the series has no events.
func (s *Store) ReadTrace(ctx context.Context, seriesID string) ([]tranche.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, series, seq, kind, caller, sender, recipient, amounts, timestamp
		FROM events
		WHERE series = ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
	`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []tranche.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// ReadEvent retrieves a single event by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadEvent(ctx context.Context, id string) (tranche.Event, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, series, seq, kind, caller, sender, recipient, amounts, timestamp
		FROM events
		WHERE id = ?
	`, id)
	return scanEventRow(row)
}

// Series returns the distinct series IDs present in the journal, in
// lexical order.
func (s *Store) Series(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT series FROM events ORDER BY series COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series: %w", err)
	}
	return ids, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanEvent(rows *sql.Rows) (tranche.Event, error) {
	return scanEventFrom(rows)
}

func scanEventRow(row *sql.Row) (tranche.Event, error) {
	return scanEventFrom(row)
}

func scanEventFrom(src scannable) (tranche.Event, error) {
	var (
		ev          tranche.Event
		kind        string
		amountsJSON string
	)
	if err := src.Scan(
		&ev.ID, &ev.Series, &ev.Seq, &kind,
		&ev.Caller, &ev.From, &ev.To,
		&amountsJSON, &ev.Timestamp,
	); err != nil {
		return tranche.Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Kind = tranche.EventKind(kind)
	if err := json.Unmarshal([]byte(amountsJSON), &ev.Amounts); err != nil {
		return tranche.Event{}, fmt.Errorf("scan event: amounts: %w", err)
	}
	return ev, nil
}
