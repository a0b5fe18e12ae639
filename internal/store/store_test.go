package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitfi/tranche/internal/tranche"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ev(id string, seq int64, kind tranche.EventKind) tranche.Event {
	return tranche.Event{
		ID:     id,
		Seq:    seq,
		Kind:   kind,
		Series: "series-1",
		Caller: "alice",
		From:   "alice",
		To:     "alice",
		Amounts: map[string]string{
			"underlying": "100000000000000000000",
			"issued":     "99000000000000000000",
		},
		Timestamp: 1_704_067_200,
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := openTestStore(t)

	var mode string
	require.NoError(t, s.DB().QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)

	var version int
	require.NoError(t, s.DB().QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)
}

func TestWriteEvent_RoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	want := ev("ev-000001", 1, tranche.EventIssue)
	require.NoError(t, s.WriteEvent(ctx, want))

	got, err := s.ReadEvent(ctx, "ev-000001")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWriteEvent_Idempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	e := ev("ev-000001", 1, tranche.EventIssue)
	require.NoError(t, s.WriteEvent(ctx, e))
	require.NoError(t, s.WriteEvent(ctx, e))

	trace, err := s.ReadTrace(ctx, "series-1")
	require.NoError(t, err)
	assert.Len(t, trace, 1)
}

func TestWriteEvent_SeqSlotConflict(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteEvent(ctx, ev("ev-000001", 1, tranche.EventIssue)))
	// Different ID claiming the same (series, seq) slot is a corruption
	// signal, not an idempotent retry.
	err := s.WriteEvent(ctx, ev("ev-000099", 1, tranche.EventCollect))
	assert.Error(t, err)
}

func TestReadTrace_Ordered(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Insert out of order; the journal reads back by seq.
	require.NoError(t, s.WriteEvent(ctx, ev("ev-000003", 3, tranche.EventRedeem)))
	require.NoError(t, s.WriteEvent(ctx, ev("ev-000001", 1, tranche.EventIssue)))
	require.NoError(t, s.WriteEvent(ctx, ev("ev-000002", 2, tranche.EventCollect)))

	trace, err := s.ReadTrace(ctx, "series-1")
	require.NoError(t, err)
	require.Len(t, trace, 3)
	assert.Equal(t, tranche.EventIssue, trace[0].Kind)
	assert.Equal(t, tranche.EventCollect, trace[1].Kind)
	assert.Equal(t, tranche.EventRedeem, trace[2].Kind)
}

func TestReadTrace_EmptyNotNil(t *testing.T) {
	s := openTestStore(t)
	trace, err := s.ReadTrace(context.Background(), "absent")
	require.NoError(t, err)
	assert.NotNil(t, trace)
	assert.Empty(t, trace)
}

func TestReadEvent_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.ReadEvent(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestSeries_Distinct(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := ev("ev-a", 1, tranche.EventIssue)
	a.Series = "series-b"
	b := ev("ev-b", 1, tranche.EventIssue)
	b.Series = "series-a"
	c := ev("ev-c", 2, tranche.EventCollect)
	c.Series = "series-a"
	for _, e := range []tranche.Event{a, b, c} {
		require.NoError(t, s.WriteEvent(ctx, e))
	}

	ids, err := s.Series(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"series-a", "series-b"}, ids)
}

func TestAppend_ImplementsSink(t *testing.T) {
	s := openTestStore(t)
	var sink tranche.EventSink = s
	require.NoError(t, sink.Append(ev("ev-000001", 1, tranche.EventIssue)))

	trace, err := s.ReadTrace(context.Background(), "series-1")
	require.NoError(t, err)
	assert.Len(t, trace, 1)
}

func TestOpen_Reopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "journal.db")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.WriteEvent(context.Background(), ev("ev-000001", 1, tranche.EventIssue)))
	require.NoError(t, s.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()
	trace, err := s2.ReadTrace(context.Background(), "series-1")
	require.NoError(t, err)
	assert.Len(t, trace, 1)
}
