package tranche

import (
	"math/big"

	"github.com/google/uuid"
)

// EventKind names an engine operation in the journal.
type EventKind string

const (
	EventIssue            EventKind = "issue"
	EventCollect          EventKind = "collect"
	EventRedeem           EventKind = "redeem"
	EventWithdraw         EventKind = "withdraw"
	EventRedeemWithClaims EventKind = "redeem_with_claims"
	EventYieldSettled     EventKind = "yield_settled"
	EventFeesClaimed      EventKind = "fees_claimed"
	EventPaused           EventKind = "paused"
	EventUnpaused         EventKind = "unpaused"
)

// Event is one journaled engine operation. Amounts are decimal strings so
// the event is loss-free across JSON and SQLite regardless of magnitude.
type Event struct {
	ID        string            `json:"id"`
	Seq       int64             `json:"seq"`
	Kind      EventKind         `json:"kind"`
	Series    string            `json:"series"`
	Caller    string            `json:"caller,omitempty"`
	From      string            `json:"from,omitempty"`
	To        string            `json:"to,omitempty"`
	Amounts   map[string]string `json:"amounts,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

// EventSink receives every journaled event. The SQLite store implements
// this for durability; the harness uses an in-memory sink for traces.
type EventSink interface {
	Append(ev Event) error
}

// NopSink discards events.
type NopSink struct{}

// Append implements EventSink.
func (NopSink) Append(Event) error { return nil }

// MemorySink buffers events in order. Used by tests and the harness.
type MemorySink struct {
	Events []Event
}

// Append implements EventSink.
func (m *MemorySink) Append(ev Event) error {
	m.Events = append(m.Events, ev)
	return nil
}

// EventIDGenerator produces journal event IDs. Production uses random
// UUIDs; deterministic tests substitute a fixed generator.
type EventIDGenerator interface {
	Generate() string
}

// UUIDGenerator is the production EventIDGenerator.
type UUIDGenerator struct{}

// Generate returns a random UUID string.
func (UUIDGenerator) Generate() string { return uuid.NewString() }

// amounts builds the event amount map, skipping nil and zero-keyed values.
func amounts(kv map[string]*big.Int) map[string]string {
	out := make(map[string]string, len(kv))
	for k, v := range kv {
		if v == nil {
			continue
		}
		out[k] = v.String()
	}
	return out
}
