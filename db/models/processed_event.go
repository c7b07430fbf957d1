package models

import (
	"time"
)

// ProcessedEvent : Processed Event Ledger Model
//
// Append-only record of every event handled per account. Rows are never
// updated; they are only deleted together with the owning account.
// EventCreatedAt carries the event's own timestamp (unix seconds), not the
// processing wall-clock time, so freshness queries stay monotonic even when
// derived tables (relay_entries, follows, ...) are mutated.
//
// AccountPubkey is empty/NULL for events processed on account-independent
// subscriptions. EventKind is a pointer because rows written before kind
// tracking existed have no kind; such rows still block reprocessing but are
// excluded from kind-filtered freshness queries.
type ProcessedEvent struct {
	ID             int64     `bun:",pk,autoincrement"`
	EventID        string    `bun:",notnull"`
	AccountPubkey  string    `bun:",nullzero"`
	Account        *Account  `bun:"rel:belongs-to,join:account_pubkey=pubkey"`
	ProcessedAt    time.Time `bun:",nullzero,notnull,default:current_timestamp"`
	EventCreatedAt int64     `bun:",notnull"`
	EventKind      *int64    `bun:",nullzero"`
}
