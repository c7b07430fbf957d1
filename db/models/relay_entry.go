package models

import (
	"time"
)

// RelayEntry : Relay Entry Model
//
// Current relay set per (list owner, list type). Pubkey is the author of
// the relay-list event; AccountPubkey scopes the row to the account whose
// subscription delivered it and is NULL for lists cached from the shared
// account-independent stream (followed contacts' NIP-65 lists). The
// relay-list handler replaces these rows wholesale on every update, so this
// table only ever reflects the present state. Freshness tracking lives in
// processed_events, never here.
type RelayEntry struct {
	ID            int64     `bun:",pk,autoincrement"`
	Pubkey        string    `bun:",notnull"`
	AccountPubkey string    `bun:",nullzero"`
	Account       *Account  `bun:"rel:belongs-to,join:account_pubkey=pubkey"`
	Uri           string    `bun:",notnull"`
	Type          string    `bun:",notnull"`
	Marker        string    `bun:",nullzero"`
	CreatedAt     time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
