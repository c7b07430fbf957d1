package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Notification : Account Notification Model
//
// User-visible, non-fatal notices scoped to one account: decoded messages
// and persistent processing failures (e.g. decryption errors). Transient
// relay/network trouble never lands here.
type Notification struct {
	ID             int64        `bun:",pk,autoincrement"`
	AccountPubkey  string       `bun:",notnull"`
	Account        *Account     `bun:"rel:belongs-to,join:account_pubkey=pubkey"`
	Level          string       `bun:",notnull"`
	EventKind      int64        `bun:",nullzero"`
	Message        string       `bun:",notnull"`
	GroupMessageID int64        `bun:",nullzero"`
	CreatedAt      time.Time    `bun:",nullzero,notnull,default:current_timestamp"`
	SeenAt         bun.NullTime `bun:",nullzero"`
}
