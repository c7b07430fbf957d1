package models

import (
	"time"
)

// GroupMessage : Decoded Group Message Model
//
// Application message obtained by handing a kind-445 event to the MLS
// engine. EventID is the wire event that carried the ciphertext.
type GroupMessage struct {
	ID             int64     `bun:",pk,autoincrement"`
	AccountPubkey  string    `bun:",notnull"`
	Account        *Account  `bun:"rel:belongs-to,join:account_pubkey=pubkey"`
	GroupID        string    `bun:",notnull"`
	EventID        string    `bun:",notnull"`
	SenderPubkey   string    `bun:",nullzero"`
	Kind           int64     `bun:",notnull"`
	Content        string    `bun:",nullzero"`
	EventCreatedAt int64     `bun:",notnull"`
	CreatedAt      time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
