package models

import (
	"time"
)

// Follow : Follow Model
//
// Current follow set per account, replaced wholesale by the contact-list
// handler.
type Follow struct {
	ID            int64     `bun:",pk,autoincrement"`
	AccountPubkey string    `bun:",notnull"`
	Account       *Account  `bun:"rel:belongs-to,join:account_pubkey=pubkey"`
	Pubkey        string    `bun:",notnull"`
	RelayUri      string    `bun:",nullzero"`
	Petname       string    `bun:",nullzero"`
	CreatedAt     time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
