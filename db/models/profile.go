package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

// Profile : Cached Profile Metadata Model
//
// Latest kind-0 content seen for a pubkey, cached per account. A row with an
// empty AccountPubkey belongs to the shared, account-independent cache.
type Profile struct {
	ID             int64        `bun:",pk,autoincrement"`
	Pubkey         string       `bun:",notnull"`
	AccountPubkey  string       `bun:",nullzero"`
	Name           string       `bun:",nullzero"`
	DisplayName    string       `bun:",nullzero"`
	About          string       `bun:",nullzero"`
	Picture        string       `bun:",nullzero"`
	Nip05          string       `bun:",nullzero"`
	EventCreatedAt int64        `bun:",notnull"`
	CreatedAt      time.Time    `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt      bun.NullTime `bun:",nullzero"`
}

func (p *Profile) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		p.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Profile)(nil)
