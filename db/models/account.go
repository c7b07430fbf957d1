package models

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"github.com/getHush/hushhub.go/common"
)

// Account : Account Model
//
// One row per logged-in identity. The pubkey doubles as the account
// identifier everywhere else in the system.
type Account struct {
	Pubkey              string       `bun:",pk"`
	SecretKey           string       `bun:",notnull"`
	KeyPackagePublished bool         `bun:",default:false"`
	RelayListsPublished bool         `bun:",default:false"`
	CreatedAt           time.Time    `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt           bun.NullTime `bun:",nullzero"`
	LastSyncedAt        bun.NullTime `bun:",nullzero"`
}

func (a *Account) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	switch query.(type) {
	case *bun.UpdateQuery:
		a.UpdatedAt = bun.NullTime{Time: time.Now()}
	}
	return nil
}

var _ bun.BeforeAppendModelHook = (*Account)(nil)

// Fingerprint returns the subscription fingerprint for this account.
func (a *Account) Fingerprint() string {
	return common.Fingerprint(a.Pubkey)
}
