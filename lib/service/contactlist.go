package service

import (
	"context"
	"database/sql"

	"github.com/nbd-wtf/go-nostr"

	"github.com/getHush/hushhub.go/db/models"
)

// HandleContactListEvent replaces the account's follow set with the "p"
// tags of the contact-list event.
func (svc *HushhubService) HandleContactListEvent(ctx context.Context, ev *nostr.Event, account *models.Account) error {
	if account == nil {
		svc.Logger.Infof("Contact list event %s arrived without an account context, dropping", ev.ID)
		return nil
	}

	follows := make([]models.Follow, 0, len(ev.Tags))
	for _, tag := range ev.Tags {
		if len(tag) < 2 || tag[0] != "p" || len(tag[1]) != 64 {
			continue
		}
		follow := models.Follow{
			AccountPubkey: account.Pubkey,
			Pubkey:        tag[1],
		}
		if len(tag) >= 3 {
			follow.RelayUri = tag[2]
		}
		if len(tag) >= 4 {
			follow.Petname = tag[3]
		}
		follows = append(follows, follow)
	}

	tx, err := svc.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	_, err = tx.NewDelete().
		Model((*models.Follow)(nil)).
		Where("account_pubkey = ?", account.Pubkey).
		Exec(ctx)
	if err != nil {
		tx.Rollback()
		return err
	}

	if len(follows) > 0 {
		if _, err = tx.NewInsert().Model(&follows).Exec(ctx); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	svc.Logger.Infof("Stored %d follows for account %s from event %s", len(follows), account.Pubkey, ev.ID)
	return nil
}

// FollowedPubkeys returns the union of all accounts' follow sets. It feeds
// the global metadata subscription at startup.
func (svc *HushhubService) FollowedPubkeys(ctx context.Context) ([]string, error) {
	var pubkeys []string
	err := svc.DB.NewSelect().
		Model((*models.Follow)(nil)).
		ColumnExpr("DISTINCT pubkey").
		Scan(ctx, &pubkeys)
	if err != nil {
		return nil, err
	}
	return pubkeys, nil
}
