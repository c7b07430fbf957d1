package service

import (
	"context"
	"database/sql"

	"github.com/nbd-wtf/go-nostr"

	"github.com/getHush/hushhub.go/common"
	"github.com/getHush/hushhub.go/db/models"
)

// HandleRelayListEvent replaces the author's current relay set of the given
// type (nip65, inbox or key_package). With an account the rows are scoped to
// it; without one (the shared stream watching followed contacts) they land
// in the account-independent cache, like profiles do. The wholesale
// delete-then-reinsert is fine here: freshness is tracked in the
// processed-event ledger, never in this table.
func (svc *HushhubService) HandleRelayListEvent(ctx context.Context, ev *nostr.Event, account *models.Account, relayType string) error {
	accountPubkey := ""
	if account != nil {
		accountPubkey = account.Pubkey
	}

	entries := relayListEntries(ev, accountPubkey, relayType)

	tx, err := svc.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	del := tx.NewDelete().
		Model((*models.RelayEntry)(nil)).
		Where("pubkey = ?", ev.PubKey).
		Where("type = ?", relayType)
	if accountPubkey == "" {
		del = del.Where("account_pubkey IS NULL")
	} else {
		del = del.Where("account_pubkey = ?", accountPubkey)
	}
	if _, err = del.Exec(ctx); err != nil {
		tx.Rollback()
		return err
	}

	if len(entries) > 0 {
		if _, err = tx.NewInsert().Model(&entries).Exec(ctx); err != nil {
			tx.Rollback()
			return err
		}
	}

	// seeing our own published NIP-65 list completes that onboarding step
	if account != nil && relayType == common.RelayTypeNip65 && ev.PubKey == account.Pubkey && !account.RelayListsPublished {
		account.RelayListsPublished = true
		if _, err = tx.NewUpdate().Model(account).WherePK().Exec(ctx); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err = tx.Commit(); err != nil {
		return err
	}
	svc.Logger.Infof("Stored %d %s relays for %s (account %q) from event %s", len(entries), relayType, ev.PubKey, accountPubkey, ev.ID)
	return nil
}

// relayListEntries extracts relay rows from the event tags. NIP-65 lists use
// "r" tags with an optional read/write marker; inbox and key-package lists
// use "relay" tags.
func relayListEntries(ev *nostr.Event, accountPubkey, relayType string) []models.RelayEntry {
	tagName := "r"
	if relayType != common.RelayTypeNip65 {
		tagName = "relay"
	}

	entries := make([]models.RelayEntry, 0, len(ev.Tags))
	for _, tag := range ev.Tags {
		if len(tag) < 2 || tag[0] != tagName || tag[1] == "" {
			continue
		}
		entry := models.RelayEntry{
			Pubkey:        ev.PubKey,
			AccountPubkey: accountPubkey,
			Uri:           tag[1],
			Type:          relayType,
		}
		if len(tag) >= 3 {
			entry.Marker = tag[2]
		}
		entries = append(entries, entry)
	}
	return entries
}
