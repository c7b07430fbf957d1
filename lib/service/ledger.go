package service

import (
	"context"
	"database/sql"

	"github.com/nbd-wtf/go-nostr"
	"github.com/uptrace/bun"

	"github.com/getHush/hushhub.go/db/models"
)

// The processed-event ledger decouples "have I seen a newer event of this
// kind" from "what does my current derived table look like". Derived tables
// (relay_entries, follows) are delete-then-reinsert on every update, so a
// MAX(created_at) over them regresses whenever a row is removed. The ledger
// records every processed event's own timestamp permanently instead.

// WasProcessed reports whether the (event, account) pair was already
// handled. An empty accountPubkey addresses the global scope.
func (svc *HushhubService) WasProcessed(ctx context.Context, eventID, accountPubkey string) (bool, error) {
	query := svc.DB.NewSelect().
		Model((*models.ProcessedEvent)(nil)).
		Where("event_id = ?", eventID)
	if accountPubkey == "" {
		query = query.Where("account_pubkey IS NULL")
	} else {
		query = query.Where("account_pubkey = ?", accountPubkey)
	}
	count, err := query.Count(ctx)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// MarkProcessed appends one ledger row for the event. A uniqueness conflict
// means a racing redelivery already recorded it, which is success, not an
// error — this is the primary idempotence mechanism.
func (svc *HushhubService) MarkProcessed(ctx context.Context, ev *nostr.Event, accountPubkey string) error {
	kind := int64(ev.Kind)
	row := models.ProcessedEvent{
		EventID:        ev.ID,
		AccountPubkey:  accountPubkey,
		EventCreatedAt: int64(ev.CreatedAt),
		EventKind:      &kind,
	}
	_, err := svc.DB.NewInsert().
		Model(&row).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	return err
}

// LatestProcessedAt answers the freshness query: the newest event timestamp
// (unix seconds) ever processed for the account over the given kind set.
// Rows with a NULL kind (written before kind tracking existed) never match
// the kind filter. The returned bool is false when no matching row exists.
//
// For a fixed filter this value is monotonically non-decreasing over time:
// ledger rows are never updated and only removed with the whole account.
func (svc *HushhubService) LatestProcessedAt(ctx context.Context, accountPubkey string, kinds []int) (int64, bool, error) {
	var latest sql.NullInt64
	query := svc.DB.NewSelect().
		Model((*models.ProcessedEvent)(nil)).
		ColumnExpr("MAX(event_created_at)").
		Where("event_kind IN (?)", bun.In(kinds))
	if accountPubkey == "" {
		query = query.Where("account_pubkey IS NULL")
	} else {
		query = query.Where("account_pubkey = ?", accountPubkey)
	}
	if err := query.Scan(ctx, &latest); err != nil {
		return 0, false, err
	}
	return latest.Int64, latest.Valid, nil
}
