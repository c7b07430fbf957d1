package migrations

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/getHush/hushhub.go/db/models"
)

/* Since this init will reflect the latest model fields when run on a fresh db
make sure that when you add/remove columns in subsequent migrations
IfNotExists/IfExists is used, otherwise it's going to result in errors.
*/
func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {

		if _, err := db.NewCreateTable().Model((*models.Account)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.ProcessedEvent)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.Profile)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.RelayEntry)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.Follow)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.GroupMessage)(nil)).Exec(ctx); err != nil {
			return err
		}
		if _, err := db.NewCreateTable().Model((*models.Notification)(nil)).Exec(ctx); err != nil {
			return err
		}

		// The ledger's uniqueness is split in two: one index for
		// account-scoped rows and a partial one for global rows, because
		// SQL treats NULLs as distinct in plain unique indexes.
		// Bun tags cannot express partial indexes, so raw SQL it is.
		// Both statements are valid on Postgres and SQLite.
		ledgerIndexes := []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS processed_events_event_account_idx
				ON processed_events (event_id, account_pubkey)
				WHERE account_pubkey IS NOT NULL`,
			`CREATE UNIQUE INDEX IF NOT EXISTS processed_events_global_event_idx
				ON processed_events (event_id)
				WHERE account_pubkey IS NULL`,
			`CREATE INDEX IF NOT EXISTS processed_events_kind_created_idx
				ON processed_events (event_kind, event_created_at)`,
		}
		for _, stmt := range ledgerIndexes {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}

		otherIndexes := []string{
			`CREATE UNIQUE INDEX IF NOT EXISTS profiles_pubkey_account_idx
				ON profiles (pubkey, account_pubkey)`,
			`CREATE INDEX IF NOT EXISTS relay_entries_account_type_idx
				ON relay_entries (account_pubkey, type)`,
			`CREATE INDEX IF NOT EXISTS relay_entries_pubkey_type_idx
				ON relay_entries (pubkey, type)`,
			`CREATE INDEX IF NOT EXISTS follows_account_idx
				ON follows (account_pubkey)`,
			`CREATE UNIQUE INDEX IF NOT EXISTS group_messages_event_account_idx
				ON group_messages (event_id, account_pubkey)`,
			`CREATE INDEX IF NOT EXISTS notifications_account_idx
				ON notifications (account_pubkey, created_at)`,
		}
		for _, stmt := range otherIndexes {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}

		return nil
	}, nil)
}
