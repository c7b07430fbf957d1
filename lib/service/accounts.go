package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nbd-wtf/go-nostr"

	"github.com/getHush/hushhub.go/common"
	"github.com/getHush/hushhub.go/db/models"
)

// Account lifecycle operations. These run outside the processing loop, so
// the registry itself is only touched through control messages on the
// queue; the database writes are safe from any goroutine.

// CreateAccount generates a fresh keypair and logs it in.
func (svc *HushhubService) CreateAccount(ctx context.Context) (*models.Account, error) {
	return svc.LoginAccount(ctx, nostr.GeneratePrivateKey())
}

// LoginAccount persists the account row (a no-op when it already exists)
// and registers it with the processing loop. It returns once the loop has
// picked the account up.
func (svc *HushhubService) LoginAccount(ctx context.Context, secretKey string) (*models.Account, error) {
	pubkey, err := nostr.GetPublicKey(secretKey)
	if err != nil {
		return nil, fmt.Errorf("invalid secret key: %w", err)
	}

	account := &models.Account{Pubkey: pubkey, SecretKey: secretKey}
	_, err = svc.DB.NewInsert().
		Model(account).
		On("CONFLICT (pubkey) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, err
	}
	// re-read so a returning account keeps its onboarding flags
	if err = svc.DB.NewSelect().Model(account).WherePK().Scan(ctx); err != nil {
		return nil, err
	}

	done := make(chan error, 1)
	err = svc.Queue.EnqueueControl(&ControlMessage{
		Action:  common.ControlActionLogin,
		Account: account,
		Done:    done,
	})
	if err != nil {
		return nil, err
	}
	select {
	case err = <-done:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	svc.Logger.Infof("Account %s logged in", pubkey)
	return account, nil
}

// LogoutAccount removes the account from the registry. The database row and
// its history stay; use DeleteAccount to drop those too.
func (svc *HushhubService) LogoutAccount(ctx context.Context, pubkey string) error {
	done := make(chan error, 1)
	err := svc.Queue.EnqueueControl(&ControlMessage{
		Action: common.ControlActionLogout,
		Pubkey: pubkey,
		Done:   done,
	})
	if err != nil {
		return err
	}
	select {
	case err = <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// DeleteAccount logs the account out and removes everything it owns: ledger
// rows, cached profiles, relay entries, follows, messages, notifications
// and finally the account row itself, in one transaction.
func (svc *HushhubService) DeleteAccount(ctx context.Context, pubkey string) error {
	if err := svc.LogoutAccount(ctx, pubkey); err != nil {
		return err
	}

	tx, err := svc.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	owned := []interface{}{
		(*models.ProcessedEvent)(nil),
		(*models.Profile)(nil),
		(*models.RelayEntry)(nil),
		(*models.Follow)(nil),
		(*models.GroupMessage)(nil),
		(*models.Notification)(nil),
	}
	for _, model := range owned {
		if _, err = tx.NewDelete().Model(model).Where("account_pubkey = ?", pubkey).Exec(ctx); err != nil {
			tx.Rollback()
			return err
		}
	}
	if _, err = tx.NewDelete().Model((*models.Account)(nil)).Where("pubkey = ?", pubkey).Exec(ctx); err != nil {
		tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	svc.Logger.Infof("Account %s deleted", pubkey)
	return nil
}

// RestoreAccounts registers every persisted account with the processing
// loop. Called once at startup, before the relay subscriptions come up.
func (svc *HushhubService) RestoreAccounts(ctx context.Context) ([]*models.Account, error) {
	accounts := []*models.Account{}
	if err := svc.DB.NewSelect().Model(&accounts).Scan(ctx); err != nil {
		return nil, err
	}
	for _, account := range accounts {
		err := svc.Queue.EnqueueControl(&ControlMessage{
			Action:  common.ControlActionLogin,
			Account: account,
		})
		if err != nil {
			return nil, err
		}
	}
	svc.Logger.Infof("Restored %d accounts", len(accounts))
	return accounts, nil
}

// FindAccount loads one account row by pubkey.
func (svc *HushhubService) FindAccount(ctx context.Context, pubkey string) (*models.Account, error) {
	account := &models.Account{Pubkey: pubkey}
	if err := svc.DB.NewSelect().Model(account).WherePK().Scan(ctx); err != nil {
		return nil, err
	}
	return account, nil
}
