package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nbd-wtf/go-nostr"

	"github.com/getHush/hushhub.go/common"
	"github.com/getHush/hushhub.go/db/models"
	"github.com/getHush/hushhub.go/lib/mls"
)

// HandleGroupMessageEvent hands a kind-445 ciphertext to the MLS engine and
// persists the decoded application message. Messages for groups we have no
// state for yet stay unprocessed so the redelivery after the welcome can
// pick them up.
func (svc *HushhubService) HandleGroupMessageEvent(ctx context.Context, ev *nostr.Event, account *models.Account) error {
	if account == nil {
		svc.Logger.Infof("Group message %s arrived without an account context, dropping", ev.ID)
		return nil
	}

	decoded, err := svc.MLS.ProcessGroupMessage(ctx, account.Pubkey, ev)
	if err != nil {
		if errors.Is(err, mls.ErrNoGroupState) {
			svc.Logger.Infof("No group state yet for message %s (account %s), leaving unprocessed", ev.ID, account.Pubkey)
			return err
		}
		svc.NotifyError(ctx, account.Pubkey, int64(ev.Kind), "An incoming group message could not be decrypted")
		return fmt.Errorf("process group message %s: %w", ev.ID, err)
	}

	message := models.GroupMessage{
		AccountPubkey:  account.Pubkey,
		GroupID:        decoded.GroupID,
		EventID:        ev.ID,
		SenderPubkey:   decoded.SenderPubkey,
		Kind:           int64(decoded.Kind),
		Content:        decoded.Content,
		EventCreatedAt: int64(ev.CreatedAt),
	}
	_, err = svc.DB.NewInsert().
		Model(&message).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return err
	}

	svc.NotifyMessage(ctx, account.Pubkey, &message)
	return nil
}

// HandleGenericEvent covers kinds with no dedicated side effects: the only
// outcome is the ledger row written by the caller. Observing our own
// key-package event completes that onboarding step.
func (svc *HushhubService) HandleGenericEvent(ctx context.Context, ev *nostr.Event, account *models.Account) error {
	if account != nil && ev.Kind == common.KindMLSKeyPackage && ev.PubKey == account.Pubkey && !account.KeyPackagePublished {
		account.KeyPackagePublished = true
		if _, err := svc.DB.NewUpdate().Model(account).WherePK().Exec(ctx); err != nil {
			return err
		}
		svc.Logger.Infof("Key package for account %s observed on a relay", account.Pubkey)
	}
	svc.Logger.Debugf("No dedicated handler for kind %d, event %s recorded only", ev.Kind, ev.ID)
	return nil
}
