package service

import (
	"context"
	"fmt"

	"github.com/nbd-wtf/go-nostr"

	"github.com/getHush/hushhub.go/db/models"
)

// HandleGiftwrapEvent unwraps an encrypted envelope and feeds the inner
// rumor back through the dispatch table under the same account. The loop
// has already resolved and cross-checked the recipient by the time we get
// here (see HandleEvent).
//
// A failed unwrap surfaces as an account-scoped notification and leaves no
// ledger row, so a redelivery can retry.
func (svc *HushhubService) HandleGiftwrapEvent(ctx context.Context, ev *nostr.Event, account *models.Account) error {
	if account == nil {
		svc.Logger.Infof("Giftwrap %s arrived without an account context, dropping", ev.ID)
		return nil
	}

	inner, err := svc.MLS.ProcessEnvelope(ctx, account.SecretKey, ev)
	if err != nil {
		svc.NotifyError(ctx, account.Pubkey, int64(ev.Kind), "An incoming encrypted envelope could not be decrypted")
		return fmt.Errorf("process envelope %s: %w", ev.ID, err)
	}

	svc.Logger.Infof("Unwrapped giftwrap %s into a kind %d event for account %s", ev.ID, inner.Kind, account.Pubkey)
	return svc.ProcessEventForAccount(ctx, inner, account)
}

// giftwrapRecipient extracts the intended recipient from the designated
// "p" tag on the outer event. The outer author field is the wrapper, never
// the recipient.
func giftwrapRecipient(ev *nostr.Event) (string, bool) {
	for _, tag := range ev.Tags {
		if len(tag) >= 2 && tag[0] == "p" && len(tag[1]) == 64 {
			return tag[1], true
		}
	}
	return "", false
}
