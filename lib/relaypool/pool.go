// Package relaypool adapts nostr relay subscriptions to the ingestion
// queue. It owns no processing logic: every delivery is translated into a
// queue item and the processing loop takes it from there. Connection
// management, reconnects and subscription registration are the
// SimplePool's business.
package relaypool

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"
	"github.com/nbd-wtf/go-nostr"
	"github.com/ziflex/lecho/v3"

	"github.com/getHush/hushhub.go/common"
	"github.com/getHush/hushhub.go/db/models"
	"github.com/getHush/hushhub.go/lib/service"
)

type Pool struct {
	pool   *nostr.SimplePool
	queue  *service.IngestionQueue
	logger *lecho.Logger
}

func New(ctx context.Context, queue *service.IngestionQueue, logger *lecho.Logger) *Pool {
	return &Pool{
		pool:   nostr.NewSimplePool(ctx),
		queue:  queue,
		logger: logger,
	}
}

// SubscribeAccount opens the three account streams: giftwraps addressed to
// the account, MLS group messages, and the account's own lists/metadata.
// One goroutine per stream; deliveries from a single stream are serialized
// before enqueue, which is what preserves per-subscription ordering.
func (p *Pool) SubscribeAccount(ctx context.Context, account *models.Account, relays []string) {
	pk := account.Pubkey
	since := nostr.Now()

	streams := map[string]nostr.Filters{
		common.StreamKindGiftwrap: {{
			Kinds: []int{common.KindGiftWrap},
			Tags:  nostr.TagMap{"p": []string{pk}},
		}},
		common.StreamKindMLSMessages: {{
			Kinds: []int{common.KindMLSGroupMessage},
			Since: &since,
		}},
		common.StreamKindUserData: {{
			Kinds: []int{
				common.KindProfileMetadata,
				common.KindContactList,
				common.KindRelayListMetadata,
				common.KindInboxRelays,
				common.KindKeyPackageRelays,
			},
			Authors: []string{pk},
		}},
	}

	for streamKind, filters := range streams {
		subscriptionID := service.SubscriptionID(pk, streamKind)
		go p.run(ctx, relays, filters, subscriptionID)
	}
}

// SubscribeGlobal opens the account-independent metadata stream for the
// given authors (typically the union of all accounts' follow sets).
func (p *Pool) SubscribeGlobal(ctx context.Context, relays []string, authors []string) {
	filters := nostr.Filters{{
		Kinds:   []int{common.KindProfileMetadata, common.KindRelayListMetadata},
		Authors: authors,
	}}
	go p.run(ctx, relays, filters, common.StreamKindGlobal)
}

func (p *Pool) run(ctx context.Context, relays []string, filters nostr.Filters, subscriptionID string) {
	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = 0 // keep resubscribing for as long as the context lives

	operation := func() error {
		for incoming := range p.pool.SubMany(ctx, relays, filters) {
			if incoming.Event == nil {
				continue
			}
			if err := p.queue.EnqueueEvent(incoming.Event, subscriptionID); err != nil {
				if err == service.ErrQueueClosed {
					return backoff.Permanent(err)
				}
				p.logger.Errorf("Could not enqueue event %s from subscription %s: %v", incoming.Event.ID, subscriptionID, err)
			}
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return fmt.Errorf("subscription %s ended", subscriptionID)
	}

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	if err != nil && err != context.Canceled && err != service.ErrQueueClosed {
		p.logger.Errorf("Subscription %s terminated: %v", subscriptionID, err)
	}
	p.logger.Infof("Subscription %s closed", subscriptionID)
}
