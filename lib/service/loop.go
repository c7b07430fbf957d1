package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/nbd-wtf/go-nostr"

	"github.com/getHush/hushhub.go/common"
	"github.com/getHush/hushhub.go/db/models"
)

type LoopState int32

const (
	LoopStopped LoopState = iota
	LoopRunning
	LoopDraining
)

func (s LoopState) String() string {
	switch s {
	case LoopRunning:
		return "running"
	case LoopDraining:
		return "draining"
	default:
		return "stopped"
	}
}

type loopStateVar struct {
	v atomic.Int32
}

func (l *loopStateVar) set(s LoopState) { l.v.Store(int32(s)) }
func (l *loopStateVar) get() LoopState  { return LoopState(l.v.Load()) }

// LoopState reports the current state of the processing loop.
func (svc *HushhubService) LoopState() LoopState {
	return svc.loopState.get()
}

// StartProcessingLoop is the single consumer of the ingestion queue. All
// mutation of the account registry and the database happens from here, one
// item at a time, which is what lets the handlers go lock-free on shared
// account state.
//
// The loop survives handler failures: a processing error is logged and
// captured, never propagated. It returns once the queue is fully drained
// after shutdown, or when the drain grace period expires.
func (svc *HushhubService) StartProcessingLoop(ctx context.Context) error {
	svc.loopState.set(LoopRunning)
	defer svc.loopState.set(LoopStopped)
	svc.Logger.Infof("Starting processing loop")

	for {
		select {
		case <-ctx.Done():
			svc.Queue.Shutdown()
			return svc.drain()
		case item, ok := <-svc.Queue.Items():
			if !ok {
				return nil
			}
			svc.processItem(item)
		}
	}
}

// drain processes already-buffered items after shutdown was signaled, up to
// the configured grace period.
func (svc *HushhubService) drain() error {
	svc.loopState.set(LoopDraining)
	grace := time.Duration(svc.Config.ShutdownGraceSeconds) * time.Second
	svc.Logger.Infof("Draining ingestion queue: %d items buffered, grace period %s", svc.Queue.Depth(), grace)

	timer := time.NewTimer(grace)
	defer timer.Stop()
	for {
		select {
		case item, ok := <-svc.Queue.Items():
			if !ok {
				return nil
			}
			svc.processItem(item)
		case <-timer.C:
			if dropped := svc.Queue.Depth(); dropped > 0 {
				svc.Logger.Warnf("Drain grace period expired, dropping %d buffered items", dropped)
			}
			return nil
		}
	}
}

func (svc *HushhubService) processItem(item ProcessableEvent) {
	// the loop context may already be canceled while draining, so each item
	// gets its own deadline
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(svc.Config.DatabaseTimeout)*time.Second)
	defer cancel()

	switch {
	case item.Control != nil:
		svc.handleControlMessage(item.Control)
	case item.Event != nil:
		if err := svc.HandleEvent(ctx, item.Event, item.SubscriptionID); err != nil {
			svc.Logger.Errorf("Error processing event %s (kind %d): %v", item.Event.ID, item.Event.Kind, err)
			sentry.CaptureException(fmt.Errorf("event %s: %w", item.Event.ID, err))
		}
	case item.RelayMessage != nil:
		svc.HandleRelayMessage(item.RelayUri, item.RelayMessage)
	}
}

// HandleEvent routes one inbound event: resolve the account from the
// subscription identifier, then process it in that account's scope.
//
// Drop policy: events for unknown accounts are dropped at info level (an
// expected logout race), malformed giftwraps at warn, and a giftwrap whose
// recipient does not match the subscription's account at warn — that one is
// security-relevant and must never be silently misrouted.
func (svc *HushhubService) HandleEvent(ctx context.Context, ev *nostr.Event, subscriptionID string) error {
	target := ParseSubscriptionID(subscriptionID)

	var account *models.Account
	if !target.Global {
		account = svc.Registry.GetByFingerprint(target.Fingerprint)
		if account == nil {
			svc.Logger.Infof("No registered account for subscription %s, dropping event %s", subscriptionID, ev.ID)
			return nil
		}
	}

	// For giftwraps the account is decided by the recipient tag on the
	// outer event, not by the wrapper's author and not by the subscription
	// alone. The subscription, when present, only cross-checks it.
	if ev.Kind == common.KindGiftWrap {
		recipient, ok := giftwrapRecipient(ev)
		if !ok {
			svc.Logger.Warnf("Giftwrap %s has no recipient tag, dropping", ev.ID)
			return nil
		}
		if account != nil && common.Fingerprint(recipient) != target.Fingerprint {
			svc.Logger.Warnf("Giftwrap %s recipient %s does not match subscription %s, dropping", ev.ID, recipient, subscriptionID)
			return nil
		}
		account = svc.Registry.GetByPubkey(recipient)
		if account == nil {
			svc.Logger.Warnf("Giftwrap %s recipient %s is not a registered account, dropping", ev.ID, recipient)
			return nil
		}
	}

	return svc.ProcessEventForAccount(ctx, ev, account)
}

// ProcessEventForAccount runs the dedup check, dispatches to the kind
// handler and, only on success, appends the ledger row. A failed handler
// leaves no ledger row so a future redelivery can retry.
func (svc *HushhubService) ProcessEventForAccount(ctx context.Context, ev *nostr.Event, account *models.Account) error {
	accountPubkey := ""
	if account != nil {
		accountPubkey = account.Pubkey
	}

	seen, err := svc.WasProcessed(ctx, ev.ID, accountPubkey)
	if err != nil {
		return err
	}
	if seen {
		svc.Logger.Debugf("Event %s already processed for account %q, skipping", ev.ID, accountPubkey)
		return nil
	}

	if err := svc.dispatchEvent(ctx, ev, account); err != nil {
		return err
	}
	return svc.MarkProcessed(ctx, ev, accountPubkey)
}

// dispatchEvent selects the handler for the event kind. The kind set is
// closed: adding a kind means adding a case here and a handler next to the
// existing ones.
func (svc *HushhubService) dispatchEvent(ctx context.Context, ev *nostr.Event, account *models.Account) error {
	switch ev.Kind {
	case common.KindProfileMetadata:
		return svc.HandleMetadataEvent(ctx, ev, account)
	case common.KindContactList:
		return svc.HandleContactListEvent(ctx, ev, account)
	case common.KindRelayListMetadata:
		return svc.HandleRelayListEvent(ctx, ev, account, common.RelayTypeNip65)
	case common.KindInboxRelays:
		return svc.HandleRelayListEvent(ctx, ev, account, common.RelayTypeInbox)
	case common.KindKeyPackageRelays:
		return svc.HandleRelayListEvent(ctx, ev, account, common.RelayTypeKeyPackage)
	case common.KindGiftWrap:
		return svc.HandleGiftwrapEvent(ctx, ev, account)
	case common.KindMLSGroupMessage:
		return svc.HandleGroupMessageEvent(ctx, ev, account)
	default:
		return svc.HandleGenericEvent(ctx, ev, account)
	}
}

func (svc *HushhubService) handleControlMessage(msg *ControlMessage) {
	var err error
	switch msg.Action {
	case common.ControlActionLogin:
		svc.Registry.Add(msg.Account)
		svc.Logger.Infof("Account %s added to registry", msg.Account.Pubkey)
	case common.ControlActionLogout:
		svc.Registry.Remove(msg.Pubkey)
		svc.Logger.Infof("Account %s removed from registry", msg.Pubkey)
	default:
		err = fmt.Errorf("unknown control action %q", msg.Action)
		svc.Logger.Errorf("Dropping control message: %v", err)
	}
	if msg.Done != nil {
		msg.Done <- err
	}
}
