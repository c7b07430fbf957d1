package service

import (
	"errors"
	"sync"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/ziflex/lecho/v3"

	"github.com/getHush/hushhub.go/db/models"
)

var (
	ErrQueueClosed    = errors.New("ingestion queue is shut down")
	ErrEnqueueTimeout = errors.New("ingestion queue is full")
)

// ControlMessage rides the ingestion queue so that the account registry is
// only ever mutated from the processing loop.
type ControlMessage struct {
	Action  string
	Account *models.Account // set for login
	Pubkey  string          // set for logout
	Done    chan error      // optional ack, must be buffered by the caller
}

// ProcessableEvent is one unit of work on the ingestion queue: a nostr
// event with its subscription identifier, a raw relay protocol frame, or a
// control message. Exactly one of Event, RelayMessage and Control is set.
type ProcessableEvent struct {
	Event          *nostr.Event
	SubscriptionID string
	RelayUri       string
	RelayMessage   []byte
	Control        *ControlMessage
}

// IngestionQueue is the multi-producer/single-consumer channel between the
// relay transport and the processing loop. Producers block up to the
// configured timeout when the buffer is full, then fail with
// ErrEnqueueTimeout rather than dropping silently.
type IngestionQueue struct {
	items   chan ProcessableEvent
	timeout time.Duration
	logger  *lecho.Logger

	mu     sync.RWMutex
	closed bool
}

func NewIngestionQueue(size int, enqueueTimeout time.Duration, logger *lecho.Logger) *IngestionQueue {
	return &IngestionQueue{
		items:   make(chan ProcessableEvent, size),
		timeout: enqueueTimeout,
		logger:  logger,
	}
}

func (q *IngestionQueue) EnqueueEvent(ev *nostr.Event, subscriptionID string) error {
	return q.push(ProcessableEvent{Event: ev, SubscriptionID: subscriptionID})
}

// EnqueueRelayMessage feeds a raw relay protocol frame (OK, NOTICE, AUTH,
// ...) into the pipeline. The pool's SimplePool consumes these frames
// internally and never surfaces them, so this entry point is for embedding
// relay layers that manage their own connections and want the frames
// reflected in the status API.
func (q *IngestionQueue) EnqueueRelayMessage(relayUri string, payload []byte) error {
	return q.push(ProcessableEvent{RelayUri: relayUri, RelayMessage: payload})
}

func (q *IngestionQueue) EnqueueControl(msg *ControlMessage) error {
	return q.push(ProcessableEvent{Control: msg})
}

func (q *IngestionQueue) push(item ProcessableEvent) error {
	// the read lock is held for the whole send so Shutdown cannot close the
	// channel under a blocked producer
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.items <- item:
		return nil
	default:
	}

	timer := time.NewTimer(q.timeout)
	defer timer.Stop()
	select {
	case q.items <- item:
		return nil
	case <-timer.C:
		q.logger.Errorf("Dropping item after %s, ingestion queue is full", q.timeout)
		return ErrEnqueueTimeout
	}
}

// Shutdown stops intake. Buffered items remain readable until drained; the
// consumer observes the channel close once the buffer is empty. Safe to
// call more than once.
func (q *IngestionQueue) Shutdown() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	close(q.items)
}

// Items is the consumer side of the queue. Single consumer by contract.
func (q *IngestionQueue) Items() <-chan ProcessableEvent {
	return q.items
}

// Depth reports how many items are currently buffered.
func (q *IngestionQueue) Depth() int {
	return len(q.items)
}
