package service

import (
	"sync"

	"github.com/labstack/gommon/random"

	"github.com/getHush/hushhub.go/db/models"
)

// Pubsub fans account-scoped notifications out to in-process consumers
// (the status API, the rabbitmq publisher). Topics are account pubkeys.
type Pubsub struct {
	mu   sync.RWMutex
	subs map[string]map[string]chan models.Notification
}

func NewPubsub() *Pubsub {
	ps := &Pubsub{}
	ps.subs = make(map[string]map[string]chan models.Notification)
	return ps
}

func (ps *Pubsub) Subscribe(topic string, ch chan models.Notification) (subId string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		ps.subs[topic] = make(map[string]chan models.Notification)
	}
	subId = random.String(16, random.Alphanumeric)
	ps.subs[topic][subId] = ch
	return subId
}

func (ps *Pubsub) Unsubscribe(id string, topic string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	if ps.subs[topic] == nil {
		return
	}
	if ps.subs[topic][id] == nil {
		return
	}
	close(ps.subs[topic][id])
	delete(ps.subs[topic], id)
}

// Publish never blocks: a subscriber that stopped reading (or went away
// without unsubscribing) loses the notification instead of stalling the
// processing loop. Subscribers that must not miss messages use a buffered
// channel sized for their burst.
func (ps *Pubsub) Publish(topic string, msg models.Notification) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	if ps.subs[topic] == nil {
		return
	}

	for _, ch := range ps.subs[topic] {
		select {
		case ch <- msg:
		default:
		}
	}
}
