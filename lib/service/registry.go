package service

import (
	"sync"

	"github.com/getHush/hushhub.go/common"
	"github.com/getHush/hushhub.go/db/models"
)

// AccountRegistry holds the in-memory state of every logged-in account.
// Producers (relay subscriptions, the status API) read it; all mutation
// happens from the processing loop via control messages, so writes never
// race with event handling.
type AccountRegistry struct {
	mu            sync.RWMutex
	byFingerprint map[string]*models.Account
	byPubkey      map[string]*models.Account
}

func NewAccountRegistry() *AccountRegistry {
	return &AccountRegistry{
		byFingerprint: make(map[string]*models.Account),
		byPubkey:      make(map[string]*models.Account),
	}
}

func (r *AccountRegistry) Add(account *models.Account) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byFingerprint[account.Fingerprint()] = account
	r.byPubkey[account.Pubkey] = account
}

func (r *AccountRegistry) Remove(pubkey string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byFingerprint, common.Fingerprint(pubkey))
	delete(r.byPubkey, pubkey)
}

func (r *AccountRegistry) GetByFingerprint(fingerprint string) *models.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byFingerprint[fingerprint]
}

func (r *AccountRegistry) GetByPubkey(pubkey string) *models.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.byPubkey[pubkey]
}

func (r *AccountRegistry) List() []*models.Account {
	r.mu.RLock()
	defer r.mu.RUnlock()
	accounts := make([]*models.Account, 0, len(r.byPubkey))
	for _, account := range r.byPubkey {
		accounts = append(accounts, account)
	}
	return accounts
}

func (r *AccountRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byPubkey)
}
