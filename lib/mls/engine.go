// Package mls is the boundary to the MLS group-messaging engine.
//
// The ingestion core never touches group state itself: it unwraps NIP-59
// envelopes with the account's nostr key and hands group ciphertexts to an
// Engine. The group cryptography proper is supplied by the embedding
// application through the GroupDecrypter hook.
package mls

import (
	"context"
	"errors"
	"fmt"

	"github.com/nbd-wtf/go-nostr"
	"github.com/nbd-wtf/go-nostr/nip44"
	"github.com/nbd-wtf/go-nostr/nip59"
)

// ErrNoGroupState is returned when a group message cannot be decrypted
// because no group state exists for it yet. The event stays unprocessed in
// the ledger so a later redelivery can retry.
var ErrNoGroupState = errors.New("mls: no group state for message")

// DecodedMessage is a decrypted MLS application message.
type DecodedMessage struct {
	GroupID      string
	SenderPubkey string
	Kind         int
	Content      string
	CreatedAt    nostr.Timestamp
}

// GroupDecrypter decrypts kind-445 group messages. Implemented by the
// embedding application's MLS stack.
type GroupDecrypter interface {
	DecryptGroupMessage(ctx context.Context, accountPubkey string, ev *nostr.Event) (*DecodedMessage, error)
}

type Engine interface {
	// ProcessEnvelope unwraps a gift-wrapped (kind 1059) outer event with
	// the recipient account's secret key and returns the inner rumor.
	ProcessEnvelope(ctx context.Context, secretKey string, outer *nostr.Event) (*nostr.Event, error)
	// ProcessGroupMessage decrypts a kind-445 group message in the context
	// of the given account.
	ProcessGroupMessage(ctx context.Context, accountPubkey string, ev *nostr.Event) (*DecodedMessage, error)
}

type EngineOption = func(e *EnvelopeEngine)

func WithGroupDecrypter(d GroupDecrypter) EngineOption {
	return func(e *EnvelopeEngine) {
		e.decrypter = d
	}
}

// EnvelopeEngine handles the NIP-59 envelope layer natively and delegates
// group-message decryption to an optional GroupDecrypter.
type EnvelopeEngine struct {
	decrypter GroupDecrypter
}

func NewEnvelopeEngine(options ...EngineOption) *EnvelopeEngine {
	engine := &EnvelopeEngine{}
	for _, opt := range options {
		opt(engine)
	}
	return engine
}

func (e *EnvelopeEngine) ProcessEnvelope(ctx context.Context, secretKey string, outer *nostr.Event) (*nostr.Event, error) {
	rumor, err := nip59.GiftUnwrap(*outer, func(otherpubkey, ciphertext string) (string, error) {
		conversationKey, err := nip44.GenerateConversationKey(otherpubkey, secretKey)
		if err != nil {
			return "", err
		}
		return nip44.Decrypt(ciphertext, conversationKey)
	})
	if err != nil {
		return nil, fmt.Errorf("gift unwrap: %w", err)
	}
	return &rumor, nil
}

func (e *EnvelopeEngine) ProcessGroupMessage(ctx context.Context, accountPubkey string, ev *nostr.Event) (*DecodedMessage, error) {
	if e.decrypter == nil {
		return nil, ErrNoGroupState
	}
	return e.decrypter.DecryptGroupMessage(ctx, accountPubkey, ev)
}

var _ Engine = (*EnvelopeEngine)(nil)
