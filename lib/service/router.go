package service

import (
	"strings"

	"github.com/getHush/hushhub.go/common"
)

// SubscriptionTarget is the routing decision for one subscription
// identifier: which account fingerprint it belongs to (if any) and which
// stream kind it carries.
type SubscriptionTarget struct {
	Fingerprint string
	StreamKind  string
	// Global is set when the identifier carries no account fingerprint,
	// either because the subscription is intentionally account-independent
	// or because the identifier is malformed. Never an error: unattributed
	// events are handled by policy further down the pipeline.
	Global bool
}

// ParseSubscriptionID splits a subscription identifier of the form
// {fingerprint}_{streamKind} on the last underscore of the fingerprint
// part. Stream kinds may themselves contain underscores
// (e.g. "mls_messages"), so the split point is after the leading
// fingerprint segment, which is fixed-length lowercase hex.
//
// Anything that does not match degrades to an unattributed target.
func ParseSubscriptionID(id string) SubscriptionTarget {
	if id == "" {
		return SubscriptionTarget{StreamKind: common.StreamKindGlobal, Global: true}
	}

	sep := strings.Index(id, "_")
	if sep != common.FingerprintLen {
		// kind-only identifier or a shape we don't recognize
		return SubscriptionTarget{StreamKind: id, Global: true}
	}

	fingerprint, streamKind := id[:sep], id[sep+1:]
	if streamKind == "" || !isHex(fingerprint) {
		return SubscriptionTarget{StreamKind: id, Global: true}
	}

	return SubscriptionTarget{Fingerprint: fingerprint, StreamKind: streamKind}
}

// SubscriptionID builds the wire identifier for an account stream.
func SubscriptionID(accountPubkey, streamKind string) string {
	return common.Fingerprint(accountPubkey) + "_" + streamKind
}

func isHex(s string) bool {
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return len(s) > 0
}
