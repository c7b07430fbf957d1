package common

// Nostr event kinds the processing loop knows how to dispatch.
const (
	KindProfileMetadata   = 0
	KindContactList       = 3
	KindMLSKeyPackage     = 443
	KindMLSWelcome        = 444
	KindMLSGroupMessage   = 445
	KindGiftWrap          = 1059
	KindRelayListMetadata = 10002
	KindInboxRelays       = 10050
	KindKeyPackageRelays  = 10051
)

// Stream kinds used as the suffix of subscription identifiers.
const (
	StreamKindGiftwrap    = "giftwrap"
	StreamKindMLSMessages = "mls_messages"
	StreamKindUserData    = "user_data"
	StreamKindGlobal      = "global"
)

// Relay list types stored in the relay_entries table.
const (
	RelayTypeNip65      = "nip65"
	RelayTypeInbox      = "inbox"
	RelayTypeKeyPackage = "key_package"
)

// Notification levels published on the account pubsub.
const (
	NotificationLevelMessage = "message"
	NotificationLevelError   = "error"
)

// Control actions carried on the ingestion queue.
const (
	ControlActionLogin  = "login"
	ControlActionLogout = "logout"
)

// FingerprintLen is the number of leading hex characters of a pubkey used
// in subscription identifiers.
const FingerprintLen = 16

// Fingerprint returns the subscription fingerprint for a hex pubkey.
func Fingerprint(pubkey string) string {
	if len(pubkey) < FingerprintLen {
		return pubkey
	}
	return pubkey[:FingerprintLen]
}
