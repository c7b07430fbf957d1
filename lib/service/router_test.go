package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/getHush/hushhub.go/common"
)

const testPubkey = "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798"

func TestParseSubscriptionIDWithAccountStream(t *testing.T) {
	id := SubscriptionID(testPubkey, common.StreamKindGiftwrap)
	assert.Equal(t, "79be667ef9dcbbac_giftwrap", id)

	target := ParseSubscriptionID(id)
	assert.False(t, target.Global)
	assert.Equal(t, "79be667ef9dcbbac", target.Fingerprint)
	assert.Equal(t, common.StreamKindGiftwrap, target.StreamKind)
}

func TestParseSubscriptionIDStreamKindWithUnderscore(t *testing.T) {
	target := ParseSubscriptionID(SubscriptionID(testPubkey, common.StreamKindMLSMessages))
	assert.False(t, target.Global)
	assert.Equal(t, "79be667ef9dcbbac", target.Fingerprint)
	assert.Equal(t, common.StreamKindMLSMessages, target.StreamKind)
}

func TestParseSubscriptionIDGlobal(t *testing.T) {
	target := ParseSubscriptionID(common.StreamKindGlobal)
	assert.True(t, target.Global)
	assert.Empty(t, target.Fingerprint)
	assert.Equal(t, common.StreamKindGlobal, target.StreamKind)
}

func TestParseSubscriptionIDMalformed(t *testing.T) {
	for _, id := range []string{
		"",
		"_giftwrap",
		"79be667e_giftwrap",                  // fingerprint too short
		"79be667ef9dcbbac55_giftwrap",        // fingerprint too long
		"79be667ef9dcbbac_",                  // empty stream kind
		"79BE667EF9DCBBAC_giftwrap",          // uppercase hex is not produced by us
		"zzbe667ef9dcbbaz_giftwrap",          // not hex at all
		"79be667ef9dcbbac55a06295ce870b07",   // no separator
	} {
		target := ParseSubscriptionID(id)
		assert.True(t, target.Global, "id %q should degrade to an unattributed target", id)
		assert.Empty(t, target.Fingerprint, "id %q should carry no fingerprint", id)
	}
}

func TestFingerprintLength(t *testing.T) {
	assert.Len(t, common.Fingerprint(testPubkey), common.FingerprintLen)
}
