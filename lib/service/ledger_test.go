package service_test

import (
	"context"
	"testing"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getHush/hushhub.go/common"
	"github.com/getHush/hushhub.go/db/models"
)

func TestProcessEventIsIdempotent(t *testing.T) {
	svc := newTestService(t, nil)
	account := registerTestAccount(t, svc)
	ctx := context.Background()

	ev := testEvent("meta1", common.KindProfileMetadata, account.Pubkey, 100, `{"name":"alice"}`, nil)

	require.NoError(t, svc.ProcessEventForAccount(ctx, ev, account))
	require.NoError(t, svc.ProcessEventForAccount(ctx, ev, account))

	assert.Equal(t, 1, countRows(t, svc, (*models.Profile)(nil)))
	assert.Equal(t, 1, countRows(t, svc, (*models.ProcessedEvent)(nil)))

	seen, err := svc.WasProcessed(ctx, "meta1", account.Pubkey)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestLedgerScopesAreIndependent(t *testing.T) {
	svc := newTestService(t, nil)
	account := registerTestAccount(t, svc)
	other := registerTestAccount(t, svc)
	ctx := context.Background()

	ev := testEvent("meta1", common.KindProfileMetadata, "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798", 100, `{"name":"alice"}`, nil)

	// the same event processed globally and for two accounts makes three
	// independent ledger entries
	require.NoError(t, svc.ProcessEventForAccount(ctx, ev, nil))
	require.NoError(t, svc.ProcessEventForAccount(ctx, ev, account))
	require.NoError(t, svc.ProcessEventForAccount(ctx, ev, other))
	assert.Equal(t, 3, countRows(t, svc, (*models.ProcessedEvent)(nil)))

	for _, scope := range []string{"", account.Pubkey, other.Pubkey} {
		seen, err := svc.WasProcessed(ctx, "meta1", scope)
		require.NoError(t, err)
		assert.True(t, seen, "scope %q", scope)
	}

	third := registerTestAccount(t, svc)
	seen, err := svc.WasProcessed(ctx, "meta1", third.Pubkey)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMarkProcessedConflictIsANoOp(t *testing.T) {
	svc := newTestService(t, nil)
	account := registerTestAccount(t, svc)
	ctx := context.Background()

	ev := testEvent("meta1", common.KindProfileMetadata, account.Pubkey, 100, `{"name":"alice"}`, nil)

	// a racing redelivery hits the unique index, not an error
	require.NoError(t, svc.MarkProcessed(ctx, ev, account.Pubkey))
	require.NoError(t, svc.MarkProcessed(ctx, ev, account.Pubkey))
	assert.Equal(t, 1, countRows(t, svc, (*models.ProcessedEvent)(nil)))

	require.NoError(t, svc.MarkProcessed(ctx, ev, ""))
	require.NoError(t, svc.MarkProcessed(ctx, ev, ""))
	assert.Equal(t, 2, countRows(t, svc, (*models.ProcessedEvent)(nil)))
}

func TestFreshnessSurvivesListReplacement(t *testing.T) {
	svc := newTestService(t, nil)
	account := registerTestAccount(t, svc)
	ctx := context.Background()
	kinds := []int{common.KindRelayListMetadata}

	ev1 := testEvent("rl1", common.KindRelayListMetadata, account.Pubkey, 100, "", nostr.Tags{{"r", "wss://one.test"}})
	require.NoError(t, svc.ProcessEventForAccount(ctx, ev1, account))

	latest, ok, err := svc.LatestProcessedAt(ctx, account.Pubkey, kinds)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 100, latest)

	// a newer list replaces the derived rows and advances freshness
	ev2 := testEvent("rl2", common.KindRelayListMetadata, account.Pubkey, 200, "", nostr.Tags{{"r", "wss://two.test"}})
	require.NoError(t, svc.ProcessEventForAccount(ctx, ev2, account))

	latest, ok, err = svc.LatestProcessedAt(ctx, account.Pubkey, kinds)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 200, latest)

	// wiping the derived table must not move freshness backwards
	_, err = svc.DB.NewDelete().Model((*models.RelayEntry)(nil)).Where("account_pubkey = ?", account.Pubkey).Exec(ctx)
	require.NoError(t, err)

	latest, ok, err = svc.LatestProcessedAt(ctx, account.Pubkey, kinds)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 200, latest)

	// neither may a late redelivery of an older event
	ev3 := testEvent("rl3", common.KindRelayListMetadata, account.Pubkey, 150, "", nostr.Tags{{"r", "wss://three.test"}})
	require.NoError(t, svc.ProcessEventForAccount(ctx, ev3, account))

	latest, _, err = svc.LatestProcessedAt(ctx, account.Pubkey, kinds)
	require.NoError(t, err)
	assert.EqualValues(t, 200, latest)
}

func TestFreshnessIgnoresRowsWithoutKind(t *testing.T) {
	svc := newTestService(t, nil)
	account := registerTestAccount(t, svc)
	ctx := context.Background()

	legacy := models.ProcessedEvent{
		EventID:        "legacy1",
		AccountPubkey:  account.Pubkey,
		EventCreatedAt: 999999,
	}
	_, err := svc.DB.NewInsert().Model(&legacy).Exec(ctx)
	require.NoError(t, err)

	// the legacy row still blocks reprocessing
	seen, err := svc.WasProcessed(ctx, "legacy1", account.Pubkey)
	require.NoError(t, err)
	assert.True(t, seen)

	// but never answers a kind-filtered freshness query
	_, ok, err := svc.LatestProcessedAt(ctx, account.Pubkey, []int{common.KindRelayListMetadata})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFreshnessWithoutAnyRows(t *testing.T) {
	svc := newTestService(t, nil)
	account := registerTestAccount(t, svc)

	_, ok, err := svc.LatestProcessedAt(context.Background(), account.Pubkey, []int{common.KindRelayListMetadata, common.KindInboxRelays})
	require.NoError(t, err)
	assert.False(t, ok)
}
