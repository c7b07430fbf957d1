package service_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getHush/hushhub.go/common"
	"github.com/getHush/hushhub.go/db/models"
	"github.com/getHush/hushhub.go/lib/service"
)

// startLoop runs the processing loop in the background and returns a stop
// function that shuts it down and waits for it to exit.
func startLoop(t *testing.T, svc *service.HushhubService) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- svc.StartProcessingLoop(ctx)
	}()
	return func() {
		cancel()
		require.NoError(t, <-done)
		assert.Equal(t, service.LoopStopped, svc.LoopState())
	}
}

func TestLoopSurvivesHandlerFailure(t *testing.T) {
	engine := &fakeEngine{groupErr: errors.New("boom")}
	svc := newTestService(t, engine)
	account := registerTestAccount(t, svc)
	stop := startLoop(t, svc)
	defer stop()

	// a failing group message must not take the loop down
	bad := testEvent("gm1", common.KindMLSGroupMessage, "0000000000000000000000000000000000000000000000000000000000000002", 600, "garbage", nil)
	require.NoError(t, svc.Queue.EnqueueEvent(bad, service.SubscriptionID(account.Pubkey, common.StreamKindMLSMessages)))

	good := testEvent("meta1", common.KindProfileMetadata, account.Pubkey, 700, `{"name":"alice"}`, nil)
	require.NoError(t, svc.Queue.EnqueueEvent(good, service.SubscriptionID(account.Pubkey, common.StreamKindUserData)))

	assert.Eventually(t, func() bool {
		return countRows(t, svc, (*models.Profile)(nil)) == 1
	}, 5*time.Second, 10*time.Millisecond)

	// the failing event left no ledger row, the good one did
	seen, err := svc.WasProcessed(context.Background(), "gm1", account.Pubkey)
	require.NoError(t, err)
	assert.False(t, seen)
	seen, err = svc.WasProcessed(context.Background(), "meta1", account.Pubkey)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestLoopDropsEventsForUnknownAccounts(t *testing.T) {
	svc := newTestService(t, nil)
	stop := startLoop(t, svc)
	defer stop()

	// logout race: subscription still delivering after the account left
	ev := testEvent("meta1", common.KindProfileMetadata, "79be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798", 100, `{"name":"alice"}`, nil)
	require.NoError(t, svc.Queue.EnqueueEvent(ev, "79be667ef9dcbbac_user_data"))

	assert.Eventually(t, func() bool {
		return svc.Queue.Depth() == 0
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, countRows(t, svc, (*models.ProcessedEvent)(nil)))
}

func TestLoopDrainsBufferedItemsOnShutdown(t *testing.T) {
	svc := newTestService(t, nil)
	account := registerTestAccount(t, svc)

	// buffer work before the loop ever runs, then hand it an already
	// canceled context: everything buffered must still be processed
	subID := service.SubscriptionID(account.Pubkey, common.StreamKindUserData)
	for i := 0; i < 3; i++ {
		ev := testEvent(fmt.Sprintf("meta%d", i), common.KindProfileMetadata,
			fmt.Sprintf("%064d", i), int64(100+i), `{"name":"n"}`, nil)
		require.NoError(t, svc.Queue.EnqueueEvent(ev, subID))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, svc.StartProcessingLoop(ctx))

	assert.Equal(t, 3, countRows(t, svc, (*models.ProcessedEvent)(nil)))
	assert.Equal(t, 3, countRows(t, svc, (*models.Profile)(nil)))
	assert.Equal(t, service.LoopStopped, svc.LoopState())
}

func TestLoginLogoutThroughControlMessages(t *testing.T) {
	svc := newTestService(t, nil)
	stop := startLoop(t, svc)
	defer stop()
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, svc.Registry.Len())
	assert.Equal(t, account.Pubkey, svc.Registry.GetByFingerprint(account.Fingerprint()).Pubkey)

	// logging in again is a no-op for the row and keeps onboarding flags
	again, err := svc.LoginAccount(ctx, account.SecretKey)
	require.NoError(t, err)
	assert.Equal(t, account.Pubkey, again.Pubkey)
	assert.Equal(t, 1, svc.Registry.Len())

	require.NoError(t, svc.LogoutAccount(ctx, account.Pubkey))
	assert.Equal(t, 0, svc.Registry.Len())

	// the row and its history survive a logout
	found, err := svc.FindAccount(ctx, account.Pubkey)
	require.NoError(t, err)
	assert.Equal(t, account.Pubkey, found.Pubkey)
}

func TestDeleteAccountRemovesOwnedRows(t *testing.T) {
	svc := newTestService(t, nil)
	stop := startLoop(t, svc)
	defer stop()
	ctx := context.Background()

	account, err := svc.CreateAccount(ctx)
	require.NoError(t, err)

	ev := testEvent("meta1", common.KindProfileMetadata, account.Pubkey, 100, `{"name":"alice"}`, nil)
	require.NoError(t, svc.ProcessEventForAccount(ctx, ev, account))
	svc.NotifyError(ctx, account.Pubkey, 445, "test")

	require.NoError(t, svc.DeleteAccount(ctx, account.Pubkey))

	assert.Equal(t, 0, svc.Registry.Len())
	assert.Equal(t, 0, countRows(t, svc, (*models.ProcessedEvent)(nil)))
	assert.Equal(t, 0, countRows(t, svc, (*models.Profile)(nil)))
	assert.Equal(t, 0, countRows(t, svc, (*models.Notification)(nil)))

	_, err = svc.FindAccount(ctx, account.Pubkey)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestRestoreAccountsRegistersPersistedAccounts(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		secretKey := nostr.GeneratePrivateKey()
		pubkey, err := nostr.GetPublicKey(secretKey)
		require.NoError(t, err)
		_, err = svc.DB.NewInsert().Model(&models.Account{Pubkey: pubkey, SecretKey: secretKey}).Exec(ctx)
		require.NoError(t, err)
	}

	accounts, err := svc.RestoreAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)

	stop := startLoop(t, svc)
	defer stop()
	assert.Eventually(t, func() bool {
		return svc.Registry.Len() == 2
	}, 5*time.Second, 10*time.Millisecond)
}
