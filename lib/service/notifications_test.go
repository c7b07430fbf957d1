package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getHush/hushhub.go/common"
	"github.com/getHush/hushhub.go/db/models"
)

func TestNotifyErrorPersistsAndPublishes(t *testing.T) {
	svc := newTestService(t, nil)
	account := registerTestAccount(t, svc)
	ctx := context.Background()

	all, err := svc.SubscribeAllNotifications()
	require.NoError(t, err)

	svc.NotifyError(ctx, account.Pubkey, common.KindMLSGroupMessage, "decrypt failed")

	assert.Equal(t, 1, countRows(t, svc, (*models.Notification)(nil)))
	notification := <-all
	assert.Equal(t, account.Pubkey, notification.AccountPubkey)
	assert.Equal(t, common.NotificationLevelError, notification.Level)
}

func TestNotifyDoesNotBlockWithoutConsumer(t *testing.T) {
	svc := newTestService(t, nil)
	account := registerTestAccount(t, svc)
	ctx := context.Background()

	// the rabbitmq publisher exited on shutdown but its subscription is
	// still registered: handlers firing notifications during the drain must
	// not hang on it, even once the channel buffer is full
	all, err := svc.SubscribeAllNotifications()
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(all)+4; i++ {
			svc.NotifyError(ctx, account.Pubkey, common.KindMLSGroupMessage, "decrypt failed")
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("notifications blocked with no consumer, the drain would hang")
	}
	assert.Equal(t, cap(all)+4, countRows(t, svc, (*models.Notification)(nil)))
}
