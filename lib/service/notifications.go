package service

import (
	"context"
	"encoding/json"
	"io"

	"github.com/getHush/hushhub.go/common"
	"github.com/getHush/hushhub.go/db/models"
)

// PubsubTopicAll receives every notification in addition to the per-account
// topic. The rabbitmq publisher listens here.
const PubsubTopicAll = "all"

// NotifyError records a persistent, user-visible processing failure for one
// account. Failures here are swallowed after logging: notifications must
// never take down the event that triggered them.
func (svc *HushhubService) NotifyError(ctx context.Context, accountPubkey string, eventKind int64, message string) {
	notification := models.Notification{
		AccountPubkey: accountPubkey,
		Level:         common.NotificationLevelError,
		EventKind:     eventKind,
		Message:       message,
	}
	if _, err := svc.DB.NewInsert().Model(&notification).Exec(ctx); err != nil {
		svc.Logger.Errorf("Could not persist error notification for account %s: %v", accountPubkey, err)
		return
	}
	svc.NotificationPubSub.Publish(accountPubkey, notification)
	svc.NotificationPubSub.Publish(PubsubTopicAll, notification)
}

// NotifyMessage announces a freshly decoded group message.
func (svc *HushhubService) NotifyMessage(ctx context.Context, accountPubkey string, message *models.GroupMessage) {
	notification := models.Notification{
		AccountPubkey:  accountPubkey,
		Level:          common.NotificationLevelMessage,
		EventKind:      message.Kind,
		Message:        message.Content,
		GroupMessageID: message.ID,
	}
	if _, err := svc.DB.NewInsert().Model(&notification).Exec(ctx); err != nil {
		svc.Logger.Errorf("Could not persist message notification for account %s: %v", accountPubkey, err)
		return
	}
	svc.NotificationPubSub.Publish(accountPubkey, notification)
	svc.NotificationPubSub.Publish(PubsubTopicAll, notification)
}

// EncodeNotificationWithFingerprint writes the rabbitmq payload for a
// notification. The account fingerprint is included so consumers do not need
// to parse the routing key.
func (svc *HushhubService) EncodeNotificationWithFingerprint(ctx context.Context, w io.Writer, notification models.Notification) error {
	payload := struct {
		models.Notification
		Fingerprint string `json:"fingerprint"`
	}{notification, common.Fingerprint(notification.AccountPubkey)}
	return json.NewEncoder(w).Encode(payload)
}

// SubscribeAllNotifications returns a channel carrying every notification
// published by the handlers. Used by the rabbitmq publisher. The buffer
// absorbs bursts between the publisher's reads; publishes are non-blocking,
// so an unread channel overflows instead of stalling the processing loop.
func (svc *HushhubService) SubscribeAllNotifications() (chan models.Notification, error) {
	ch := make(chan models.Notification, svc.Config.QueueBufferSize)
	svc.NotificationPubSub.Subscribe(PubsubTopicAll, ch)
	return ch, nil
}
