package rabbitmq

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/ziflex/lecho/v3"

	"github.com/getHush/hushhub.go/common"
	"github.com/getHush/hushhub.go/db/models"
)

// bufPool is a classic buffer pool pattern that allows more clever reuse of
// heap memory. Instead of allocating new memory every time we encode a
// notification we reuse buffers from this pool.
var bufPool = sync.Pool{
	New: func() interface{} { return new(bytes.Buffer) },
}

const contentTypeJSON = "application/json"

type (
	SubscribeToNotificationsFunc = func() (chan models.Notification, error)
	EncodeNotificationFunc       = func(ctx context.Context, w io.Writer, notification models.Notification) error
)

type Client interface {
	// StartPublishNotifications consumes the internal notification pubsub
	// and publishes every notification to the configured exchange.
	StartPublishNotifications(context.Context, SubscribeToNotificationsFunc, EncodeNotificationFunc) error
	// Close will close all connections to rabbitmq
	Close() error
}

type DefaultClient struct {
	conn *amqp.Connection

	// It is recommended that, when possible, publishers and consumers
	// use separate connections so that consumers are isolated from potential
	// flow control measures that may be applied to publishing connections.
	publishChannel *amqp.Channel

	logger *lecho.Logger

	notificationExchange string
}

type ClientOption = func(client *DefaultClient)

func WithNotificationExchange(exchange string) ClientOption {
	return func(client *DefaultClient) {
		client.notificationExchange = exchange
	}
}

func WithLogger(logger *lecho.Logger) ClientOption {
	return func(client *DefaultClient) {
		client.logger = logger
	}
}

// Dial sets up a connection to rabbitmq with a channel ready to publish
func Dial(uri string, options ...ClientOption) (Client, error) {
	conn, err := amqp.Dial(uri)
	if err != nil {
		return nil, err
	}

	publishChannel, err := conn.Channel()
	if err != nil {
		return nil, err
	}

	client := &DefaultClient{
		conn:           conn,
		publishChannel: publishChannel,

		logger: lecho.New(
			os.Stdout,
			lecho.WithLevel(log.DEBUG),
			lecho.WithTimestamp(),
		),

		notificationExchange: "hushhub_message",
	}

	for _, opt := range options {
		opt(client)
	}

	return client, nil
}

func (client *DefaultClient) Close() error { return client.conn.Close() }

func (client *DefaultClient) StartPublishNotifications(ctx context.Context, subscribe SubscribeToNotificationsFunc, encode EncodeNotificationFunc) error {
	err := client.publishChannel.ExchangeDeclare(
		client.notificationExchange,
		// topic exchanges let consumers bind per account fingerprint or
		// per notification level
		"topic",
		// Durable and Non-Auto-Deleted exchanges will survive server
		// restarts and remain declared when there are no remaining bindings.
		true,
		false,
		// Non-Internal exchanges accept direct publishing
		false,
		// Nowait: wait for a server response to check whether the exchange
		// was created successfully
		false,
		nil,
	)
	if err != nil {
		return err
	}

	client.logger.Infof("Starting rabbitmq notification publisher on exchange %s", client.notificationExchange)

	notifications, err := subscribe()
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case notification := <-notifications:
			client.publishNotification(ctx, notification, encode)
		}
	}
}

func (client *DefaultClient) publishNotification(ctx context.Context, notification models.Notification, encode EncodeNotificationFunc) {
	key := fmt.Sprintf("%s.%s.notification", common.Fingerprint(notification.AccountPubkey), notification.Level)

	payload := bufPool.Get().(*bytes.Buffer)
	payload.Reset()
	defer bufPool.Put(payload)

	if err := encode(ctx, payload, notification); err != nil {
		client.logger.Error(err)
		return
	}

	err := client.publishChannel.PublishWithContext(ctx,
		client.notificationExchange,
		key,
		false,
		false,
		amqp.Publishing{
			ContentType: contentTypeJSON,
			Body:        payload.Bytes(),
		},
	)
	if err != nil {
		client.logger.Error(err)
		return
	}
	client.logger.Debugf("Published notification %d to rabbitmq with key %s", notification.ID, key)
}
