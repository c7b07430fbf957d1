package service

import (
	"sync"
	"time"

	"github.com/uptrace/bun"
	"github.com/ziflex/lecho/v3"

	"github.com/getHush/hushhub.go/lib/mls"
	"github.com/getHush/hushhub.go/rabbitmq"
)

type HushhubService struct {
	Config   *Config
	DB       *bun.DB
	Logger   *lecho.Logger
	MLS      mls.Engine
	Queue    *IngestionQueue
	Registry *AccountRegistry

	NotificationPubSub *Pubsub
	RabbitMQClient     rabbitmq.Client

	loopState loopStateVar

	relayMu     sync.RWMutex
	relayStates map[string]*RelayState
}

func NewService(config *Config, db *bun.DB, logger *lecho.Logger, engine mls.Engine) *HushhubService {
	return &HushhubService{
		Config:             config,
		DB:                 db,
		Logger:             logger,
		MLS:                engine,
		Queue:              NewIngestionQueue(config.QueueBufferSize, time.Duration(config.QueueEnqueueTimeout)*time.Second, logger),
		Registry:           NewAccountRegistry(),
		NotificationPubSub: NewPubsub(),
		relayStates:        make(map[string]*RelayState),
	}
}
