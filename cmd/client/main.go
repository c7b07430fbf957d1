package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/uptrace/bun/migrate"

	"github.com/getHush/hushhub.go/db"
	"github.com/getHush/hushhub.go/db/migrations"
	"github.com/getHush/hushhub.go/lib/logging"
	"github.com/getHush/hushhub.go/lib/mls"
	"github.com/getHush/hushhub.go/lib/relaypool"
	"github.com/getHush/hushhub.go/lib/service"
	"github.com/getHush/hushhub.go/lib/transport"
	"github.com/getHush/hushhub.go/rabbitmq"
)

func main() {

	c := &service.Config{}

	// Load configuration from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configured log file
	logger := logging.Logger(c.LogFilePath)

	// Open a DB connection based on the configured DATABASE_URI
	dbConn, err := db.Open(c)
	if err != nil {
		logger.Fatalf("Error initializing db connection: %v", err)
	}

	// Migrate the DB
	startupCtx := context.Background()
	migrator := migrate.NewMigrator(dbConn, migrations.Migrations)
	err = migrator.Init(startupCtx)
	if err != nil {
		logger.Fatalf("Error initializing db migrator: %v", err)
	}
	_, err = migrator.Migrate(startupCtx)
	if err != nil {
		logger.Fatalf("Error migrating database: %v", err)
	}

	// Setup exception tracking with Sentry if configured
	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
	}

	svc := service.NewService(c, dbConn, logger, mls.NewEnvelopeEngine())

	// If no RABBITMQ_URI was provided we will not attempt to create a client.
	// Notifications stay local in this case.
	if c.RabbitMQUri != "" {
		rabbitmqClient, err := rabbitmq.Dial(c.RabbitMQUri,
			rabbitmq.WithLogger(logger),
			rabbitmq.WithNotificationExchange(c.RabbitMQMessageExchange),
		)
		if err != nil {
			logger.Fatal(err)
		}

		// close the connection gently at the end of the runtime
		defer rabbitmqClient.Close()
		svc.RabbitMQClient = rabbitmqClient
	}

	//init echo server
	e := transport.InitEcho(c, logger)
	logMw := transport.CreateLoggingMiddleware(logger)
	transport.RegisterEndpoints(svc, e, logMw)

	var backgroundWg sync.WaitGroup
	backGroundCtx, _ := signal.NotifyContext(context.Background(), os.Interrupt)

	// Run the single-consumer processing loop in the background
	backgroundWg.Add(1)
	go func() {
		err = svc.StartProcessingLoop(backGroundCtx)
		if err != nil {
			sentry.CaptureException(err)
			//we want to restart in case of an error here
			svc.Logger.Fatal(err)
		}
		svc.Logger.Info("Processing loop done")
		backgroundWg.Done()
	}()

	// Restore persisted accounts and open their relay subscriptions
	pool := relaypool.New(backGroundCtx, svc.Queue, logger)
	accounts, err := svc.RestoreAccounts(startupCtx)
	if err != nil {
		logger.Fatalf("Error restoring accounts: %v", err)
	}
	for _, account := range accounts {
		pool.SubscribeAccount(backGroundCtx, account, c.DefaultRelays)
	}
	followed, err := svc.FollowedPubkeys(startupCtx)
	if err != nil {
		logger.Fatalf("Error loading followed pubkeys: %v", err)
	}
	if len(followed) > 0 {
		pool.SubscribeGlobal(backGroundCtx, c.DefaultRelays, followed)
	}

	//Start rabbit publisher
	if svc.RabbitMQClient != nil {
		backgroundWg.Add(1)
		go func() {
			err = svc.RabbitMQClient.StartPublishNotifications(backGroundCtx,
				svc.SubscribeAllNotifications,
				svc.EncodeNotificationWithFingerprint,
			)
			if err != nil {
				svc.Logger.Error(err)
				sentry.CaptureException(err)
			}

			svc.Logger.Info("Rabbit notification publisher done")
			backgroundWg.Done()
		}()
	}

	// Start server
	go func() {
		if err := e.Start(fmt.Sprintf("%s:%v", c.Host, c.Port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-backGroundCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	//Wait for graceful shutdown of background routines
	backgroundWg.Wait()
	svc.Logger.Info("HushHub exiting gracefully. Goodbye.")
}
