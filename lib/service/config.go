package service

type Config struct {
	DatabaseUri             string   `envconfig:"DATABASE_URI" required:"true"`
	DatabaseMaxConns        int      `envconfig:"DATABASE_MAX_CONNS" default:"10"`
	DatabaseMaxIdleConns    int      `envconfig:"DATABASE_MAX_IDLE_CONNS" default:"5"`
	DatabaseConnMaxLifetime int      `envconfig:"DATABASE_CONN_MAX_LIFETIME" default:"1800"` // 30 minutes
	DatabaseTimeout         int      `envconfig:"DATABASE_TIMEOUT" default:"60"`             // 60 seconds
	SentryDSN               string   `envconfig:"SENTRY_DSN"`
	SentryTracesSampleRate  float64  `envconfig:"SENTRY_TRACES_SAMPLE_RATE"`
	LogFilePath             string   `envconfig:"LOG_FILE_PATH"`
	Host                    string   `envconfig:"HOST" default:"localhost"` // status API bind address
	Port                    int      `envconfig:"PORT" default:"3000"`
	DefaultRateLimit        int      `envconfig:"DEFAULT_RATE_LIMIT" default:"10"`
	QueueBufferSize         int      `envconfig:"QUEUE_BUFFER_SIZE" default:"1024"`
	QueueEnqueueTimeout     int      `envconfig:"QUEUE_ENQUEUE_TIMEOUT" default:"5"`   // in seconds
	ShutdownGraceSeconds    int      `envconfig:"SHUTDOWN_GRACE_SECONDS" default:"10"` // drain budget on shutdown
	DefaultRelays           []string `envconfig:"DEFAULT_RELAYS" default:"wss://relay.damus.io,wss://nos.lol"`
	RabbitMQUri             string   `envconfig:"RABBITMQ_URI"`
	RabbitMQMessageExchange string   `envconfig:"RABBITMQ_MESSAGE_EXCHANGE" default:"hushhub_message"`
}
