package config

import "time"

const (
	DefaultPort      = "8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultStoreDriver       = StoreMongo
	DefaultMongoURI          = "mongodb://localhost:27017/?replicaSet=rs0"
	DefaultMongoDatabaseName = "sharebasket"
	DefaultMongoConnTimeout  = 10 * time.Second
	DefaultSQLitePath        = "data/sharebasket.db"

	DefaultCodeLength      = 6
	DefaultCodeMaxAttempts = 16

	DefaultRateLimitRequests = 20 // per second, per client
	DefaultRateLimitBurst    = 40

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 10 * time.Minute
	DefaultMaxRequestSize = 64 * 1024 // 64KB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultEventsTopic = "basket-events"
)
