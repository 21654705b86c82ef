package main

import (
	"context"

	baskethandler "sharebasket/internal/baskets/handler"
	basketservice "sharebasket/internal/baskets/service"
	basketvalidator "sharebasket/internal/baskets/validator"
	"sharebasket/internal/health"
	itemhandler "sharebasket/internal/items/handler"
	itemservice "sharebasket/internal/items/service"
	itemvalidator "sharebasket/internal/items/validator"
	"sharebasket/internal/storage"
	"sharebasket/pkg/app"
	"sharebasket/pkg/basketcode"
	"sharebasket/pkg/config"
	"sharebasket/pkg/events"
	"sharebasket/pkg/kafka"
	kafkamiddleware "sharebasket/pkg/kafka/middleware"
	"sharebasket/pkg/keylock"
	"sharebasket/pkg/metrics"
)

const ServiceName = "baskets"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Baskets service")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
	store, err := storage.Open(ctx, cfg)
	cancel()
	if err != nil {
		cfg.Log.Fatal("Failed to open store", "driver", cfg.StoreDriver, "error", err)
	}

	m := metrics.New()
	publisher := m.Publisher(initPublisher(cfg, m))

	baskets, items := initServices(cfg, store, publisher)

	serverApp := app.NewApplication(cfg, m)
	serverApp.SetApp(
		health.NewHealthHandler(store, store.Driver, cfg.Log),
		baskethandler.NewBasketHandler(baskets, cfg.Log),
		itemhandler.NewItemHandler(items, cfg.Log),
	)
	serverApp.OnShutdown(store.Close)
	serverApp.OnShutdown(func(context.Context) error {
		return publisher.Close()
	})
	serverApp.Run()
}

// initPublisher returns a Kafka backed publisher when brokers are configured,
// otherwise events are dropped.
func initPublisher(cfg *config.Config, m *metrics.Metrics) events.Publisher {
	if cfg.Kafka == nil {
		cfg.Log.Info("Kafka not configured, basket events are disabled")
		return events.NopPublisher{}
	}

	producer, err := kafka.NewProducer(cfg.Kafka, cfg.EventsTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if cfg.Kafka.EnableMiddleware {
		producer.Use(kafkamiddleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafkamiddleware.MetricsProducerMiddleware(m.Registerer()))
	}

	cfg.Log.Info("Publishing basket events", "topic", producer.Topic())
	return events.NewKafkaPublisher(producer)
}

func initServices(cfg *config.Config, store *storage.Store, publisher events.Publisher) (basketservice.BasketService, itemservice.ItemService) {
	generate, err := basketcode.NewGenerator(cfg.CodeLength)
	if err != nil {
		cfg.Log.Fatal("Invalid code length", "error", err)
	}

	// one lock set for both services so joins, adds and deletes on a basket
	// are serialized together
	locks := keylock.New()

	baskets := basketservice.NewBasketService(
		store.Baskets,
		basketvalidator.NewBasketValidator(),
		locks,
		publisher,
		generate,
		cfg,
	)
	items := itemservice.NewItemService(
		store.Items,
		itemvalidator.NewItemValidator(),
		locks,
		publisher,
		cfg,
	)

	cfg.Log.Info("Services initialized", "driver", store.Driver)
	return baskets, items
}
