// Package storage opens the configured backend and hands out its
// repositories.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	basketsrepo "sharebasket/internal/baskets/repository"
	itemsrepo "sharebasket/internal/items/repository"
	mongomigration "sharebasket/internal/migrations/mongo"
	"sharebasket/pkg/config"
	mongodb "sharebasket/pkg/db/mongo"
	"sharebasket/pkg/db/sqlite"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Store struct {
	Driver  string
	Baskets basketsrepo.BasketRepository
	Items   itemsrepo.ItemRepository

	mongoClient *mongo.Client
	mongoDB     *mongo.Database
	sqlDB       *sql.DB
}

func Open(ctx context.Context, cfg *config.Config) (*Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMongo:
		client, err := mongodb.Connect(ctx, cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
		if err != nil {
			return nil, err
		}
		db := client.Database(cfg.MongoDatabaseName)
		return &Store{
			Driver:      config.StoreMongo,
			Baskets:     basketsrepo.NewMongoBasketRepository(cfg, db),
			Items:       itemsrepo.NewMongoItemRepository(cfg, client, db),
			mongoClient: client,
			mongoDB:     db,
		}, nil

	case config.StoreSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		cfg.Log.Info("Opened SQLite database", "path", cfg.SQLitePath)
		return &Store{
			Driver:  config.StoreSQLite,
			Baskets: basketsrepo.NewSQLiteBasketRepository(cfg, db),
			Items:   itemsrepo.NewSQLiteItemRepository(cfg, db),
			sqlDB:   db,
		}, nil
	}

	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// Migrate brings the schema up to date. SQLite migrates on open, so this
// only has work to do for Mongo.
func (s *Store) Migrate(ctx context.Context, cfg *config.Config) error {
	if s.mongoDB == nil {
		return nil
	}
	return mongomigration.RunMigration(ctx, s.mongoDB, cfg.Log)
}

func (s *Store) Ping(ctx context.Context) error {
	if s.mongoClient != nil {
		return s.mongoClient.Ping(ctx, readpref.Primary())
	}
	return s.sqlDB.PingContext(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	if s.mongoClient != nil {
		return s.mongoClient.Disconnect(ctx)
	}
	return s.sqlDB.Close()
}
