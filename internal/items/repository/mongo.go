package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	basketsrepo "sharebasket/internal/baskets/repository"
	itemserrors "sharebasket/internal/items/errors"
	"sharebasket/pkg/config"
	mongodb "sharebasket/pkg/db/mongo"
	"sharebasket/pkg/model"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "Items"
)

type itemDocument struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty"`
	BasketCode string               `bson:"basket_code"`
	ItemID     int64                `bson:"item_id"`
	Product    string               `bson:"product"`
	Price      primitive.Decimal128 `bson:"price"`
	Quantity   int                  `bson:"quantity"`
	AddedBy    string               `bson:"added_by"`
	CreatedAt  time.Time            `bson:"created_at"`
}

func (d *itemDocument) toModel() (*model.Item, error) {
	price, err := decimal.NewFromString(d.Price.String())
	if err != nil {
		return nil, fmt.Errorf("corrupt price %q for item %d: %w", d.Price.String(), d.ItemID, err)
	}
	return &model.Item{
		ID:         d.ItemID,
		BasketCode: d.BasketCode,
		Product:    d.Product,
		Price:      price,
		Quantity:   d.Quantity,
		AddedBy:    d.AddedBy,
		CreatedAt:  d.CreatedAt,
	}, nil
}

var _ ItemRepository = (*mongoItemRepository)(nil)

type mongoItemRepository struct {
	cfg     *config.Config
	client  *mongo.Client
	baskets *mongo.Collection
	items   *mongo.Collection
}

func NewMongoItemRepository(cfg *config.Config, client *mongo.Client, db *mongo.Database) ItemRepository {
	return &mongoItemRepository{
		cfg:     cfg,
		client:  client,
		baskets: db.Collection(basketsrepo.CollectionName),
		items:   db.Collection(CollectionName),
	}
}

func (r *mongoItemRepository) Append(ctx context.Context, code string, item *model.Item) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	price, err := primitive.ParseDecimal128(item.Price.String())
	if err != nil {
		return fmt.Errorf("failed to encode price: %w", err)
	}
	createdAt := time.Now().UTC().Truncate(time.Millisecond)

	var id int64
	err = mongodb.Atomic(ctx, r.client, func(sessCtx mongo.SessionContext) error {
		next, err := mongodb.NextID(sessCtx, r.baskets, bson.M{"_id": code}, "last_item_id")
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return fmt.Errorf("%w: %s", itemserrors.ErrBasketNotFound, code)
			}
			return fmt.Errorf("failed to allocate item id: %w", err)
		}

		doc := itemDocument{
			BasketCode: code,
			ItemID:     next,
			Product:    item.Product,
			Price:      price,
			Quantity:   item.Quantity,
			AddedBy:    item.AddedBy,
			CreatedAt:  createdAt,
		}
		if _, err := r.items.InsertOne(sessCtx, doc); err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
		id = next
		return nil
	})
	if err != nil {
		return err
	}

	item.ID = id
	item.BasketCode = code
	item.CreatedAt = createdAt
	return nil
}

func (r *mongoItemRepository) Delete(ctx context.Context, code string, id int64) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if err := r.basketExists(ctx, code); err != nil {
		return err
	}

	res, err := r.items.DeleteOne(ctx, bson.M{"basket_code": code, "item_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %d", itemserrors.ErrItemNotFound, id)
	}
	return nil
}

func (r *mongoItemRepository) List(ctx context.Context, code string) ([]*model.Item, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	if err := r.basketExists(ctx, code); err != nil {
		return nil, err
	}

	cursor, err := r.items.Find(ctx,
		bson.M{"basket_code": code},
		options.Find().SetSort(bson.D{{Key: "item_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []itemDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}

	items := make([]*model.Item, 0, len(docs))
	for i := range docs {
		item, err := docs[i].toModel()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (r *mongoItemRepository) basketExists(ctx context.Context, code string) error {
	n, err := r.baskets.CountDocuments(ctx, bson.M{"_id": code}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("failed to check basket existence: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", itemserrors.ErrBasketNotFound, code)
	}
	return nil
}
