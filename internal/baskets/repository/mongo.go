package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	basketserrors "sharebasket/internal/baskets/errors"
	"sharebasket/pkg/config"
	mongodb "sharebasket/pkg/db/mongo"
	"sharebasket/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CollectionName = "Baskets"
)

// basketDocument keeps the code as _id so the primary index enforces
// uniqueness. last_item_id is owned by the item repository.
type basketDocument struct {
	Code         string    `bson:"_id"`
	Participants []string  `bson:"participants"`
	CreatedAt    time.Time `bson:"created_at"`
	LastItemID   int64     `bson:"last_item_id"`
}

type mongoBasketRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoBasketRepository(cfg *config.Config, db *mongo.Database) BasketRepository {
	return &mongoBasketRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoBasketRepository) Create(ctx context.Context, b *model.Basket) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	b.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	if b.Participants == nil {
		b.Participants = []string{}
	}

	doc := basketDocument{
		Code:         b.Code,
		Participants: b.Participants,
		CreatedAt:    b.CreatedAt,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", basketserrors.ErrCodeTaken, b.Code)
		}
		return fmt.Errorf("failed to create basket: %w", err)
	}
	return nil
}

func (r *mongoBasketRepository) FindByCode(ctx context.Context, code string) (*model.Basket, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var doc basketDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": code}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", basketserrors.ErrNotFound, code)
		}
		return nil, fmt.Errorf("failed to find basket: %w", err)
	}

	if doc.Participants == nil {
		doc.Participants = []string{}
	}
	return &model.Basket{
		Code:         doc.Code,
		Participants: doc.Participants,
		CreatedAt:    doc.CreatedAt,
	}, nil
}

func (r *mongoBasketRepository) AddParticipant(ctx context.Context, code, name string) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	// $addToSet keeps re-joins idempotent and preserves first-join order.
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": code},
		bson.M{"$addToSet": bson.M{"participants": name}},
	)
	if err != nil {
		return fmt.Errorf("failed to add participant: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", basketserrors.ErrNotFound, code)
	}
	return nil
}
