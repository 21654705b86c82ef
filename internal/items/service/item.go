package service

import (
	"context"
	"errors"

	itemserrors "sharebasket/internal/items/errors"
	"sharebasket/internal/items/repository"
	"sharebasket/internal/items/validator"
	"sharebasket/pkg/aggregate"
	"sharebasket/pkg/basketcode"
	"sharebasket/pkg/config"
	apperrors "sharebasket/pkg/errors"
	"sharebasket/pkg/events"
	"sharebasket/pkg/keylock"
	"sharebasket/pkg/middleware"
	"sharebasket/pkg/model"
	"sharebasket/pkg/sanitizer"
)

type ItemService interface {
	Add(ctx context.Context, code string, req *model.NewItem) (*model.Item, error)
	// Delete is not idempotent: a second delete of the same id is NotFound.
	Delete(ctx context.Context, code string, id int64) error
	List(ctx context.Context, code string) (*model.ItemList, error)
	Totals(ctx context.Context, code, participant string) (*model.Summary, error)
}

type itemService struct {
	repo      repository.ItemRepository
	validator *validator.ItemValidator
	locks     *keylock.Locker
	publisher events.Publisher
	cfg       *config.Config
}

func NewItemService(
	repo repository.ItemRepository,
	validator *validator.ItemValidator,
	locks *keylock.Locker,
	publisher events.Publisher,
	cfg *config.Config,
) ItemService {
	return &itemService{
		repo:      repo,
		validator: validator,
		locks:     locks,
		publisher: publisher,
		cfg:       cfg,
	}
}

func (s *itemService) Add(ctx context.Context, code string, req *model.NewItem) (*model.Item, error) {
	code = basketcode.Normalize(code)
	if code == "" {
		return nil, apperrors.InvalidInput("Basket code cannot be empty")
	}
	if req == nil {
		return nil, apperrors.InvalidInput("Item is required")
	}

	req.Product = sanitizer.SanitizeProduct(req.Product)
	req.AddedBy = sanitizer.SanitizeParticipant(req.AddedBy)
	if err := s.validator.ValidateNew(req); err != nil {
		s.cfg.Log.Warn("Item validation failed", "basket_code", code, "error", err)
		return nil, validationError("Item validation failed", err)
	}

	unlock, err := s.locks.Lock(ctx, code)
	if err != nil {
		return nil, apperrors.Timeout("Timed out waiting for basket")
	}
	item := &model.Item{
		Product:  req.Product,
		Price:    *req.Price,
		Quantity: req.Quantity,
		AddedBy:  req.AddedBy,
	}
	// the lock covers only the store write; publishing happens after release
	err = s.repo.Append(ctx, code, item)
	unlock()
	if err != nil {
		if errors.Is(err, itemserrors.ErrBasketNotFound) {
			return nil, apperrors.NotFoundWithID("Basket", code)
		}
		s.cfg.Log.Error("Failed to add item",
			"basket_code", code,
			"product", req.Product,
			"error", err,
		)
		return nil, apperrors.Store("Failed to add item", err)
	}

	s.cfg.Log.Info("Item added",
		"basket_code", code,
		"item_id", item.ID,
		"product", item.Product,
		"added_by", item.AddedBy,
	)
	s.publish(ctx, events.ItemAdded(item))
	return item, nil
}

func (s *itemService) Delete(ctx context.Context, code string, id int64) error {
	code = basketcode.Normalize(code)
	if code == "" {
		return apperrors.InvalidInput("Basket code cannot be empty")
	}
	if id < 1 {
		return apperrors.InvalidInput("Item id must be positive")
	}

	unlock, err := s.locks.Lock(ctx, code)
	if err != nil {
		return apperrors.Timeout("Timed out waiting for basket")
	}
	err = s.repo.Delete(ctx, code, id)
	unlock()
	if err != nil {
		switch {
		case errors.Is(err, itemserrors.ErrBasketNotFound):
			return apperrors.NotFoundWithID("Basket", code)
		case errors.Is(err, itemserrors.ErrItemNotFound):
			return apperrors.NotFound("Item").WithDetails(map[string]any{
				"basket_code": code,
				"id":          id,
			})
		}
		s.cfg.Log.Error("Failed to delete item",
			"basket_code", code,
			"item_id", id,
			"error", err,
		)
		return apperrors.Store("Failed to delete item", err)
	}

	s.cfg.Log.Info("Item deleted", "basket_code", code, "item_id", id)
	s.publish(ctx, events.ItemDeleted(code, id))
	return nil
}

func (s *itemService) List(ctx context.Context, code string) (*model.ItemList, error) {
	code, items, err := s.list(ctx, code)
	if err != nil {
		return nil, err
	}
	return &model.ItemList{Code: code, Items: items}, nil
}

func (s *itemService) Totals(ctx context.Context, code, participant string) (*model.Summary, error) {
	code, items, err := s.list(ctx, code)
	if err != nil {
		return nil, err
	}
	return aggregate.Summarize(code, items, sanitizer.SanitizeParticipant(participant)), nil
}

func (s *itemService) list(ctx context.Context, code string) (string, []*model.Item, error) {
	code = basketcode.Normalize(code)
	if code == "" {
		return "", nil, apperrors.InvalidInput("Basket code cannot be empty")
	}

	items, err := s.repo.List(ctx, code)
	if err != nil {
		if errors.Is(err, itemserrors.ErrBasketNotFound) {
			return "", nil, apperrors.NotFoundWithID("Basket", code)
		}
		s.cfg.Log.Error("Failed to list items", "basket_code", code, "error", err)
		return "", nil, apperrors.Store("Failed to retrieve items", err)
	}
	return code, items, nil
}

func (s *itemService) publish(ctx context.Context, e events.Event) {
	e.RequestID = middleware.RequestIDFrom(ctx)
	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.cfg.Log.Warn("Failed to publish item event",
			"type", e.Type,
			"basket_code", e.BasketCode,
			"error", err,
		)
	}
}

func validationError(msg string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(msg, map[string]any{"fields": []validator.ValidationError(verrs)})
	}
	return apperrors.Validation(msg, map[string]any{"error": err.Error()})
}
