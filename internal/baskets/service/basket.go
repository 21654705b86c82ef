package service

import (
	"context"
	"errors"

	basketserrors "sharebasket/internal/baskets/errors"
	"sharebasket/internal/baskets/repository"
	"sharebasket/internal/baskets/validator"
	"sharebasket/pkg/basketcode"
	"sharebasket/pkg/config"
	apperrors "sharebasket/pkg/errors"
	"sharebasket/pkg/events"
	"sharebasket/pkg/keylock"
	"sharebasket/pkg/middleware"
	"sharebasket/pkg/model"
	"sharebasket/pkg/sanitizer"
)

type BasketService interface {
	// Create allocates a fresh code. A non-empty creator name joins the
	// basket in the same write.
	Create(ctx context.Context, req *model.CreateBasketRequest) (*model.Basket, error)
	Join(ctx context.Context, code string, req *model.JoinBasketRequest) (string, error)
	Get(ctx context.Context, code string) (*model.Basket, error)
}

type basketService struct {
	repo      repository.BasketRepository
	validator *validator.BasketValidator
	locks     *keylock.Locker
	publisher events.Publisher
	generate  basketcode.Generator
	cfg       *config.Config
}

func NewBasketService(
	repo repository.BasketRepository,
	validator *validator.BasketValidator,
	locks *keylock.Locker,
	publisher events.Publisher,
	generate basketcode.Generator,
	cfg *config.Config,
) BasketService {
	return &basketService{
		repo:      repo,
		validator: validator,
		locks:     locks,
		publisher: publisher,
		generate:  generate,
		cfg:       cfg,
	}
}

func (s *basketService) Create(ctx context.Context, req *model.CreateBasketRequest) (*model.Basket, error) {
	if req == nil {
		req = &model.CreateBasketRequest{}
	}
	req.Name = sanitizer.SanitizeParticipant(req.Name)

	if err := s.validator.ValidateCreate(req); err != nil {
		s.cfg.Log.Warn("Basket create validation failed", "error", err)
		return nil, validationError("Basket validation failed", err)
	}

	attempts := s.cfg.CodeMaxAttempts
	var lastErr error
	for i := 0; i < attempts; i++ {
		code, err := s.generate()
		if err != nil {
			return nil, apperrors.Internal("Failed to generate basket code", err)
		}

		basket := &model.Basket{Code: code}
		if req.Name != "" {
			basket.Participants = []string{req.Name}
		}

		err = s.repo.Create(ctx, basket)
		if err == nil {
			s.cfg.Log.Info("Basket created successfully",
				"basket_code", basket.Code,
				"creator", req.Name,
				"attempt", i+1,
			)
			s.publish(ctx, events.BasketCreated(basket.Code, req.Name))
			return basket, nil
		}

		if !errors.Is(err, basketserrors.ErrCodeTaken) {
			s.cfg.Log.Error("Failed to create basket", "error", err)
			return nil, apperrors.Store("Failed to create basket", err)
		}

		s.cfg.Log.Debug("Basket code collision, retrying", "basket_code", code, "attempt", i+1)
		lastErr = err
	}

	s.cfg.Log.Error("Basket code space exhausted",
		"attempts", attempts,
		"code_length", s.cfg.CodeLength,
	)
	return nil, apperrors.CodesExhausted(attempts, errors.Join(basketserrors.ErrCodeSpaceExhausted, lastErr))
}

func (s *basketService) Join(ctx context.Context, code string, req *model.JoinBasketRequest) (string, error) {
	code = basketcode.Normalize(code)
	if code == "" {
		return "", apperrors.InvalidInput("Basket code cannot be empty")
	}

	req.Name = sanitizer.SanitizeParticipant(req.Name)
	if err := s.validator.ValidateJoin(req); err != nil {
		s.cfg.Log.Warn("Join validation failed", "basket_code", code, "error", err)
		return "", validationError("Join validation failed", err)
	}

	unlock, err := s.locks.Lock(ctx, code)
	if err != nil {
		return "", apperrors.Timeout("Timed out waiting for basket")
	}
	err = s.repo.AddParticipant(ctx, code, req.Name)
	unlock()
	if err != nil {
		if errors.Is(err, basketserrors.ErrNotFound) {
			return "", apperrors.NotFoundWithID("Basket", code)
		}
		s.cfg.Log.Error("Failed to join basket",
			"basket_code", code,
			"name", req.Name,
			"error", err,
		)
		return "", apperrors.Store("Failed to join basket", err)
	}

	s.cfg.Log.Info("Participant joined basket",
		"basket_code", code,
		"name", req.Name,
	)
	s.publish(ctx, events.ParticipantJoined(code, req.Name))
	return code, nil
}

func (s *basketService) Get(ctx context.Context, code string) (*model.Basket, error) {
	code = basketcode.Normalize(code)
	if code == "" {
		return nil, apperrors.InvalidInput("Basket code cannot be empty")
	}

	basket, err := s.repo.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, basketserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Basket", code)
		}
		s.cfg.Log.Error("Failed to get basket", "basket_code", code, "error", err)
		return nil, apperrors.Store("Failed to retrieve basket", err)
	}
	return basket, nil
}

// publish is best effort: the mutation already committed.
func (s *basketService) publish(ctx context.Context, e events.Event) {
	e.RequestID = middleware.RequestIDFrom(ctx)
	if err := s.publisher.Publish(context.WithoutCancel(ctx), e); err != nil {
		s.cfg.Log.Warn("Failed to publish basket event",
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
