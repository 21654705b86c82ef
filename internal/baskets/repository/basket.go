package repository

import (
	"context"

	"sharebasket/pkg/model"
)

// BasketRepository stores baskets and their participant sets. Codes passed in
// are already normalized.
type BasketRepository interface {
	// Create inserts b and any participants it already lists. It returns
	// ErrCodeTaken when b.Code exists and sets b.CreatedAt on success.
	Create(ctx context.Context, b *model.Basket) error
	FindByCode(ctx context.Context, code string) (*model.Basket, error)
	// AddParticipant is a no-op when name already joined.
	AddParticipant(ctx context.Context, code, name string) error
}
