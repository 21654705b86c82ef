package repository

import (
	"context"

	"sharebasket/pkg/model"
)

// ItemRepository is the ledger of a basket. Ids are issued per basket from a
// counter that never goes back, so a deleted id is never reused.
type ItemRepository interface {
	// Append assigns item.ID and item.CreatedAt and stores the item.
	Append(ctx context.Context, code string, item *model.Item) error
	Delete(ctx context.Context, code string, id int64) error
	// List returns live items in id order.
	List(ctx context.Context, code string) ([]*model.Item, error)
}
