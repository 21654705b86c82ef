package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	itemserrors "sharebasket/internal/items/errors"
	"sharebasket/pkg/config"
	"sharebasket/pkg/db/sqlite"
	"sharebasket/pkg/model"

	"github.com/shopspring/decimal"
)

var _ ItemRepository = (*sqliteItemRepository)(nil)

type sqliteItemRepository struct {
	cfg *config.Config
	db  *sql.DB
}

func NewSQLiteItemRepository(cfg *config.Config, db *sql.DB) ItemRepository {
	return &sqliteItemRepository{cfg: cfg, db: db}
}

func (r *sqliteItemRepository) Append(ctx context.Context, code string, item *model.Item) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	createdAt := time.Now().UTC().Truncate(time.Millisecond)

	var id int64
	err := sqlite.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`UPDATE baskets SET last_item_id = last_item_id + 1 WHERE code = ? RETURNING last_item_id`,
			code,
		).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", itemserrors.ErrBasketNotFound, code)
		}
		if err != nil {
			return fmt.Errorf("failed to allocate item id: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO items (basket_code, item_id, product, price, quantity, added_by, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			code, id, item.Product, item.Price.String(), item.Quantity, item.AddedBy, createdAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert item: %w", err)
		}
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

func (r *sqliteItemRepository) Delete(ctx context.Context, code string, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	return sqlite.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := basketExists(ctx, tx, code); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`DELETE FROM items WHERE basket_code = ? AND item_id = ?`, code, id,
		)
		if err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to delete item: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %d", itemserrors.ErrItemNotFound, id)
		}
		return nil
	})
}

func (r *sqliteItemRepository) List(ctx context.Context, code string) ([]*model.Item, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var items []*model.Item
	err := sqlite.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := basketExists(ctx, tx, code); err != nil {
			return err
		}

		rows, err := tx.QueryContext(ctx,
			`SELECT item_id, product, price, quantity, added_by, created_at
			 FROM items WHERE basket_code = ? ORDER BY item_id`,
			code,
		)
		if err != nil {
			return fmt.Errorf("failed to list items: %w", err)
		}
		defer rows.Close()

		items = make([]*model.Item, 0)
		for rows.Next() {
			var (
				item      = &model.Item{BasketCode: code}
				price     string
				createdAt int64
			)
			if err := rows.Scan(&item.ID, &item.Product, &price, &item.Quantity, &item.AddedBy, &createdAt); err != nil {
				return fmt.Errorf("failed to scan item: %w", err)
			}
			if item.Price, err = decimal.NewFromString(price); err != nil {
				return fmt.Errorf("corrupt price %q for item %d: %w", price, item.ID, err)
			}
			item.CreatedAt = time.UnixMilli(createdAt).UTC()
			items = append(items, item)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func basketExists(ctx context.Context, tx *sql.Tx, code string) error {
	var exists int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM baskets WHERE code = ?`, code).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", itemserrors.ErrBasketNotFound, code)
	}
	if err != nil {
		return fmt.Errorf("failed to check basket existence: %w", err)
	}
	return nil
}
