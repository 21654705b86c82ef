package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	basketserrors "sharebasket/internal/baskets/errors"
	"sharebasket/pkg/config"
	"sharebasket/pkg/db/sqlite"
	"sharebasket/pkg/model"
)

var _ BasketRepository = (*sqliteBasketRepository)(nil)

type sqliteBasketRepository struct {
	cfg *config.Config
	db  *sql.DB
}

func NewSQLiteBasketRepository(cfg *config.Config, db *sql.DB) BasketRepository {
	return &sqliteBasketRepository{cfg: cfg, db: db}
}

func (r *sqliteBasketRepository) Create(ctx context.Context, b *model.Basket) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	createdAt := time.Now().UTC().Truncate(time.Millisecond)

	err := sqlite.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO baskets (code, created_at, last_item_id) VALUES (?, ?, 0)`,
			b.Code, createdAt.UnixMilli(),
		)
		if err != nil {
			if sqlite.IsUniqueViolation(err) {
				return fmt.Errorf("%w: %s", basketserrors.ErrCodeTaken, b.Code)
			}
			return fmt.Errorf("failed to insert basket: %w", err)
		}

		for _, name := range b.Participants {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO participants (basket_code, name) VALUES (?, ?)`,
				b.Code, name,
			); err != nil {
				return fmt.Errorf("failed to insert participant: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.CreatedAt = createdAt
	if b.Participants == nil {
		b.Participants = []string{}
	}
	return nil
}

func (r *sqliteBasketRepository) FindByCode(ctx context.Context, code string) (*model.Basket, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var createdAt int64
	err := r.db.QueryRowContext(ctx,
		`SELECT created_at FROM baskets WHERE code = ?`, code,
	).Scan(&createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", basketserrors.ErrNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find basket: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM participants WHERE basket_code = ? ORDER BY joined_seq`, code,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	participants := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}

	return &model.Basket{
		Code:         code,
		Participants: participants,
		CreatedAt:    time.UnixMilli(createdAt).UTC(),
	}, nil
}

func (r *sqliteBasketRepository) AddParticipant(ctx context.Context, code, name string) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	return sqlite.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM baskets WHERE code = ?`, code).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", basketserrors.ErrNotFound, code)
		}
		if err != nil {
			return fmt.Errorf("failed to check basket existence: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO participants (basket_code, name) VALUES (?, ?)`,
			code, name,
		); err != nil {
			return fmt.Errorf("failed to add participant: %w", err)
		}
		return nil
	})
}
