package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/task-sync/internal/domain"
)

// ItemRepository encapsulates item persistence. Missing rows are reported as pgx.ErrNoRows.
type ItemRepository interface {
	Create(ctx context.Context, item *domain.Item) error
	Update(ctx context.Context, item *domain.Item) error
	GetByID(ctx context.Context, id int64) (*domain.Item, error)
	Delete(ctx context.Context, id, ownerID int64) (bool, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]domain.Item, error)
}

type itemRepository struct {
	pool *pgxpool.Pool
}

// NewItemRepository returns a Postgres-backed implementation.
func NewItemRepository(pool *pgxpool.Pool) ItemRepository {
	return &itemRepository{pool: pool}
}

const itemColumns = `id, title, completed, category, user_id, created_at, updated_at`

func (r *itemRepository) Create(ctx context.Context, item *domain.Item) error {
	const query = `
        INSERT INTO items (title, completed, category, user_id)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		item.Title,
		item.Completed,
		item.Category,
		item.OwnerID,
	).Scan(&item.ID, &item.CreatedAt, &item.UpdatedAt)
}

// Update writes title, completed and category for the item when it belongs to item.OwnerID.
func (r *itemRepository) Update(ctx context.Context, item *domain.Item) error {
	const query = `
        UPDATE items SET title=$1, completed=$2, category=$3, updated_at=NOW()
        WHERE id=$4 AND user_id=$5
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		item.Title,
		item.Completed,
		item.Category,
		item.ID,
		item.OwnerID,
	).Scan(&item.CreatedAt, &item.UpdatedAt)
}

func (r *itemRepository) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id=$1`

	item, err := scanItem(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *itemRepository) Delete(ctx context.Context, id, ownerID int64) (bool, error) {
	const query = `DELETE FROM items WHERE id=$1 AND user_id=$2`

	cmd, err := r.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *itemRepository) ListByOwner(ctx context.Context, ownerID int64) ([]domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE user_id=$1 ORDER BY created_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *item)
	}
	return result, rows.Err()
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var item domain.Item
	if err := row.Scan(
		&item.ID,
		&item.Title,
		&item.Completed,
		&item.Category,
		&item.OwnerID,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &item, nil
}
