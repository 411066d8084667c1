package categories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-cms/inkwell/internal/shared"
)

// Repository defines persistence operations for categories. The unique index
// on slug is the authority for uniqueness.
type Repository interface {
	Create(ctx context.Context, category *Category) (*Category, error)
	Get(ctx context.Context, id int64) (*Category, error)
	List(ctx context.Context) ([]Category, error)
	Update(ctx context.Context, category *Category) error
	Delete(ctx context.Context, id int64) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a category, mapping slug collisions to shared.ErrConflict.
func (r *PGRepository) Create(ctx context.Context, category *Category) (*Category, error) {
	now := time.Now().UTC()
	created := *category
	err := r.pool.QueryRow(ctx,
		`INSERT INTO categories (name, slug, description, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $4) RETURNING id, created_at, updated_at`,
		category.Name, category.Slug, category.Description, now).
		Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, mapConflict(err)
	}
	return &created, nil
}

// Get fetches a category by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Category, error) {
	var category Category
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, description, created_at, updated_at FROM categories WHERE id = $1`, id).
		Scan(&category.ID, &category.Name, &category.Slug, &category.Description, &category.CreatedAt, &category.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

// List returns all categories ordered by name.
func (r *PGRepository) List(ctx context.Context) ([]Category, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, slug, description, created_at, updated_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Category
	for rows.Next() {
		var category Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Slug, &category.Description, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}

// Update rewrites name, slug and description.
func (r *PGRepository) Update(ctx context.Context, category *Category) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE categories SET name = $1, slug = $2, description = $3, updated_at = $4 WHERE id = $5`,
		category.Name, category.Slug, category.Description, time.Now().UTC(), category.ID)
	if err != nil {
		return mapConflict(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Delete removes the category. Posts referencing it keep existing; the
// foreign key nulls their category_id.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return shared.ErrConflict
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
