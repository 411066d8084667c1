package tags

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-cms/inkwell/internal/platform/db"
	"github.com/inkwell-cms/inkwell/internal/shared"
)

// Repository defines persistence operations for tags.
type Repository interface {
	Create(ctx context.Context, tag *Tag) (*Tag, error)
	Get(ctx context.Context, id int64) (*Tag, error)
	List(ctx context.Context) ([]Tag, error)
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

// Create inserts a tag, mapping slug collisions to shared.ErrConflict.
func (r *PGRepository) Create(ctx context.Context, tag *Tag) (*Tag, error) {
	created := *tag
	err := r.pool.QueryRow(ctx,
		`INSERT INTO tags (name, slug, created_at) VALUES ($1, $2, $3) RETURNING id, created_at`,
		tag.Name, tag.Slug, time.Now().UTC()).
		Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, shared.ErrConflict
		}
		return nil, err
	}
	return &created, nil
}

// Get fetches a tag by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Tag, error) {
	var tag Tag
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, slug, created_at FROM tags WHERE id = $1`, id).
		Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &tag, nil
}

// List returns all tags ordered by name.
func (r *PGRepository) List(ctx context.Context) ([]Tag, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, slug, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []Tag
	for rows.Next() {
		var tag Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, tag)
	}
	return result, rows.Err()
}

// Delete removes the tag together with its post associations.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM post_tags WHERE tag_id = $1`, id); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM tags WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

var _ Repository = (*PGRepository)(nil)
