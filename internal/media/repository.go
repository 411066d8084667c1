package media

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-cms/inkwell/internal/shared"
)

// Repository defines persistence operations for media metadata.
type Repository interface {
	Insert(ctx context.Context, media *Media) (*Media, error)
	Get(ctx context.Context, id int64) (*Media, error)
	List(ctx context.Context, page, perPage int) ([]Media, int, error)
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

// Insert records uploaded-object metadata.
func (r *PGRepository) Insert(ctx context.Context, media *Media) (*Media, error) {
	created := *media
	err := r.pool.QueryRow(ctx,
		`INSERT INTO media (storage_key, filename, content_type, size_bytes, uploader_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`,
		media.StorageKey, media.Filename, media.ContentType, media.SizeBytes, media.UploaderID, time.Now().UTC()).
		Scan(&created.ID, &created.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Get fetches metadata by id.
func (r *PGRepository) Get(ctx context.Context, id int64) (*Media, error) {
	var m Media
	err := r.pool.QueryRow(ctx,
		`SELECT id, storage_key, filename, content_type, size_bytes, uploader_id, created_at
		 FROM media WHERE id = $1`, id).
		Scan(&m.ID, &m.StorageKey, &m.Filename, &m.ContentType, &m.SizeBytes, &m.UploaderID, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

// List returns a page of metadata, newest first, plus the total count.
func (r *PGRepository) List(ctx context.Context, page, perPage int) ([]Media, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM media`).Scan(&total); err != nil {
		return nil, 0, err
	}
	p := shared.NewPagination(page, perPage, total)
	rows, err := r.pool.Query(ctx,
		`SELECT id, storage_key, filename, content_type, size_bytes, uploader_id, created_at
		 FROM media ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		p.PerPage, p.Offset())
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var result []Media
	for rows.Next() {
		var m Media
		if err := rows.Scan(&m.ID, &m.StorageKey, &m.Filename, &m.ContentType, &m.SizeBytes, &m.UploaderID, &m.CreatedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, m)
	}
	return result, total, rows.Err()
}

// Delete removes the metadata row.
func (r *PGRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM media WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
