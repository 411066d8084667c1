package posts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/inkwell-cms/inkwell/internal/platform/db"
	"github.com/inkwell-cms/inkwell/internal/shared"
)

// Repository defines persistence operations for posts. Slug uniqueness is
// enforced by the storage layer's unique index; Create and Update surface
// shared.ErrConflict on a duplicate.
type Repository interface {
	Create(ctx context.Context, post *Post) (*Post, error)
	GetByID(ctx context.Context, id int64) (*Post, error)
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	List(ctx context.Context, filter ListFilter) ([]Post, int, error)
	Update(ctx context.Context, post *Post) error
	SetStatus(ctx context.Context, id int64, status Status, publishedAt *time.Time) error
	SlugExists(ctx context.Context, slug string) (bool, error)
	PurgeTrashed(ctx context.Context, olderThan time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const postColumns = `id, title, slug, excerpt, body, status, author_id, category_id, featured_media_id, created_at, updated_at, published_at`

// Create inserts the post and its tag associations in one transaction.
func (r *PGRepository) Create(ctx context.Context, post *Post) (*Post, error) {
	now := time.Now().UTC()
	created := *post
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx,
			`INSERT INTO posts (title, slug, excerpt, body, status, author_id, category_id, featured_media_id, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
			 RETURNING id, created_at, updated_at`,
			post.Title, post.Slug, post.Excerpt, post.Body, post.Status, post.AuthorID, post.CategoryID, post.FeaturedMediaID, now).
			Scan(&created.ID, &created.CreatedAt, &created.UpdatedAt)
		if err != nil {
			return mapConflict(err)
		}
		return replaceTags(ctx, tx, created.ID, post.TagIDs)
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// GetByID fetches a post with its tags.
func (r *PGRepository) GetByID(ctx context.Context, id int64) (*Post, error) {
	return r.getWhere(ctx, "id = $1", id)
}

// GetBySlug fetches a post by slug.
func (r *PGRepository) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	return r.getWhere(ctx, "slug = $1", slug)
}

func (r *PGRepository) getWhere(ctx context.Context, cond string, arg any) (*Post, error) {
	var post Post
	err := r.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM posts WHERE %s`, postColumns, cond), arg).
		Scan(&post.ID, &post.Title, &post.Slug, &post.Excerpt, &post.Body, &post.Status,
			&post.AuthorID, &post.CategoryID, &post.FeaturedMediaID,
			&post.CreatedAt, &post.UpdatedAt, &post.PublishedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	tags, err := r.loadTags(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	post.TagIDs = tags
	return &post, nil
}

// List returns a page of posts plus the unpaginated total.
func (r *PGRepository) List(ctx context.Context, filter ListFilter) ([]Post, int, error) {
	var conds []string
	var args []any
	if filter.Status != "" {
		args = append(args, filter.Status)
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CategoryID > 0 {
		args = append(args, filter.CategoryID)
		conds = append(conds, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if filter.TagID > 0 {
		args = append(args, filter.TagID)
		conds = append(conds, fmt.Sprintf("id IN (SELECT post_id FROM post_tags WHERE tag_id = $%d)", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM posts`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	p := shared.NewPagination(filter.Page, filter.PerPage, total)
	args = append(args, p.PerPage, p.Offset())
	rows, err := r.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM posts%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
			postColumns, where, len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []Post
	for rows.Next() {
		var post Post
		if err := rows.Scan(&post.ID, &post.Title, &post.Slug, &post.Excerpt, &post.Body, &post.Status,
			&post.AuthorID, &post.CategoryID, &post.FeaturedMediaID,
			&post.CreatedAt, &post.UpdatedAt, &post.PublishedAt); err != nil {
			return nil, 0, err
		}
		result = append(result, post)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	for i := range result {
		tags, err := r.loadTags(ctx, result[i].ID)
		if err != nil {
			return nil, 0, err
		}
		result[i].TagIDs = tags
	}
	return result, total, nil
}

// Update rewrites the mutable post fields and tag associations.
func (r *PGRepository) Update(ctx context.Context, post *Post) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE posts SET title = $1, slug = $2, excerpt = $3, body = $4, category_id = $5, featured_media_id = $6, updated_at = $7
			 WHERE id = $8`,
			post.Title, post.Slug, post.Excerpt, post.Body, post.CategoryID, post.FeaturedMediaID, time.Now().UTC(), post.ID)
		if err != nil {
			return mapConflict(err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return replaceTags(ctx, tx, post.ID, post.TagIDs)
	})
}

// SetStatus transitions the lifecycle state, stamping published_at when given.
func (r *PGRepository) SetStatus(ctx context.Context, id int64, status Status, publishedAt *time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE posts SET status = $1, published_at = COALESCE($2, published_at), updated_at = $3 WHERE id = $4`,
		status, publishedAt, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SlugExists reports whether a slug is already taken.
func (r *PGRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM posts WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

// PurgeTrashed hard-deletes trashed posts whose last update predates the
// cutoff. Called by the background purge job.
func (r *PGRepository) PurgeTrashed(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM posts WHERE status = $1 AND updated_at < $2`, StatusTrashed, olderThan.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PGRepository) loadTags(ctx context.Context, postID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT tag_id FROM post_tags WHERE post_id = $1 ORDER BY tag_id`, postID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tags []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		tags = append(tags, id)
	}
	return tags, rows.Err()
}

func replaceTags(ctx context.Context, tx pgx.Tx, postID int64, tagIDs []int64) error {
	if _, err := tx.Exec(ctx, `DELETE FROM post_tags WHERE post_id = $1`, postID); err != nil {
		return err
	}
	for _, tagID := range tagIDs {
		if _, err := tx.Exec(ctx, `INSERT INTO post_tags (post_id, tag_id) VALUES ($1, $2)`, postID, tagID); err != nil {
			return err
		}
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
