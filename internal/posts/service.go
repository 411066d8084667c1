package posts

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inkwell-cms/inkwell/internal/shared"
)

const (
	excerptLen = 200

	// slugAttempts caps the dedup loop; the storage constraint remains the
	// final authority if every candidate races.
	slugAttempts = 50
)

// CreateInput collects fields for a new post.
type CreateInput struct {
	Title           string
	Body            string
	Excerpt         string
	CategoryID      *int64
	FeaturedMediaID *int64
	TagIDs          []int64
}

// UpdateInput collects mutable fields for an existing post.
type UpdateInput struct {
	Title           string
	Body            string
	Excerpt         string
	CategoryID      *int64
	FeaturedMediaID *int64
	TagIDs          []int64
}

// Service handles post business logic.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Create validates input, derives a deduplicated slug and stores the post as
// a draft owned by the author.
func (s *Service) Create(ctx context.Context, authorID int64, in CreateInput) (*Post, error) {
	if err := validateContent(in.Title, in.Body); err != nil {
		return nil, err
	}
	excerpt := in.Excerpt
	if excerpt == "" {
		excerpt = shared.Truncate(in.Body, excerptLen)
	}

	slug, err := s.uniqueSlug(ctx, in.Title)
	if err != nil {
		return nil, err
	}
	post := &Post{
		Title:           in.Title,
		Slug:            slug,
		Excerpt:         excerpt,
		Body:            in.Body,
		Status:          StatusDraft,
		AuthorID:        authorID,
		CategoryID:      in.CategoryID,
		FeaturedMediaID: in.FeaturedMediaID,
		TagIDs:          in.TagIDs,
	}
	created, err := s.repo.Create(ctx, post)
	if err != nil && errors.Is(err, shared.ErrConflict) {
		// Lost a slug race between the existence probe and the insert; the
		// unique index is the authority, so pick the next candidate and
		// try once more.
		if post.Slug, err = s.uniqueSlug(ctx, in.Title); err != nil {
			return nil, err
		}
		created, err = s.repo.Create(ctx, post)
	}
	if err != nil {
		return nil, err
	}
	created.TagIDs = in.TagIDs
	return created, nil
}

// Get fetches a post by id.
func (s *Service) Get(ctx context.Context, id int64) (*Post, error) {
	if id <= 0 {
		return nil, shared.ErrNotFound
	}
	return s.repo.GetByID(ctx, id)
}

// GetBySlug fetches a post by slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	if slug == "" {
		return nil, shared.ErrNotFound
	}
	return s.repo.GetBySlug(ctx, slug)
}

// List returns a page of posts matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Post, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Update rewrites the mutable fields. The slug is kept stable so published
// URLs do not break.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Post, error) {
	if err := validateContent(in.Title, in.Body); err != nil {
		return nil, err
	}
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Title = in.Title
	post.Body = in.Body
	post.Excerpt = in.Excerpt
	if post.Excerpt == "" {
		post.Excerpt = shared.Truncate(in.Body, excerptLen)
	}
	post.CategoryID = in.CategoryID
	post.FeaturedMediaID = in.FeaturedMediaID
	post.TagIDs = in.TagIDs
	if err := s.repo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Publish transitions a post to published, stamping published_at on the
// first transition only. Publishing an already published post is a no-op.
func (s *Service) Publish(ctx context.Context, id int64) (*Post, error) {
	post, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if post.Status == StatusPublished {
		return post, nil
	}
	var stamp *time.Time
	if post.PublishedAt == nil {
		at := s.now().UTC()
		stamp = &at
	}
	if err := s.repo.SetStatus(ctx, id, StatusPublished, stamp); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// Trash soft-deletes the post. Trashed posts are purged permanently by the
// retention job.
func (s *Service) Trash(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return err
	}
	return s.repo.SetStatus(ctx, id, StatusTrashed, nil)
}

// PurgeTrashed hard-deletes trashed posts older than the retention window.
func (s *Service) PurgeTrashed(ctx context.Context, retention time.Duration) (int64, error) {
	return s.repo.PurgeTrashed(ctx, s.now().Add(-retention))
}

func (s *Service) uniqueSlug(ctx context.Context, title string) (string, error) {
	base := shared.Slugify(title)
	if base == "" {
		base = "post"
	}
	candidate := base
	for i := 2; i <= slugAttempts; i++ {
		exists, err := s.repo.SlugExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, i)
	}
	return "", fmt.Errorf("posts: no free slug for %q after %d attempts", base, slugAttempts)
}

func validateContent(title, body string) error {
	var violations []string
	if title == "" {
		violations = append(violations, "title must not be empty")
	}
	if len(title) > 200 {
		violations = append(violations, "title must be at most 200 characters")
	}
	if body == "" {
		violations = append(violations, "body must not be empty")
	}
	return shared.NewValidationError(violations)
}
