package tags

import (
	"context"
	"strings"

	"github.com/inkwell-cms/inkwell/internal/shared"
)

// Service handles tag business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a tag with a slug derived from the name.
func (s *Service) Create(ctx context.Context, name string) (*Tag, error) {
	name = strings.TrimSpace(name)
	var violations []string
	if name == "" {
		violations = append(violations, "name must not be empty")
	}
	if len(name) > 60 {
		violations = append(violations, "name must be at most 60 characters")
	}
	if err := shared.NewValidationError(violations); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, &Tag{Name: name, Slug: shared.Slugify(name)})
}

// Get fetches a tag by id.
func (s *Service) Get(ctx context.Context, id int64) (*Tag, error) {
	if id <= 0 {
		return nil, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// List returns all tags.
func (s *Service) List(ctx context.Context) ([]Tag, error) {
	return s.repo.List(ctx)
}

// Delete removes the tag and its associations with posts.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}
