package categories

import (
	"context"
	"strings"

	"github.com/inkwell-cms/inkwell/internal/shared"
)

// Service handles category business logic.
type Service struct {
	repo Repository
}

// NewService builds a Service instance.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates the name and stores the category with a derived slug.
// Duplicate slugs surface shared.ErrConflict from the repository.
func (s *Service) Create(ctx context.Context, name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, &Category{
		Name:        name,
		Slug:        shared.Slugify(name),
		Description: strings.TrimSpace(description),
	})
}

// Get fetches a category by id.
func (s *Service) Get(ctx context.Context, id int64) (*Category, error) {
	if id <= 0 {
		return nil, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// List returns all categories.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

// Update renames the category, re-deriving the slug.
func (s *Service) Update(ctx context.Context, id int64, name, description string) (*Category, error) {
	name = strings.TrimSpace(name)
	if err := validateName(name); err != nil {
		return nil, err
	}
	category, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	category.Name = name
	category.Slug = shared.Slugify(name)
	category.Description = strings.TrimSpace(description)
	if err := s.repo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Delete removes the category; posts keep existing without it.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrNotFound
	}
	return s.repo.Delete(ctx, id)
}

func validateName(name string) error {
	var violations []string
	if name == "" {
		violations = append(violations, "name must not be empty")
	}
	if len(name) > 100 {
		violations = append(violations, "name must be at most 100 characters")
	}
	return shared.NewValidationError(violations)
}
