package media

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/inkwell-cms/inkwell/internal/shared"
)

// allowedContentTypes restricts uploads to the image formats the editor
// embeds.
var allowedContentTypes = map[string]struct{}{
	"image/jpeg":    {},
	"image/png":     {},
	"image/gif":     {},
	"image/webp":    {},
	"image/svg+xml": {},
}

// Service handles media upload orchestration. The flow is: NewUpload hands
// the client a presigned PUT slot, the client uploads directly to the bucket,
// then Confirm records the metadata.
type Service struct {
	repo    Repository
	storage ObjectStorage
	logger  *slog.Logger
	now     func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, storage ObjectStorage, logger *slog.Logger) *Service {
	return &Service{repo: repo, storage: storage, logger: logger, now: time.Now}
}

// NewUpload reserves a storage key and returns a presigned PUT URL for it.
func (s *Service) NewUpload(ctx context.Context, contentType string) (*Upload, error) {
	if _, ok := allowedContentTypes[contentType]; !ok {
		return nil, shared.NewValidationError([]string{"content_type must be an image format"})
	}
	key := s.newStorageKey()
	url, err := s.storage.PresignPut(ctx, key, contentType)
	if err != nil {
		return nil, err
	}
	return &Upload{StorageKey: key, UploadURL: url}, nil
}

// ConfirmInput describes a completed client upload.
type ConfirmInput struct {
	StorageKey  string
	Filename    string
	ContentType string
	SizeBytes   int64
}

// Confirm records metadata for an object the client finished uploading.
func (s *Service) Confirm(ctx context.Context, uploaderID int64, in ConfirmInput) (*Media, error) {
	var violations []string
	if in.StorageKey == "" {
		violations = append(violations, "storage_key must not be empty")
	}
	if in.Filename == "" {
		violations = append(violations, "filename must not be empty")
	}
	if _, ok := allowedContentTypes[in.ContentType]; !ok {
		violations = append(violations, "content_type must be an image format")
	}
	if in.SizeBytes <= 0 {
		violations = append(violations, "size_bytes must be positive")
	}
	if err := shared.NewValidationError(violations); err != nil {
		return nil, err
	}
	return s.repo.Insert(ctx, &Media{
		StorageKey:  in.StorageKey,
		Filename:    in.Filename,
		ContentType: in.ContentType,
		SizeBytes:   in.SizeBytes,
		UploaderID:  uploaderID,
	})
}

// Get fetches metadata by id.
func (s *Service) Get(ctx context.Context, id int64) (*Media, error) {
	if id <= 0 {
		return nil, shared.ErrNotFound
	}
	return s.repo.Get(ctx, id)
}

// List returns a page of media metadata.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Media, shared.Pagination, error) {
	items, total, err := s.repo.List(ctx, page, perPage)
	if err != nil {
		return nil, shared.Pagination{}, err
	}
	return items, shared.NewPagination(page, perPage, total), nil
}

// ResolveURL returns a presigned GET URL for serving the object.
func (s *Service) ResolveURL(ctx context.Context, id int64) (string, error) {
	m, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.storage.PresignGet(ctx, m.StorageKey)
}

// Delete removes the metadata row and then the bucket object. Object removal
// is best effort: a dangling object wastes space, a dangling row breaks
// listings, so the row goes first.
func (s *Service) Delete(ctx context.Context, id int64) error {
	m, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.storage.DeleteObject(ctx, m.StorageKey); err != nil {
		s.logger.Warn("delete bucket object", slog.String("key", m.StorageKey), slog.Any("error", err))
	}
	return nil
}

// newStorageKey buckets objects by upload date so listings stay browsable.
func (s *Service) newStorageKey() string {
	d := s.now().UTC()
	return fmt.Sprintf("uploads/%04d/%02d/%s", d.Year(), d.Month(), strings.ToLower(uuid.NewString()))
}
