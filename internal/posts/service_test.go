package posts

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inkwell-cms/inkwell/internal/shared"
)

type memoryRepo struct {
	mu     sync.Mutex
	posts  map[int64]*Post
	slugs  map[string]int64
	nextID int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{posts: make(map[int64]*Post), slugs: make(map[string]int64)}
}

func (r *memoryRepo) Create(ctx context.Context, post *Post) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.slugs[post.Slug]; taken {
		return nil, shared.ErrConflict
	}
	r.nextID++
	created := *post
	created.ID = r.nextID
	created.CreatedAt = time.Now().UTC()
	created.UpdatedAt = created.CreatedAt
	r.posts[created.ID] = &created
	r.slugs[created.Slug] = created.ID
	out := created
	return &out, nil
}

func (r *memoryRepo) GetByID(ctx context.Context, id int64) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *post
	return &out, nil
}

func (r *memoryRepo) GetBySlug(ctx context.Context, slug string) (*Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.slugs[slug]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *r.posts[id]
	return &out, nil
}

func (r *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Post, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []Post
	for _, post := range r.posts {
		if filter.Status != "" && post.Status != filter.Status {
			continue
		}
		result = append(result, *post)
	}
	return result, len(result), nil
}

func (r *memoryRepo) Update(ctx context.Context, post *Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.posts[post.ID]
	if !ok {
		return shared.ErrNotFound
	}
	delete(r.slugs, existing.Slug)
	updated := *post
	updated.UpdatedAt = time.Now().UTC()
	r.posts[post.ID] = &updated
	r.slugs[updated.Slug] = post.ID
	return nil
}

func (r *memoryRepo) SetStatus(ctx context.Context, id int64, status Status, publishedAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok {
		return shared.ErrNotFound
	}
	post.Status = status
	if publishedAt != nil {
		post.PublishedAt = publishedAt
	}
	post.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *memoryRepo) SlugExists(ctx context.Context, slug string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.slugs[slug]
	return ok, nil
}

func (r *memoryRepo) PurgeTrashed(ctx context.Context, olderThan time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var purged int64
	for id, post := range r.posts {
		if post.Status == StatusTrashed && post.UpdatedAt.Before(olderThan) {
			delete(r.slugs, post.Slug)
			delete(r.posts, id)
			purged++
		}
	}
	return purged, nil
}

func TestCreateDerivesSlug(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	post, err := svc.Create(ctx, 1, CreateInput{Title: "Hello, World!", Body: "content"})
	require.NoError(t, err)
	require.Equal(t, "hello-world", post.Slug)
	require.Equal(t, StatusDraft, post.Status)
	require.Equal(t, int64(1), post.AuthorID)
}

func TestCreateDeduplicatesSlug(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	first, err := svc.Create(ctx, 1, CreateInput{Title: "Same Title", Body: "a"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, 1, CreateInput{Title: "Same Title", Body: "b"})
	require.NoError(t, err)
	third, err := svc.Create(ctx, 1, CreateInput{Title: "Same Title", Body: "c"})
	require.NoError(t, err)

	require.Equal(t, "same-title", first.Slug)
	require.Equal(t, "same-title-2", second.Slug)
	require.Equal(t, "same-title-3", third.Slug)
}

func TestCreateDefaultsExcerpt(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	long := strings.Repeat("lorem ipsum ", 50)
	post, err := svc.Create(ctx, 1, CreateInput{Title: "T", Body: long})
	require.NoError(t, err)
	require.NotEmpty(t, post.Excerpt)
	require.LessOrEqual(t, len([]rune(post.Excerpt)), excerptLen+1) // +ellipsis
	require.True(t, strings.HasSuffix(post.Excerpt, "…"))

	custom, err := svc.Create(ctx, 1, CreateInput{Title: "T2", Body: long, Excerpt: "hand-written"})
	require.NoError(t, err)
	require.Equal(t, "hand-written", custom.Excerpt)
}

func TestCreateValidatesContent(t *testing.T) {
	svc := NewService(newMemoryRepo())

	_, err := svc.Create(context.Background(), 1, CreateInput{Title: "", Body: ""})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 2)
}

func TestPublishStampsOnce(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	post, err := svc.Create(ctx, 1, CreateInput{Title: "T", Body: "b"})
	require.NoError(t, err)
	require.Nil(t, post.PublishedAt)

	published, err := svc.Publish(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)
	firstStamp := *published.PublishedAt

	// Publishing again is a no-op and keeps the original stamp.
	again, err := svc.Publish(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, firstStamp, *again.PublishedAt)
}

func TestRepublishAfterTrashKeepsStamp(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	post, err := svc.Create(ctx, 1, CreateInput{Title: "T", Body: "b"})
	require.NoError(t, err)
	published, err := svc.Publish(ctx, post.ID)
	require.NoError(t, err)
	stamp := *published.PublishedAt

	require.NoError(t, svc.Trash(ctx, post.ID))
	restored, err := svc.Publish(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, stamp, *restored.PublishedAt)
}

func TestUpdateKeepsSlug(t *testing.T) {
	svc := NewService(newMemoryRepo())
	ctx := context.Background()

	post, err := svc.Create(ctx, 1, CreateInput{Title: "Original Title", Body: "b"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, post.ID, UpdateInput{Title: "Brand New Title", Body: "b2"})
	require.NoError(t, err)
	require.Equal(t, "original-title", updated.Slug)
	require.Equal(t, "Brand New Title", updated.Title)
}

func TestTrashAndPurge(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo)
	ctx := context.Background()

	post, err := svc.Create(ctx, 1, CreateInput{Title: "T", Body: "b"})
	require.NoError(t, err)
	require.NoError(t, svc.Trash(ctx, post.ID))

	got, err := svc.Get(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, StatusTrashed, got.Status)

	// Inside the retention window nothing is purged.
	purged, err := svc.PurgeTrashed(ctx, time.Hour)
	require.NoError(t, err)
	require.Zero(t, purged)

	// Past the window the row is gone for good.
	purged, err = svc.PurgeTrashed(ctx, -time.Hour)
	require.NoError(t, err)
	require.Equal(t, int64(1), purged)
	_, err = svc.Get(ctx, post.ID)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestTrashUnknownPost(t *testing.T) {
	svc := NewService(newMemoryRepo())
	require.ErrorIs(t, svc.Trash(context.Background(), 404), shared.ErrNotFound)
}
