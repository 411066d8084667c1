package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inkwell-cms/inkwell/internal/shared"
)

// memoryUserRepo enforces email uniqueness atomically under its lock, the way
// a unique constraint does: concurrent Create calls for the same email can
// never both succeed.
type memoryUserRepo struct {
	mu     sync.Mutex
	users  map[int64]*User
	emails map[string]int64
	nextID int64
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[int64]*User), emails: make(map[string]int64)}
}

func (r *memoryUserRepo) Create(ctx context.Context, user *User) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.emails[user.Email]; exists {
		return nil, shared.ErrConflict
	}
	r.nextID++
	created := *user
	created.ID = r.nextID
	created.CreatedAt = time.Now().UTC()
	r.users[created.ID] = &created
	r.emails[created.Email] = created.ID
	out := created
	return &out, nil
}

func (r *memoryUserRepo) FindByEmail(ctx context.Context, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.emails[email]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *r.users[id]
	return &out, nil
}

func (r *memoryUserRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	out := *user
	return &out, nil
}

func (r *memoryUserRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

func (r *memoryUserRepo) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return shared.ErrNotFound
	}
	stamp := at
	user.LastLoginAt = &stamp
	return nil
}

// memorySessionStore is an in-memory SessionStore with an injectable clock so
// expiry can be simulated.
type memorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

type memorySession struct {
	userID    int64
	expiresAt time.Time
}

func newMemorySessionStore() *memorySessionStore {
	return &memorySessionStore{sessions: make(map[string]memorySession), now: time.Now}
}

func (s *memorySessionStore) Create(ctx context.Context, userID int64, ttl time.Duration, _ ClientMeta) (string, error) {
	token, err := newSessionToken()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = memorySession{userID: userID, expiresAt: s.now().Add(ttl)}
	return token, nil
}

func (s *memorySessionStore) Get(ctx context.Context, token string) (int64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return 0, false, nil
	}
	if !s.now().Before(sess.expiresAt) {
		delete(s.sessions, token) // reap on read
		return 0, false, nil
	}
	return sess.userID, true, nil
}

func (s *memorySessionStore) Refresh(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok || !s.now().Before(sess.expiresAt) {
		return false, nil
	}
	sess.expiresAt = s.now().Add(ttl)
	s.sessions[token] = sess
	return true, nil
}

func (s *memorySessionStore) Delete(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[token]
	delete(s.sessions, token)
	return ok, nil
}

func (s *memorySessionStore) DeleteByUser(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for token, sess := range s.sessions {
		if sess.userID == userID {
			delete(s.sessions, token)
		}
	}
	return nil
}

func newTestService(cfg ServiceConfig) (*Service, *memoryUserRepo, *memorySessionStore) {
	repo := newMemoryUserRepo()
	store := newMemorySessionStore()
	return NewService(repo, store, testHasher, cfg), repo, store
}

func TestRegisterDefaultsRole(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{})
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@b.com", "Secure123", "A", "")
	require.NoError(t, err)
	require.Equal(t, RoleAuthor, user.Role)
	require.Equal(t, "a@b.com", user.Email)
	require.NotZero(t, user.ID)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, repo, _ := newTestService(ServiceConfig{})
	ctx := context.Background()

	user, err := svc.Register(ctx, "  Writer@Example.COM ", "Secure123", "Writer", RoleEditor)
	require.NoError(t, err)
	require.Equal(t, "writer@example.com", user.Email)
	require.Equal(t, RoleEditor, user.Role)

	stored, err := repo.FindByEmail(ctx, "writer@example.com")
	require.NoError(t, err)
	require.NotEqual(t, "Secure123", stored.PasswordHash)
}

func TestRegisterDuplicateEmailCaseInsensitive(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@b.com", "Secure123", "A", "")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "A@B.com", "Secure123", "A2", "")
	require.ErrorIs(t, err, shared.ErrConflict)
}

func TestRegisterCollectsAllPasswordViolations(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{})

	_, err := svc.Register(context.Background(), "a@b.com", "short1", "A", "")
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Violations, 2)
	require.Contains(t, verr.Error(), "at least 8 characters")
	require.Contains(t, verr.Error(), "uppercase")
}

func TestRegisterEmailSyntax(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{})
	ctx := context.Background()

	for _, email := range []string{"", "plain", "two@@at.com", "a@b@c.com", "@no-local.com", "local@", "local@nodot"} {
		_, err := svc.Register(ctx, email, "Secure123", "A", "")
		var verr *shared.ValidationError
		require.ErrorAs(t, err, &verr, "email %q", email)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{})

	_, err := svc.Register(context.Background(), "a@b.com", "Secure123", "A", "superuser")
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestLoginAndValidate(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@b.com", "Secure123", "A", "")
	require.NoError(t, err)

	result, err := svc.Login(ctx, "a@b.com", "Secure123", ClientMeta{})
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, RoleAuthor, result.User.Role)
	require.NotNil(t, result.User.LastLoginAt)

	user, err := svc.Validate(ctx, result.Token)
	require.NoError(t, err)
	require.NotNil(t, user)
	require.Equal(t, "a@b.com", user.Email)
	require.Equal(t, RoleAuthor, user.Role)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@b.com", "Secure123", "A", "")
	require.NoError(t, err)

	_, wrongPass := svc.Login(ctx, "a@b.com", "wrong", ClientMeta{})
	_, unknownEmail := svc.Login(ctx, "nobody@b.com", "Secure123", ClientMeta{})

	require.ErrorIs(t, wrongPass, shared.ErrInvalidCredentials)
	require.ErrorIs(t, unknownEmail, shared.ErrInvalidCredentials)
	require.Equal(t, wrongPass.Error(), unknownEmail.Error())
}

func TestLoginIsCaseInsensitiveOnEmail(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@b.com", "Secure123", "A", "")
	require.NoError(t, err)

	result, err := svc.Login(ctx, "A@B.COM", "Secure123", ClientMeta{})
	require.NoError(t, err)
	require.Equal(t, "a@b.com", result.User.Email)
}

func TestValidateExpiredSession(t *testing.T) {
	svc, _, store := newTestService(ServiceConfig{SessionTTL: time.Hour})
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@b.com", "Secure123", "A", "")
	require.NoError(t, err)
	result, err := svc.Login(ctx, "a@b.com", "Secure123", ClientMeta{})
	require.NoError(t, err)

	// Simulate the clock passing the expiry.
	store.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	user, err := svc.Validate(ctx, result.Token)
	require.NoError(t, err)
	require.Nil(t, user)

	// The expired entry was reaped on read: a later Get inside the TTL
	// window still reports absence.
	store.now = time.Now
	user, err = svc.Validate(ctx, result.Token)
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestLogoutIsIdempotent(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{})
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@b.com", "Secure123", "A", "")
	require.NoError(t, err)
	result, err := svc.Login(ctx, "a@b.com", "Secure123", ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, result.Token))
	user, err := svc.Validate(ctx, result.Token)
	require.NoError(t, err)
	require.Nil(t, user)

	// Repeated and never-issued logouts do not error.
	require.NoError(t, svc.Logout(ctx, result.Token))
	require.NoError(t, svc.Logout(ctx, "never-issued"))
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{})
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@b.com", "Secure123", "A", "")
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, user.ID, "wrong-old", "Fresh456pw")
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)

	err = svc.ChangePassword(ctx, user.ID, "Secure123", "weak")
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "Secure123", "Fresh456pw"))

	_, err = svc.Login(ctx, "a@b.com", "Secure123", ClientMeta{})
	require.ErrorIs(t, err, shared.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "a@b.com", "Fresh456pw", ClientMeta{})
	require.NoError(t, err)
}

func TestChangePasswordUnknownUser(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{})
	err := svc.ChangePassword(context.Background(), 9999, "Secure123", "Fresh456pw")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestChangePasswordKeepsSessionsByDefault(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{})
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@b.com", "Secure123", "A", "")
	require.NoError(t, err)
	result, err := svc.Login(ctx, "a@b.com", "Secure123", ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "Secure123", "Fresh456pw"))

	got, err := svc.Validate(ctx, result.Token)
	require.NoError(t, err)
	require.NotNil(t, got)
}

func TestChangePasswordRevokesSessionsWhenConfigured(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{RevokeSessionsOnPasswordChange: true})
	ctx := context.Background()

	user, err := svc.Register(ctx, "a@b.com", "Secure123", "A", "")
	require.NoError(t, err)
	first, err := svc.Login(ctx, "a@b.com", "Secure123", ClientMeta{})
	require.NoError(t, err)
	second, err := svc.Login(ctx, "a@b.com", "Secure123", ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, svc.ChangePassword(ctx, user.ID, "Secure123", "Fresh456pw"))

	for _, token := range []string{first.Token, second.Token} {
		got, err := svc.Validate(ctx, token)
		require.NoError(t, err)
		require.Nil(t, got)
	}
}

func TestConcurrentRegistrationSameEmail(t *testing.T) {
	svc, repo, _ := newTestService(ServiceConfig{})
	ctx := context.Background()

	const attempts = 8
	errs := make([]error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Register(ctx, "race@b.com", "Secure123", "R", "")
		}(i)
	}
	wg.Wait()

	var succeeded, conflicted int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, shared.ErrConflict):
			conflicted++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, attempts-1, conflicted)
	require.Len(t, repo.users, 1)
}

func TestHasPermission(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{})

	author := &User{Role: RoleAuthor}
	editor := &User{Role: RoleEditor}
	admin := &User{Role: RoleAdmin}

	require.True(t, svc.HasPermission(author, ActionCreate))
	require.True(t, svc.HasPermission(author, ActionRead))
	require.True(t, svc.HasPermission(author, ActionUpdate))
	require.False(t, svc.HasPermission(author, ActionPublish))
	require.False(t, svc.HasPermission(author, ActionDelete))
	require.False(t, svc.HasPermission(author, ActionManageUsers))

	require.True(t, svc.HasPermission(editor, ActionPublish))
	require.True(t, svc.HasPermission(editor, ActionDelete))
	require.False(t, svc.HasPermission(editor, ActionManageUsers))

	for _, action := range []string{ActionCreate, ActionRead, ActionUpdate, ActionPublish, ActionDelete, ActionManageUsers} {
		require.True(t, svc.HasPermission(admin, action))
	}

	require.False(t, svc.HasPermission(&User{Role: "superuser"}, ActionRead))
	require.False(t, svc.HasPermission(nil, ActionRead))
	require.False(t, svc.HasPermission(admin, "format_disk"))
}

func TestValidateEmptyToken(t *testing.T) {
	svc, _, _ := newTestService(ServiceConfig{})
	user, err := svc.Validate(context.Background(), "")
	require.NoError(t, err)
	require.Nil(t, user)
}

func TestViewStripsPasswordHash(t *testing.T) {
	user := &User{ID: 1, Email: "a@b.com", Name: "A", PasswordHash: "secret", Role: RoleAuthor}
	view := user.View()
	require.Equal(t, user.Email, view.Email)
	require.NotContains(t, strings.ToLower(toJSON(t, view)), "secret")
	require.NotContains(t, strings.ToLower(toJSON(t, view)), "password")
}
