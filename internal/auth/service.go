package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/inkwell-cms/inkwell/internal/shared"
)

const (
	// DefaultSessionTTL is the fixed lifetime of login sessions.
	DefaultSessionTTL = 7 * 24 * time.Hour

	minPasswordLen = 8
)

// ServiceConfig tunes authentication behaviour.
type ServiceConfig struct {
	// SessionTTL defaults to DefaultSessionTTL when zero.
	SessionTTL time.Duration
	// RevokeSessionsOnPasswordChange invalidates every session of the user
	// after a password change. Off by default to allow multi-device
	// continuity.
	RevokeSessionsOnPasswordChange bool
}

// Service composes the Hasher and SessionStore to implement registration,
// login, session validation and permission checks.
type Service struct {
	repo     Repository
	sessions SessionStore
	hasher   Hasher
	cfg      ServiceConfig
	now      func() time.Time

	// decoyHash is verified against on the unknown-email login path so that
	// failure timing does not reveal whether the account exists.
	decoyHash string
}

// NewService constructs a Service.
func NewService(repo Repository, sessions SessionStore, hasher Hasher, cfg ServiceConfig) *Service {
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	decoy, err := hasher.Hash("inkwell-decoy-credential")
	if err != nil {
		decoy = ""
	}
	return &Service{
		repo:      repo,
		sessions:  sessions,
		hasher:    hasher,
		cfg:       cfg,
		now:       time.Now,
		decoyHash: decoy,
	}
}

// LoginResult bundles the authenticated user view with the session token.
type LoginResult struct {
	User  UserView
	Token string
}

// SessionTTL exposes the configured session lifetime for cookie expiry.
func (s *Service) SessionTTL() time.Duration {
	return s.cfg.SessionTTL
}

// Register validates input, hashes the password and creates the account.
// Validation reports the complete list of violated rules. Email uniqueness is
// enforced by the repository's unique constraint, surfacing
// shared.ErrConflict.
func (s *Service) Register(ctx context.Context, email, password, name, role string) (UserView, error) {
	email = NormalizeEmail(email)
	var violations []string
	violations = append(violations, emailViolations(email)...)
	violations = append(violations, passwordViolations(password)...)
	if role == "" {
		role = RoleAuthor
	} else if _, ok := rolePermissions[role]; !ok {
		violations = append(violations, fmt.Sprintf("role must be one of %s, %s, %s", RoleAdmin, RoleEditor, RoleAuthor))
	}
	if err := shared.NewValidationError(violations); err != nil {
		return UserView{}, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return UserView{}, err
	}
	created, err := s.repo.Create(ctx, &User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		return UserView{}, err
	}
	return created.View(), nil
}

// Login authenticates the credentials and opens a session. Unknown email and
// wrong password both fail with shared.ErrInvalidCredentials; the unknown
// path still runs a KDF verification so the two are indistinguishable by
// timing as well as by message.
func (s *Service) Login(ctx context.Context, email, password string, meta ClientMeta) (LoginResult, error) {
	user, err := s.repo.FindByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.hasher.Verify(password, s.decoyHash)
			return LoginResult{}, shared.ErrInvalidCredentials
		}
		return LoginResult{}, err
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		return LoginResult{}, shared.ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.repo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return LoginResult{}, err
	}
	user.LastLoginAt = &now

	token, err := s.sessions.Create(ctx, user.ID, s.cfg.SessionTTL, meta)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{User: user.View(), Token: token}, nil
}

// Logout deletes the session. Deleting an unknown token is not an error.
func (s *Service) Logout(ctx context.Context, token string) error {
	_, err := s.sessions.Delete(ctx, token)
	return err
}

// Validate resolves a session token to its user. Every protected operation
// goes through this gate first. An absent or expired session yields
// (nil, nil).
func (s *Service) Validate(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	userID, ok, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Refresh extends a live session by the configured TTL.
func (s *Service) Refresh(ctx context.Context, token string) (bool, error) {
	return s.sessions.Refresh(ctx, token, s.cfg.SessionTTL)
}

// ChangePassword re-verifies the old password before replacing the hash.
// Existing sessions survive unless RevokeSessionsOnPasswordChange is set.
func (s *Service) ChangePassword(ctx context.Context, userID int64, oldPassword, newPassword string) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Verify(oldPassword, user.PasswordHash) {
		return shared.ErrInvalidCredentials
	}
	if err := shared.NewValidationError(passwordViolations(newPassword)); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	if s.cfg.RevokeSessionsOnPasswordChange {
		return s.sessions.DeleteByUser(ctx, userID)
	}
	return nil
}

// HasPermission reports whether the user's role allows the action. Unknown
// roles have no permissions.
func (s *Service) HasPermission(user *User, action string) bool {
	if user == nil {
		return false
	}
	return RoleAllows(user.Role, action)
}

// RoleAllows checks the static role table.
func RoleAllows(role, action string) bool {
	perms, ok := rolePermissions[role]
	if !ok {
		return false
	}
	_, ok = perms[action]
	return ok
}

// NormalizeEmail lowercases and trims an email for case-insensitive
// comparison and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// emailViolations checks syntax: exactly one @ separating a non-empty local
// part from a domain containing a dot.
func emailViolations(email string) []string {
	var violations []string
	local, domain, found := strings.Cut(email, "@")
	switch {
	case !found || strings.Contains(domain, "@"):
		violations = append(violations, "email must contain exactly one @")
	case local == "":
		violations = append(violations, "email local part must not be empty")
	case domain == "" || !strings.Contains(domain, "."):
		violations = append(violations, "email domain must contain a dot")
	}
	return violations
}

// passwordViolations collects every strength rule the candidate fails.
func passwordViolations(password string) []string {
	var violations []string
	if len([]rune(password)) < minPasswordLen {
		violations = append(violations, fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	var hasUpper, hasLower, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasUpper {
		violations = append(violations, "password must contain an uppercase letter")
	}
	if !hasLower {
		violations = append(violations, "password must contain a lowercase letter")
	}
	if !hasDigit {
		violations = append(violations, "password must contain a digit")
	}
	return violations
}
