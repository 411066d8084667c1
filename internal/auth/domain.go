package auth

import "time"

// Role names, least to most privileged.
const (
	RoleAuthor = "author"
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// Actions gated by role permissions.
const (
	ActionCreate      = "create"
	ActionRead        = "read"
	ActionUpdate      = "update"
	ActionPublish     = "publish"
	ActionDelete      = "delete"
	ActionManageUsers = "manage_users"
)

// rolePermissions is the static role table. Each role is a strict superset of
// the one below it: author < editor < admin.
var rolePermissions = map[string]map[string]struct{}{
	RoleAuthor: permissionSet(ActionCreate, ActionRead, ActionUpdate),
	RoleEditor: permissionSet(ActionCreate, ActionRead, ActionUpdate, ActionPublish, ActionDelete),
	RoleAdmin:  permissionSet(ActionCreate, ActionRead, ActionUpdate, ActionPublish, ActionDelete, ActionManageUsers),
}

func permissionSet(actions ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(actions))
	for _, a := range actions {
		set[a] = struct{}{}
	}
	return set
}

// User represents a user account. PasswordHash is an opaque encoded value
// owned by the Hasher and must never leave the service layer.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}

// View returns the externally visible projection of the user, stripped of the
// password hash.
func (u *User) View() UserView {
	return UserView{
		ID:          u.ID,
		Email:       u.Email,
		Name:        u.Name,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
		LastLoginAt: u.LastLoginAt,
	}
}

// UserView is the hash-stripped user representation returned to callers.
type UserView struct {
	ID          int64      `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// ClientMeta carries optional client information recorded on sessions for
// audit only. It is never consulted for authorization decisions.
type ClientMeta struct {
	IP        string
	UserAgent string
}
