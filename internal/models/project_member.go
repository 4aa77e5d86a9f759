package models

// Role is a member's role within a single project.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleMember   Role = "MEMBER"
	RoleObserver Role = "OBSERVER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleObserver:
		return true
	}
	return false
}

// MemberUser is the user embedded in a project membership.
type MemberUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// MemberProject is the optional project reference embedded in a membership.
type MemberProject struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// ProjectMember represents a user's membership and role within a project.
// The API sends either a nested project object or a flat projectId.
type ProjectMember struct {
	ID        int64          `json:"id"`
	Role      Role           `json:"role"`
	User      MemberUser     `json:"user"`
	Project   *MemberProject `json:"project,omitempty"`
	ProjectID *int64         `json:"projectId,omitempty"`
	JoinedAt  Timestamp      `json:"joinedAt"`
}

// ProjectRef returns the id of the project the membership belongs to, or 0
// when the payload carried neither form.
func (m ProjectMember) ProjectRef() int64 {
	if m.Project != nil {
		return m.Project.ID
	}
	if m.ProjectID != nil {
		return *m.ProjectID
	}
	return 0
}

// DisplayName falls back to a dash for memberships without a username.
func (m ProjectMember) DisplayName() string {
	if m.User.Username == "" {
		return "-"
	}
	return m.User.Username
}
