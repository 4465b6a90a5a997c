// Package access decides what the logged-in user may do inside a project.
//
// Roles come from the server's membership list; identity comes from the
// access token. Anything that cannot be established falls back to Viewer.
package access

import (
	"encoding/json"
	"strings"
)

// Role is a member's standing inside one project.
type Role string

const (
	Owner  Role = "OWNER"
	Admin  Role = "ADMIN"
	Member Role = "MEMBER"
	Viewer Role = "VIEWER"
)

// Roles lists every role from most to least privileged.
func Roles() []Role {
	return []Role{Owner, Admin, Member, Viewer}
}

// ParseRole maps a server value onto a Role. Unknown values become Viewer.
func ParseRole(s string) Role {
	switch Role(strings.ToUpper(strings.TrimSpace(s))) {
	case Owner:
		return Owner
	case Admin:
		return Admin
	case Member:
		return Member
	default:
		return Viewer
	}
}

// Rank orders roles by privilege. Owner and Admin share the top rank.
func (r Role) Rank() int {
	switch r {
	case Owner, Admin:
		return 2
	case Member:
		return 1
	default:
		return 0
	}
}

func (r Role) String() string {
	if r == "" {
		return string(Viewer)
	}
	return string(r)
}

// Label is the title-cased form used in the UI.
func (r Role) Label() string {
	s := r.String()
	return s[:1] + strings.ToLower(s[1:])
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		*r = Viewer
		return nil
	}
	*r = ParseRole(s)
	return nil
}

// ============================================================
// Predicates
// ============================================================

// CanManage reports whether r may create, edit and delete project content.
func CanManage(r Role) bool {
	return r == Owner || r == Admin
}

// CanCollaborate reports whether r may contribute (comment, tick subtasks, upload).
func CanCollaborate(r Role) bool {
	return CanManage(r) || r == Member
}

func ViewOnly(r Role) bool {
	return !CanCollaborate(r)
}

// CanEditComment: managers edit anything, collaborators only their own comments.
func CanEditComment(r Role, isAuthor bool) bool {
	return CanManage(r) || (isAuthor && CanCollaborate(r))
}

func CanDeleteComment(r Role) bool {
	return CanManage(r)
}

// Permissions is the resolved capability set handed to screens.
type Permissions struct {
	Role          Role
	Manage        bool
	Collaborate   bool
	ManageMembers bool
}

// For expands a role into Permissions.
func For(r Role) Permissions {
	return Permissions{
		Role:          ParseRole(string(r)),
		Manage:        CanManage(r),
		Collaborate:   CanCollaborate(r),
		ManageMembers: CanManage(r),
	}
}
