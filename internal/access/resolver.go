package access

import "strings"

// MemberRecord is anything that pairs a user with a role in a project.
type MemberRecord interface {
	MemberUserID() string
	MemberRole() Role
}

// Resolve returns the caller's role among members. A token that cannot be
// decoded, or a caller who is not listed, resolves to Viewer.
func Resolve[M MemberRecord](token string, members []M) Role {
	id, err := IdentityFromToken(token)
	if err != nil {
		return Viewer
	}
	return RoleOf(id, members)
}

// RoleOf looks up userID among members.
func RoleOf[M MemberRecord](userID string, members []M) Role {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Viewer
	}
	for _, m := range members {
		if strings.TrimSpace(m.MemberUserID()) == userID {
			return ParseRole(string(m.MemberRole()))
		}
	}
	return Viewer
}
