package service

// Roles recognised by the service layer.
const (
	RoleAdmin   = "admin"
	RoleStudent = "student"
)

// Principal identifies the authenticated caller. It is passed
// explicitly into every attempt operation instead of being read from
// ambient request state.
type Principal struct {
	UserID uint
	Role   string
}

// IsAdmin reports whether the principal carries the admin role.
func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Owns reports whether the principal is the given student or an admin.
func (p Principal) Owns(studentID uint) bool {
	return p.IsAdmin() || p.UserID == studentID
}
