package domain

type Borrower struct {
	ID     int64
	Name   string
	Email  string
	Active bool
}

type Role string

const (
	RoleMember    Role = "member"
	RoleLibrarian Role = "librarian"
)

// Identity is the caller as resolved by the session provider.
type Identity struct {
	BorrowerID int64
	Role       Role
}

func (i Identity) IsLibrarian() bool {
	return i.Role == RoleLibrarian
}
