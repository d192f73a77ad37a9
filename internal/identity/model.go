package identity

import "time"

// User roles.
const (
	RoleMember = "member"
	RoleAdmin  = "admin"
)

// User represents a registered wallet owner or platform admin.
type User struct {
	ID           string
	Phone        string
	Role         string
	PINHash      []byte
	DeviceID     string
	TokenVersion int
	CreatedAt    time.Time
}

// Credentials request structure.
type Credentials struct {
	Phone    string
	PIN      string
	DeviceID string
}
