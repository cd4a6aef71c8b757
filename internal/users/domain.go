package users

import "time"

// User represents a user account for management listings.
type User struct {
	ID        int64
	Email     string
	Name      string
	IsActive  bool
	RoleID    *int64
	RoleName  string
	BranchID  *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// RoleOption is a role available for assignment.
type RoleOption struct {
	ID   int64
	Name string
}
