package user

import "time"

// User is one row of the users table.
type User struct {
	ID             int64
	Username       string
	Email          string
	HashedPassword string
	IsActive       bool
	CreatedAt      time.Time
}
