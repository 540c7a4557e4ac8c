package domain

import "context"

type User struct {
	ID       int64  `json:"id"`
	NameUser string `json:"nameUser"`
	Email    string `json:"email,omitempty"`
}

// UserRepository returns ErrUserNotFound when no user has the given id.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
}
