package identity

import (
	"context"
	"errors"
)

// User is the profile held by the identity service.
type User struct {
	ID       string
	Name     string
	Email    string
	Role     string
	Language string
}

var ErrUserNotFound = errors.New("user not found")

// Client looks up users on the API gateway's identity service.
type Client interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
}
