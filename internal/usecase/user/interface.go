package user

import (
	"context"

	domain "finance-account-service/internal/domain/user"
)

// Usecase defines the interface for user authentication and registration logic.
type Usecase interface {
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	ValidateEmail(ctx context.Context, email string) error
	RegisterUser(ctx context.Context, in RegisterUserRequest) (*RegisterUserResponse, error)
}
