package user

// RegisterUserRequest represents the request payload for registering a new user.
type RegisterUserRequest struct {
	Name     string `validate:"required,min=3,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

// RegisterUserResponse represents the response payload after registering a user.
type RegisterUserResponse struct {
	ID int64
}
