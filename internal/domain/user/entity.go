package user

// User represents a user entity in the system.
type User struct {
	ID       int64  // ID is the unique identifier assigned by the store
	Name     string // Name is the display name of the user
	Email    string // Email is the unique email address of the user
	Password string `json:"-"` // Password is compared as given and never serialized
}
