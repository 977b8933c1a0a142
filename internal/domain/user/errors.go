package user

import "errors"

// ErrDuplicateEmail is returned by a store when another user already holds the email.
var ErrDuplicateEmail = errors.New("email already registered")
