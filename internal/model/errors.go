package model

import "errors"

var (
	// User related errors
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("incorrect username or password")

	// Todo related errors
	ErrTodoNotFound = errors.New("todo not found")

	// Permission/Access related errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Downstream collaborator errors
	ErrEmailDelivery = errors.New("email delivery failed")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
