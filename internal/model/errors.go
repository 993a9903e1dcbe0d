package model

import "errors"

var (
	// User related errors
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")

	// Auth related errors
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrResetTokenInvalid  = errors.New("reset token invalid or expired")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")

	// Tour/Review related errors
	ErrTourNotFound   = errors.New("tour not found")
	ErrReviewNotFound = errors.New("review not found")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
