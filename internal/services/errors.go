package services

import (
	"errors"

	"hackergrows/internal/store"
)

var (
	ErrNotFound  = store.ErrNotFound
	ErrForbidden = errors.New("forbidden")

	// Vote policy.
	ErrAlreadySelf   = errors.New("cannot vote on your own submission")
	ErrForbiddenSign = errors.New("vote direction not allowed")

	// Submission validation.
	ErrMissingOriginalURL = errors.New("please provide URL to relevant discussion")
	ErrMissingProductURL  = errors.New("please provide URL to a product")
	ErrInvalidURL         = errors.New("invalid URL")
	ErrEmptyText          = errors.New("text must not be empty")
	ErrInvalidParent      = errors.New("replies must target a story or a comment")
	ErrCommentCycle       = errors.New("comment parent chain does not terminate")

	// Accounts.
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// IsValidation reports whether err is a caller input problem.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrMissingOriginalURL, ErrMissingProductURL, ErrInvalidURL, ErrEmptyText, ErrInvalidParent,
		ErrInvalidEmail, ErrWeakPassword,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
