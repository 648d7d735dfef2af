package kb

import "errors"

var (
	// ErrNoCompleteLanguage means neither language has both a title and a
	// solution.
	ErrNoCompleteLanguage = errors.New("at least one complete language entry (title and solution) is required")

	// ErrPartialLanguage means a language has a title without a solution
	// or the other way around.
	ErrPartialLanguage = errors.New("both title and solution are required for a language")

	// ErrMissingCategory means the entry has no category.
	ErrMissingCategory = errors.New("category is required")

	// ErrInvalidStatus means the status is not active or inactive.
	ErrInvalidStatus = errors.New("status must be active or inactive")
)
