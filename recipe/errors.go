package recipe

import "errors"

// ErrDuplicate is returned when a recipe for the same normalized domain
// already exists.
var ErrDuplicate = errors.New("recipe: domain already registered")

// ErrInvalidInput is returned when recipe fields fail validation.
var ErrInvalidInput = errors.New("recipe: invalid input")

// ErrInvalidDomain is returned when a URL or domain cannot be normalized.
var ErrInvalidDomain = errors.New("recipe: invalid domain")
