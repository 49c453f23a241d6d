package tenant

import "errors"

var (
	ErrNotFound      = errors.New("tenant: not found")
	ErrDuplicateSlug = errors.New("tenant: slug already in use")
)
