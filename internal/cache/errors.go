package cache

import "errors"

// ErrNotFound is returned when the mirror has no entity with the
// requested type and id.
var ErrNotFound = errors.New("cache: entity not found")
