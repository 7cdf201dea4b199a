package store

import "errors"

// ErrNotFound is returned by every store when the requested row does not
// exist. Services translate it into their own sentinel errors.
var ErrNotFound = errors.New("not found")
