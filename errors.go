package rig

import "errors"

// Sentinel errors returned by structural edits. Wrapped errors carry the
// offending key; test with errors.Is.
var (
	ErrNotFound           = errors.New("element not found")
	ErrDuplicateKey       = errors.New("duplicate element key")
	ErrCycle              = errors.New("parent would create a cycle")
	ErrIncompatibleParent = errors.New("incompatible parent")
	ErrInvalidKind        = errors.New("invalid element kind")
)
