package storage

import "deckconv/internal/ports"

// Store is the object-store contract used across the API and pipeline.
// It is an alias to ports.ObjectStore to keep call-sites simple.
type Store = ports.ObjectStore

// StatInfo and PutObjectInput are re-exported so pipeline and handler code
// does not import ports directly.
type (
	StatInfo       = ports.StatInfo
	PutObjectInput = ports.PutObjectInput
)
