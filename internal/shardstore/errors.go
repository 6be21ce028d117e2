package shardstore

import "errors"

// Sentinel errors returned by Store methods. Callers outside this package
// compare against these with errors.Is; the root package maps them onto its
// own Kind taxonomy.
var (
	ErrNotFound       = errors.New("shardstore: entry not found")
	ErrCorrupt        = errors.New("shardstore: entry failed to decode")
	ErrAlreadyPresent = errors.New("shardstore: entry already present")
)
