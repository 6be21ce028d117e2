// Package mppfc wraps a pure, deterministic function with persistent,
// content-addressed caching of its return values on a local filesystem, and
// optional parallel evaluation of not-yet-cached arguments by a pool of
// worker goroutines whose results enter the same cache.
//
// A call's arguments are bound to a struct type, content-hashed with a
// canonical encoder (internal/canon), and stored at a path sharded from the
// hash (internal/shardstore). Wrap returns a *Wrapper that exposes the
// cached call directly (Call, CallMode) and, once Start is called, a
// pool-mode call (CallAsync) that returns a cached value, enqueues
// uncached work, or re-raises a previously failed attempt.
package mppfc
