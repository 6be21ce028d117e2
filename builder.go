package mppfc

import (
	"reflect"
	"sync"

	digest "github.com/opencontainers/go-digest"

	"mppfc/internal/canon"
)

// Builder is a cached, deterministic constructor: Build hashes its
// argument struct the same way a Wrapper hashes call arguments, and serves
// a previously constructed *T from an in-memory map keyed by that hash
// instead of invoking construct again. This is the Go rendition of the
// source's "instantiation-caching via subclassing" pattern — since
// constructed values are process-local objects, not necessarily
// serializable, Builder keeps them in memory rather than forcing a disk
// round-trip through shardstore. Builder is a concrete generic type, not an
// interface, so unlike the subclassing it replaces it cannot be further
// subclassed.
type Builder[Args any, T any] struct {
	construct func(Args) (*T, error)
	binding   *binding

	mu    sync.Mutex
	cache map[digest.Digest]*T
}

// NewBuilder wraps construct in a Builder keyed by Args.
func NewBuilder[Args any, T any](construct func(Args) (*T, error)) (*Builder[Args, T], error) {
	var argsZero Args
	b, err := newBinding(reflect.TypeOf(argsZero))
	if err != nil {
		return nil, err
	}
	return &Builder[Args, T]{
		construct: construct,
		binding:   b,
		cache:     make(map[digest.Digest]*T),
	}, nil
}

// Build returns the cached *T for args, constructing it on first use.
func (b *Builder[Args, T]) Build(args Args) (*T, error) {
	h, err := b.hash(args)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if v, ok := b.cache[h]; ok {
		b.mu.Unlock()
		return v, nil
	}
	b.mu.Unlock()

	v, err := b.construct(args)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.cache[h]; ok {
		// Another goroutine built it first; keep whichever was recorded
		// first, discarding this duplicate.
		return existing, nil
	}
	b.cache[h] = v
	return v, nil
}

func (b *Builder[Args, T]) hash(args Args) (digest.Digest, error) {
	encoded, err := canon.EncodeNamedArgs(b.binding.namedArgs(reflect.ValueOf(args)))
	if err != nil {
		return "", newError(Unhashable, err, "constructor argument could not be canonically encoded")
	}
	return digest.FromBytes(encoded), nil
}
