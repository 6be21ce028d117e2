package mppfc

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"sync"

	digest "github.com/opencontainers/go-digest"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"

	"mppfc/internal/canon"
	"mppfc/internal/shardstore"
	"mppfc/internal/worklist"
)

// Mode selects Wrapper.CallMode's behavior.
type Mode int

const (
	// ModeDefault returns the cached value if present; otherwise computes,
	// stores, and returns it.
	ModeDefault Mode = iota
	// ModeNoCache computes and returns a value without touching the cache.
	ModeNoCache
	// ModeUpdate computes, overwrites the cached entry, and returns.
	ModeUpdate
	// ModeCacheOnly returns the cached value or fails with Missing.
	ModeCacheOnly
)

// Wrapper caches the return values of a single deterministic function,
// keyed by a content hash of its bound arguments. The zero value is not
// usable; construct with Wrap.
type Wrapper[Args any, T any] struct {
	name    string
	fn      func(Args) (T, error)
	binding *binding
	store   *shardstore.Store[T]
	logger  *slog.Logger

	group    singleflight.Group
	writeSem *semaphore.Weighted

	list *worklist.List

	mu     sync.Mutex
	active *poolState
}

// Wrap binds fn under name, ready to be called through Call/CallMode. fn
// must be a plain function value, not a bound method — a bound receiver
// would otherwise silently enter the fingerprint, so it is rejected with
// Unsupported at wrap time instead.
func Wrap[Args any, T any](name string, fn func(Args) (T, error), opts ...Option) (*Wrapper[Args, T], error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	fullName := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	if strings.HasSuffix(fullName, "-fm") {
		return nil, newError(Unsupported, nil, "cannot wrap bound method %s", fullName)
	}

	var argsZero Args
	b, err := newBinding(reflect.TypeOf(argsZero))
	if err != nil {
		return nil, err
	}

	funcID := name
	if cfg.includeModuleName {
		mod := cfg.moduleName
		if mod == "" {
			mod = packageOf(fullName)
		}
		funcID = mod + "." + name
	}

	var codec shardstore.Codec[T] = shardstore.GobCodec[T]{}
	if cfg.compression == CompressionZstd {
		codec = shardstore.ZstdCodec[T]{Inner: shardstore.GobCodec[T]{}}
	}

	store, err := shardstore.New[T](filepath.Join(cfg.basePath, funcID), codec)
	if err != nil {
		return nil, err
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Wrapper[Args, T]{
		name:     funcID,
		fn:       fn,
		binding:  b,
		store:    store,
		logger:   logger,
		writeSem: semaphore.NewWeighted(cfg.maxConcurrentWrites),
		list:     worklist.New(),
	}, nil
}

// packageOf extracts the short package name from a runtime function name,
// e.g. "github.com/x/y.Foo" -> "y", "y.Foo.func1" (a closure) -> "y".
func packageOf(fullName string) string {
	afterSlash := fullName
	if idx := strings.LastIndex(fullName, "/"); idx >= 0 {
		afterSlash = fullName[idx+1:]
	}
	if idx := strings.Index(afterSlash, "."); idx >= 0 {
		return afterSlash[:idx]
	}
	return afterSlash
}

// Name returns the func_id this wrapper stores entries under.
func (w *Wrapper[Args, T]) Name() string { return w.name }

func (w *Wrapper[Args, T]) hash(args Args) (digest.Digest, error) {
	encoded, err := canon.EncodeNamedArgs(w.binding.namedArgs(reflect.ValueOf(args)))
	if err != nil {
		return "", newError(Unhashable, err, "argument could not be canonically encoded")
	}
	return digest.FromBytes(encoded), nil
}

// Call is shorthand for CallMode(args, ModeDefault).
func (w *Wrapper[Args, T]) Call(args Args) (T, error) {
	return w.CallMode(args, ModeDefault)
}

// CallMode evaluates the wrapped function under the given Mode. It does not
// support ModeHasKey-style boolean probing, since that can't share T's
// return signature — use HasKey instead.
func (w *Wrapper[Args, T]) CallMode(args Args, mode Mode) (T, error) {
	var zero T
	h, err := w.hash(args)
	if err != nil {
		return zero, err
	}

	switch mode {
	case ModeNoCache:
		return w.compute(args, h, false)
	case ModeUpdate:
		return w.compute(args, h, true)
	case ModeCacheOnly:
		v, rerr := w.store.Read(h)
		if rerr != nil {
			if errors.Is(rerr, shardstore.ErrNotFound) {
				return zero, newError(Missing, rerr, "no cached entry for %s", h)
			}
			return zero, w.wrapStoreErr(rerr)
		}
		return v, nil
	case ModeDefault:
		v, rerr := w.store.Read(h)
		if rerr == nil {
			return v, nil
		}
		if !errors.Is(rerr, shardstore.ErrNotFound) {
			return zero, w.wrapStoreErr(rerr)
		}
		return w.compute(args, h, true)
	default:
		return zero, newError(BadCall, nil, "unknown call mode %d", mode)
	}
}

// HasKey reports whether args is already cached, without invoking fn.
func (w *Wrapper[Args, T]) HasKey(args Args) (bool, error) {
	h, err := w.hash(args)
	if err != nil {
		return false, err
	}
	return w.store.Exists(h), nil
}

// SetResult injects value into the cache for args without calling fn. It
// fails with AlreadyPresent unless overwrite is true.
func (w *Wrapper[Args, T]) SetResult(args Args, value T, overwrite bool) error {
	h, err := w.hash(args)
	if err != nil {
		return err
	}
	if overwrite {
		return w.wrapStoreErr(w.store.Write(h, value))
	}
	return w.wrapStoreErr(w.store.WriteNew(h, value, false))
}

type computeResult[T any] struct {
	v   T
	err error
}

// compute invokes fn, coalescing concurrent in-process calls for the same
// hash via singleflight so N goroutines racing on an uncached value run fn
// once and all observe the same result. If write is true, a successful
// result is persisted; a write failure is returned alongside the
// still-valid computed value rather than discarding it.
func (w *Wrapper[Args, T]) compute(args Args, h digest.Digest, write bool) (T, error) {
	key := h.String()
	if write {
		key += ":w"
	} else {
		key += ":r"
	}

	iface, err, _ := w.group.Do(key, func() (any, error) {
		v, ferr := w.fn(args)
		if ferr != nil {
			return nil, ferr
		}
		if write {
			if werr := w.writeEntry(h, v); werr != nil {
				return computeResult[T]{v: v, err: w.wrapStoreErr(werr)}, nil
			}
		}
		return computeResult[T]{v: v}, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	res := iface.(computeResult[T])
	return res.v, res.err
}

func (w *Wrapper[Args, T]) writeEntry(h digest.Digest, v T) error {
	ctx := context.Background()
	if err := w.writeSem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer w.writeSem.Release(1)
	return w.store.Write(h, v)
}

func (w *Wrapper[Args, T]) wrapStoreErr(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, shardstore.ErrNotFound):
		return newError(Missing, err, "entry not found")
	case errors.Is(err, shardstore.ErrCorrupt):
		return newError(Corrupt, err, "entry failed to decode")
	case errors.Is(err, shardstore.ErrAlreadyPresent):
		return newError(AlreadyPresent, err, "entry already present")
	default:
		return newError(IoError, err, "store operation failed")
	}
}

// CallState describes the outcome of CallAsync.
type CallState int

const (
	// StateCached means the result was already on disk and is returned
	// directly.
	StateCached CallState = iota
	// StatePending means the call was admitted to (or already sitting in)
	// the work queue; the caller must poll again later.
	StatePending
	// StateFailed means a previous pool execution for this hash failed;
	// the failure is re-raised exactly once and then cleared.
	StateFailed
)

// CallResult is the outcome of a pool-mode call.
type CallResult[T any] struct {
	State CallState
	Value T
}

// CallAsync implements the pool-mode call contract: return a cached value
// immediately, enqueue uncached work and report pending, or re-raise a
// previously recorded failure. It never invokes fn itself — a worker pool
// started with Start does that.
func (w *Wrapper[Args, T]) CallAsync(args Args) (CallResult[T], error) {
	h, err := w.hash(args)
	if err != nil {
		return CallResult[T]{}, err
	}

	if v, rerr := w.store.Read(h); rerr == nil {
		return CallResult[T]{State: StateCached, Value: v}, nil
	} else if !errors.Is(rerr, shardstore.ErrNotFound) {
		return CallResult[T]{}, w.wrapStoreErr(rerr)
	}

	if failures := w.list.Failures(); failures[h] != nil {
		f := failures[h]
		w.list.ClearFailure(h)
		return CallResult[T]{State: StateFailed}, newErrorWithStack(ExecFailure, f.Err, f.Stack, "pool execution previously failed for this call")
	}

	switch w.list.Enqueue(h, args) {
	case worklist.Admitted:
		w.mu.Lock()
		if w.active != nil {
			w.active.pool.IncrementIssued()
		}
		w.mu.Unlock()
		return CallResult[T]{State: StatePending}, nil
	case worklist.AlreadyPending:
		return CallResult[T]{State: StatePending}, nil
	default:
		// Raced with a Fail recorded between the check above and Enqueue;
		// fetch it the same way so the stack trace still makes it out.
		var cause error
		var stack []uintptr
		if f := w.list.Failures()[h]; f != nil {
			cause, stack = f.Err, f.Stack
			w.list.ClearFailure(h)
		}
		return CallResult[T]{State: StateFailed}, newErrorWithStack(ExecFailure, cause, stack, "pool execution previously failed for this call")
	}
}

