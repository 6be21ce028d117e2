// Package shardstore implements the sharded, content-addressed on-disk
// key-value store the cache is built on: a 32-byte digest maps to a path
// of the form root/s1/s2/s3 (see path.go), and every write is atomic —
// write to a temp file, then rename into place — so a reader never
// observes a partially written entry.
//
// Two levels of 14-bit shards keep directory fan-out near the flat-access
// regime of common filesystems up to roughly 2.6e8 entries; see path.go's
// doc comment for the exact bit layout.
package shardstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	digest "github.com/opencontainers/go-digest"
)

// Store maps content digests to values of type T, persisted under root.
// A Store is safe for concurrent use, including from multiple unrelated OS
// processes pointed at the same root directory.
type Store[T any] struct {
	root    string
	codec   Codec[T]
	dirPerm os.FileMode

	entries atomic.Int64
	bytes   atomic.Int64
}

// Option configures a Store.
type Option[T any] func(*Store[T])

// WithDirPerm overrides the permission bits used for created directories.
// The default is 0o755.
func WithDirPerm[T any](mode os.FileMode) Option[T] {
	return func(s *Store[T]) { s.dirPerm = mode }
}

// New creates a Store rooted at dir, using codec to encode and decode
// values. dir is created if it does not already exist.
func New[T any](dir string, codec Codec[T], opts ...Option[T]) (*Store[T], error) {
	if dir == "" {
		return nil, errors.New("shardstore: root directory is empty")
	}
	s := &Store[T]{
		root:    dir,
		codec:   codec,
		dirPerm: 0o755,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return nil, fmt.Errorf("shardstore: create root %s: %w", dir, err)
	}
	return s, nil
}

// PathOf returns the on-disk path for h. It is a pure function of h and the
// store's root: no I/O is performed and no file need exist at the result.
func (s *Store[T]) PathOf(h digest.Digest) (string, error) {
	s1, s2, s3, err := Segments(h)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, s1, s2, s3), nil
}

// Exists reports whether h has an entry on disk. Any filesystem error
// encountered while checking — most commonly "no such file" — is reported
// as false rather than propagated, per the store's contract.
func (s *Store[T]) Exists(h digest.Digest) bool {
	path, err := s.PathOf(h)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Read loads and decodes the value stored at h.
//
// It returns an error wrapping ErrNotFound if no entry exists, or
// ErrCorrupt if the entry exists but fails to decode.
func (s *Store[T]) Read(h digest.Digest) (T, error) {
	var zero T
	path, err := s.PathOf(h)
	if err != nil {
		return zero, err
	}
	f, err := os.Open(path) //nolint:gosec // path is derived from a validated digest
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return zero, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return zero, fmt.Errorf("shardstore: open %s: %w", path, err)
	}
	defer f.Close()

	var v T
	if err := s.codec.Decode(f, &v); err != nil {
		return zero, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return v, nil
}

// Write encodes v and atomically stores it at h, overwriting any existing
// entry. On any failure the partially written file is removed before the
// error is returned, so a reader never observes a torn write.
func (s *Store[T]) Write(h digest.Digest, v T) error {
	path, err := s.PathOf(h)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return fmt.Errorf("shardstore: create shard dir %s: %w", dir, err)
	}

	existed := s.Exists(h)

	tmp, err := os.CreateTemp(dir, ".entry-*.tmp")
	if err != nil {
		return fmt.Errorf("shardstore: create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()

	if err := s.writeAndCommit(tmp, tmpPath, path, v); err != nil {
		return err
	}

	if info, statErr := os.Stat(path); statErr == nil {
		s.bytes.Add(info.Size())
	}
	if !existed {
		s.entries.Add(1)
	}
	return nil
}

func (s *Store[T]) writeAndCommit(tmp *os.File, tmpPath, finalPath string, v T) (err error) {
	defer func() {
		if err != nil {
			_ = unlockFile(tmp)
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err = lockFile(tmp); err != nil {
		return fmt.Errorf("shardstore: lock %s: %w", tmpPath, err)
	}
	if err = s.codec.Encode(tmp, v); err != nil {
		return fmt.Errorf("shardstore: encode entry: %w", err)
	}
	if err = unlockFile(tmp); err != nil {
		return fmt.Errorf("shardstore: unlock %s: %w", tmpPath, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("shardstore: close %s: %w", tmpPath, err)
	}
	if err = os.Rename(tmpPath, finalPath); err != nil {
		return fmt.Errorf("shardstore: rename into place: %w", err)
	}
	return nil
}

// WriteNew is like Write, but fails with ErrAlreadyPresent if an entry for
// h already exists, unless overwrite is true.
func (s *Store[T]) WriteNew(h digest.Digest, v T, overwrite bool) error {
	if !overwrite && s.Exists(h) {
		path, _ := s.PathOf(h)
		return fmt.Errorf("%w: %s", ErrAlreadyPresent, path)
	}
	return s.Write(h, v)
}

// Stats is a point-in-time, best-effort snapshot of store occupancy. It is
// not corrected for overwrites replacing a smaller or larger prior entry,
// so treat it as approximate — useful for a status line, not for capacity
// planning.
type Stats struct {
	Entries int64
	Bytes   int64
}

func (s *Store[T]) Stats() Stats {
	return Stats{Entries: s.entries.Load(), Bytes: s.bytes.Load()}
}

// Root returns the store's root directory.
func (s *Store[T]) Root() string { return s.root }
