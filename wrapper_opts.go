package mppfc

import "log/slog"

// CompressionKind selects how entry values are compressed on disk.
type CompressionKind int

const (
	// CompressionNone stores entries as plain gob-encoded bytes.
	CompressionNone CompressionKind = iota
	// CompressionZstd wraps the gob encoding with zstd, worth it for large,
	// compressible return values (text, JSON blobs).
	CompressionZstd
)

type config struct {
	basePath            string
	includeModuleName   bool
	moduleName          string
	compression         CompressionKind
	logger              *slog.Logger
	maxConcurrentWrites int64
}

func defaultConfig() *config {
	return &config{
		basePath:            ".mppfc-cache",
		includeModuleName:   true,
		compression:         CompressionNone,
		maxConcurrentWrites: 8,
	}
}

// Option configures a Wrapper at Wrap time.
type Option func(*config)

// WithPath sets the base directory under which every wrapped function gets
// its own `<base>/<func_id>` subtree.
func WithPath(dir string) Option {
	return func(c *config) { c.basePath = dir }
}

// WithoutModuleName drops the inferred package name from func_id, so the
// on-disk root is `<base>/<name>` instead of `<base>/<module>.<name>`.
func WithoutModuleName() Option {
	return func(c *config) { c.includeModuleName = false }
}

// WithModuleName overrides the package name inferred via reflection — useful
// when the wrapped function is defined in a package whose import path you
// don't want baked into the cache layout.
func WithModuleName(name string) Option {
	return func(c *config) { c.moduleName = name }
}

// WithCompression sets the entry compression scheme.
func WithCompression(kind CompressionKind) Option {
	return func(c *config) { c.compression = kind }
}

// WithLogger overrides the *slog.Logger the wrapper and its pool log
// through. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithMaxConcurrentWrites caps the number of disk writes in flight at once,
// independent of worker count, for hosts where the filesystem rather than
// the CPU is the bottleneck during a burst of pool completions.
func WithMaxConcurrentWrites(n int64) Option {
	return func(c *config) { c.maxConcurrentWrites = n }
}
