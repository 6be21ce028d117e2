// Command pfcstat reports shard occupancy and entry counts for a cache
// directory produced by mppfc.Wrap. It is a debugging aid, not part of the
// cache's public contract.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

type config struct {
	root    string
	verbose bool
}

func main() {
	cfg := parseFlags()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: levelFor(cfg.verbose),
	}))

	if err := run(cfg, logger); err != nil {
		logger.Error("pfcstat failed", "err", err)
		os.Exit(1)
	}
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.root, "root", ".mppfc-cache", "cache base directory to inspect")
	flag.BoolVar(&cfg.verbose, "v", false, "verbose logging")
	flag.Parse()
	return cfg
}

func levelFor(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// funcDir is one immediate child of the base directory: a function's own
// cache root, named after its func_id.
type funcDir struct {
	name    string
	entries int
	bytes   int64
}

func run(cfg config, logger *slog.Logger) error {
	entriesByFunc, err := scan(cfg.root, logger)
	if err != nil {
		return err
	}

	if len(entriesByFunc) == 0 {
		fmt.Printf("no cached functions found under %s\n", cfg.root)
		return nil
	}

	fmt.Printf("%-40s %10s %14s\n", "FUNC", "ENTRIES", "BYTES")
	var totalEntries int
	var totalBytes int64
	for _, d := range entriesByFunc {
		fmt.Printf("%-40s %10d %14d\n", d.name, d.entries, d.bytes)
		totalEntries += d.entries
		totalBytes += d.bytes
	}
	fmt.Printf("%-40s %10d %14d\n", "TOTAL", totalEntries, totalBytes)
	return nil
}

func scan(root string, logger *slog.Logger) ([]funcDir, error) {
	top, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("pfcstat: read %s: %w", root, err)
	}

	var dirs []funcDir
	for _, e := range top {
		if !e.IsDir() {
			continue
		}
		path := filepath.Join(root, e.Name())
		entries, bytes, err := walkShards(path)
		if err != nil {
			logger.Warn("skipping unreadable function dir", "dir", path, "err", err)
			continue
		}
		dirs = append(dirs, funcDir{name: e.Name(), entries: entries, bytes: bytes})
	}
	return dirs, nil
}

// walkShards descends the two levels of 14-bit shard directories
// (root/<s1>/<s2>/<s3>) and totals the leaf entry files found.
func walkShards(funcRoot string) (entries int, totalBytes int64, err error) {
	s1s, err := os.ReadDir(funcRoot)
	if err != nil {
		return 0, 0, err
	}
	for _, s1 := range s1s {
		if !s1.IsDir() {
			continue
		}
		s2s, err := os.ReadDir(filepath.Join(funcRoot, s1.Name()))
		if err != nil {
			return 0, 0, err
		}
		for _, s2 := range s2s {
			if !s2.IsDir() {
				continue
			}
			leaves, err := os.ReadDir(filepath.Join(funcRoot, s1.Name(), s2.Name()))
			if err != nil {
				return 0, 0, err
			}
			for _, leaf := range leaves {
				if leaf.IsDir() {
					continue
				}
				info, err := leaf.Info()
				if err != nil {
					continue
				}
				entries++
				totalBytes += info.Size()
			}
		}
	}
	return entries, totalBytes, nil
}
