//go:build unix

package shardstore

import (
	"os"

	"golang.org/x/sys/unix"
)

// lockFile takes a blocking exclusive advisory lock on f. Unlike the
// interruptible locks some host programs implement for long-held locks,
// entry writes here are short-lived, so a plain blocking flock is enough.
func lockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_EX)
}

func unlockFile(f *os.File) error {
	return unix.Flock(int(f.Fd()), unix.LOCK_UN)
}
