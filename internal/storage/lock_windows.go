//go:build windows

package storage

import "os"

// Advisory locking is not available; appends rely on O_APPEND alone.
func lockFile(_ *os.File) error { return nil }

func unlockFile(_ *os.File) {}
