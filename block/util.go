package block

import (
	"errors"
	"os"
	"syscall"

	"github.com/otiai10/copy"
)

// RelocateDir moves a finished manager's backing directory to dst,
// falling back to a recursive copy-then-remove when the two paths are on
// different filesystems (os.Rename returns EXDEV in that case). This is
// used when a caller wants to keep the spill files of a completed sort
// around under a stable, final path instead of a scratch directory.
func RelocateDir(src, dst string) error {
	if err := os.Rename(src, dst); !errors.Is(err, syscall.EXDEV) {
		// nil error also takes this branch.
		return err
	}

	if err := copy.Copy(src, dst, copy.Options{Sync: true}); err != nil {
		return err
	}

	return os.RemoveAll(src)
}
