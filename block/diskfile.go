package block

import (
	"fmt"
	"os"
	"sync"

	"golang.org/x/sys/unix"
)

// diskFile is a single backing file holding a dense array of fixed-size
// block slots, memory-mapped for the lifetime of the file. Growth
// re-truncates and re-mmaps, exactly the way the teacher's vlog.Log grows
// its single append-only mmap in page-aligned jumps -- generalized here
// from one growable log to a block-indexed, block-granular file.
type diskFile struct {
	mu         sync.RWMutex
	path       string
	fd         *os.File
	mmap       []byte
	blockBytes int
}

func openDiskFile(path string, blockBytes int) (*diskFile, error) {
	fd, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("block: open disk file: %w", err)
	}

	d := &diskFile{path: path, fd: fd, blockBytes: blockBytes}

	info, err := fd.Stat()
	if err != nil {
		fd.Close()
		return nil, fmt.Errorf("block: stat disk file: %w", err)
	}

	if info.Size() > 0 {
		if err := d.mmapCurrent(info.Size()); err != nil {
			fd.Close()
			return nil, err
		}
	}

	return d, nil
}

// nextFileSize rounds need up to the next "nice" growth step, the same
// doubling-ish page-aligned strategy as vlog.Log.nextSize but expressed in
// blocks instead of mmap pages: grow by at least 64 blocks, more as the file
// gets bigger, always block-aligned.
func nextFileSize(need int64, blockBytes int) int64 {
	blocks := (need + int64(blockBytes) - 1) / int64(blockBytes)

	var step int64
	switch {
	case blocks < 1024:
		step = 64
	case blocks < 1<<16:
		step = 1024
	default:
		step = 1 << 16
	}

	grown := ((blocks / step) + 1) * step
	return grown * int64(blockBytes)
}

func (d *diskFile) mmapCurrent(size int64) error {
	mmap, err := unix.Mmap(
		int(d.fd.Fd()), 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED,
	)
	if err != nil {
		return fmt.Errorf("block: mmap: %w", err)
	}
	d.mmap = mmap
	return nil
}

func (d *diskFile) ensureCapacity(blocks int64) error {
	need := blocks * int64(d.blockBytes)

	d.mu.Lock()
	defer d.mu.Unlock()

	if need <= int64(len(d.mmap)) {
		return nil
	}

	newSize := nextFileSize(need, d.blockBytes)
	if err := d.fd.Truncate(newSize); err != nil {
		return fmt.Errorf("block: truncate: %w", err)
	}

	if len(d.mmap) > 0 {
		if err := unix.Munmap(d.mmap); err != nil {
			return fmt.Errorf("block: munmap: %w", err)
		}
		d.mmap = nil
	}

	return d.mmapCurrent(newSize)
}

func (d *diskFile) writeBlock(index int64, src []byte) error {
	if err := d.ensureCapacity(index + 1); err != nil {
		return err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	off := index * int64(d.blockBytes)
	copy(d.mmap[off:off+int64(d.blockBytes)], src)
	return nil
}

func (d *diskFile) readBlock(index int64, dst []byte) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	off := index * int64(d.blockBytes)
	if off+int64(d.blockBytes) > int64(len(d.mmap)) {
		return fmt.Errorf("block: read past end of disk file %s at index %d", d.path, index)
	}

	copy(dst, d.mmap[off:off+int64(d.blockBytes)])
	return nil
}

func (d *diskFile) close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.mmap) > 0 {
		if err := unix.Munmap(d.mmap); err != nil {
			return err
		}
		d.mmap = nil
	}
	return d.fd.Close()
}
