package creator

import "errors"

// ErrInsufficientMemory is returned by New when memBlocks is too small to
// reserve separate halves for in-memory sorting and overlapped writing.
var ErrInsufficientMemory = errors.New("creator: insufficient memory blocks")
