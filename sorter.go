package extsort

import (
	"errors"
	"fmt"

	"github.com/flowsort/extsort/block"
	"github.com/flowsort/extsort/creator"
	"github.com/flowsort/extsort/merger"
	"github.com/flowsort/extsort/ordering"
	"github.com/flowsort/extsort/runs"
)

type sorterState int

const (
	stateInput sorterState = iota
	stateOutput
)

// Sorter is the external-memory two-phase sort facade: push records in any
// order, call Sort (or a variant) to switch to output mode, then drain
// results with Current/Advance until Empty. A Sorter is single-producer,
// single-consumer; its own state transitions are not safe for concurrent
// use from multiple goroutines, matching the per-instance synchronization
// model ambient throughout this package.
type Sorter[V any] struct {
	cmp     Comparator[V]
	manager *block.Manager[V]
	opts    Options

	state   sorterState
	creator *creator.Creator[V]

	result *runs.SortedRuns[V]
	mg     *merger.Merger[V]

	cur    V
	curOK  bool
	curErr error

	autoReleaseOnDrain bool
}

// Open provisions a Sorter's backing storage under opts.Dir and returns it
// ready to accept Push calls.
func Open[V any](cmp Comparator[V], codec block.Codec[V], opts Options) (*Sorter[V], error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if err := ordering.Verify(cmp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParameter, err)
	}

	manager, err := block.OpenManager[V](opts.blockConfig(), codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIO, err)
	}

	c, err := creator.New[V](cmp, manager, opts.MemoryBlocks, opts.AllocStrategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadParameter, err)
	}

	return &Sorter[V]{
		cmp:     cmp,
		manager: manager,
		opts:    opts,
		creator: c,
		state:   stateInput,
	}, nil
}

// Push appends v to the input. Only valid while the Sorter is in input
// mode, i.e. before Sort/Finish and after Clear.
func (s *Sorter[V]) Push(v V) error {
	if s.state != stateInput {
		return fmt.Errorf("%w: Push called after Sort/Finish", ErrLogic)
	}
	if err := s.creator.Push(v); err != nil {
		if errors.Is(err, ErrOrderViolation) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// Sort finishes the input phase using the configured MaxMergeFanIn and
// switches to output mode, positioned at the first element.
func (s *Sorter[V]) Sort() error {
	return s.finish(s.opts.MaxMergeFanIn)
}

// SortWithMemory is like Sort, but overrides the merge fan-in for this
// pass only; s.opts.MaxMergeFanIn is left unchanged for later rounds.
func (s *Sorter[V]) SortWithMemory(maxFanIn int) error {
	return s.finish(maxFanIn)
}

// SortReuse is like Sort, but also provisions a fresh Creator right after
// the sort. The Sorter stays in output mode, so Push is refused until Clear
// is called, and Clear always builds its own new Creator: the one
// provisioned here is replaced, not reused, by the next Clear.
func (s *Sorter[V]) SortReuse() error {
	if err := s.finish(s.opts.MaxMergeFanIn); err != nil {
		return err
	}
	c, err := creator.New[V](s.cmp, s.manager, s.opts.MemoryBlocks, s.opts.AllocStrategy)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadParameter, err)
	}
	s.creator = c
	return nil
}

// Finish is an alias of Sort kept for parity with the original two-phase
// sorter's input/output state machine naming.
func (s *Sorter[V]) Finish() error { return s.Sort() }

// FinishClear is like Finish, but releases the underlying SortedRuns (and
// so its backing blocks) as soon as the output is fully drained, instead
// of requiring an explicit Clear call. Rewind is not usable afterward,
// since by the time output is exhausted there is nothing left to rewind
// into.
func (s *Sorter[V]) FinishClear() error {
	if err := s.finish(s.opts.MaxMergeFanIn); err != nil {
		return err
	}
	s.autoReleaseOnDrain = true
	return nil
}

// SetMergerMemory overrides MaxMergeFanIn for subsequent Sort/Finish calls.
func (s *Sorter[V]) SetMergerMemory(maxFanIn int) { s.opts.MaxMergeFanIn = maxFanIn }

func (s *Sorter[V]) finish(maxFanIn int) error {
	if s.state == stateOutput {
		return fmt.Errorf("%w: already in output mode", ErrLogic)
	}

	result, err := s.creator.Finish()
	if err != nil {
		if errors.Is(err, ErrOrderViolation) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	s.result = result

	if err := s.buildMerger(maxFanIn); err != nil {
		return err
	}

	s.state = stateOutput
	return s.Advance()
}

func (s *Sorter[V]) buildMerger(maxFanIn int) error {
	mg, err := merger.New(s.cmp, s.manager, s.result, merger.Options{
		MaxFanIn:      maxFanIn,
		BuffersPerRun: s.opts.PrefetchBuffersPerRun,
		DeviceAware:   s.opts.OptimalPrefetch,
		Strategy:      s.opts.Strategy,
	})
	if err != nil {
		if errors.Is(err, ErrOrderViolation) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	s.mg = mg
	return nil
}

// Rewind resets the output cursor back to the start of the already-sorted
// result, re-merging it from scratch. Only valid in output mode, and only
// if the previous pass was not ended with FinishClear.
func (s *Sorter[V]) Rewind() error {
	if s.state != stateOutput {
		return fmt.Errorf("%w: Rewind called before Sort/Finish", ErrLogic)
	}
	if s.result == nil {
		return fmt.Errorf("%w: nothing to rewind, result already released", ErrLogic)
	}

	if err := s.buildMerger(s.opts.MaxMergeFanIn); err != nil {
		return err
	}
	return s.Advance()
}

// Clear discards all state and returns the Sorter to input mode. Any
// result of a previous Sort/Finish is released, freeing its blocks.
func (s *Sorter[V]) Clear() error {
	if s.result != nil {
		s.result.Release()
		s.result = nil
	}
	s.mg = nil
	s.curOK = false
	s.curErr = nil
	s.autoReleaseOnDrain = false
	c, err := creator.New[V](s.cmp, s.manager, s.opts.MemoryBlocks, s.opts.AllocStrategy)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadParameter, err)
	}
	s.creator = c
	s.state = stateInput
	return nil
}

// Close releases any result the Sorter still holds (freeing its blocks) and
// then the Sorter's backing storage.
func (s *Sorter[V]) Close() error {
	if s.result != nil {
		s.result.Release()
		s.result = nil
	}
	if err := s.manager.Close(); err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
	return nil
}

// Empty reports whether the output cursor has been fully drained. Only
// meaningful in output mode.
func (s *Sorter[V]) Empty() bool {
	return s.state != stateOutput || (!s.curOK && (s.mg == nil || s.mg.Empty()))
}

// Current (alias Peek) returns the element at the output cursor. Only
// valid when !Empty().
func (s *Sorter[V]) Current() V { return s.cur }

// Peek is an alias of Current.
func (s *Sorter[V]) Peek() V { return s.cur }

// Err returns any error encountered advancing the output cursor.
func (s *Sorter[V]) Err() error { return s.curErr }

// Advance moves the output cursor to the next element. Only valid in
// output mode.
func (s *Sorter[V]) Advance() error {
	if s.state != stateOutput {
		return fmt.Errorf("%w: Advance called before Sort/Finish", ErrLogic)
	}

	v, ok, err := s.mg.Next()
	s.cur, s.curOK, s.curErr = v, ok, err
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIO, err)
	}

	if !ok && s.autoReleaseOnDrain && s.result != nil {
		s.result.Release()
		s.result = nil
	}
	return nil
}

// Size returns the total number of elements the current (or most recent)
// output pass will produce.
func (s *Sorter[V]) Size() int64 {
	if s.mg == nil {
		return 0
	}
	return s.mg.Size()
}

// NumElemsInRun returns the element count of run i in the most recently
// finished result, after any recursive reduction has already happened.
func (s *Sorter[V]) NumElemsInRun(i int) (int64, error) {
	if s.result == nil || i < 0 || i >= len(s.result.RunSizes) {
		return 0, fmt.Errorf("%w: run index %d out of range", ErrBadParameter, i)
	}
	return s.result.RunSizes[i], nil
}

// OutputBlockSize returns the fixed number of records per block.
func (s *Sorter[V]) OutputBlockSize() int { return s.manager.BlockElems() }

// NextOutputWouldBlock approximates whether the next Advance call is
// likely to block on a pending read, by reporting whether the most recent
// block pull of any run in the final merge had to wait for its read. It is
// a heuristic, not a guarantee.
func (s *Sorter[V]) NextOutputWouldBlock() bool {
	if s.mg == nil {
		return false
	}
	return s.mg.LastPullBlocked()
}
