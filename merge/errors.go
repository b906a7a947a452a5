package merge

import "errors"

// ErrOrderViolation is wrapped into the error CheckSortedRuns returns when a
// run turns out not to be internally sorted. Surfaced to callers of this
// package only when the extsort_checks build tag is enabled somewhere in
// the call chain (creator, merger); absent from default builds.
var ErrOrderViolation = errors.New("merge: order violation")
