package ordering_test

import (
	"testing"

	"github.com/flowsort/extsort/ordering"
	"github.com/stretchr/testify/require"
)

type intCmp struct{}

func (intCmp) Less(a, b int) bool { return a < b }
func (intCmp) Min() int           { return -1 << 31 }
func (intCmp) Max() int           { return 1<<31 - 1 }

type brokenCmp struct{}

func (brokenCmp) Less(a, b int) bool { return a < b }
func (brokenCmp) Min() int           { return 0 }
func (brokenCmp) Max() int           { return 0 }

func TestVerifyAcceptsConsistentComparator(t *testing.T) {
	require.NoError(t, ordering.Verify[int](intCmp{}))
}

func TestVerifyRejectsCollidingSentinels(t *testing.T) {
	require.Error(t, ordering.Verify[int](brokenCmp{}))
}
