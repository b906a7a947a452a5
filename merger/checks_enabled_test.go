//go:build extsort_checks

package merger

import (
	"errors"
	"testing"

	"github.com/flowsort/extsort/merge"
	"github.com/stretchr/testify/require"
)

type checksTestCmp struct{}

func (checksTestCmp) Less(a, b int) bool { return a < b }
func (checksTestCmp) Min() int           { return -1 << 31 }
func (checksTestCmp) Max() int           { return 1<<31 - 1 }

func TestVerifyBlockSortedDetectsViolation(t *testing.T) {
	require.NoError(t, verifyBlockSorted[int](checksTestCmp{}, []int{1, 2, 3}))

	err := verifyBlockSorted[int](checksTestCmp{}, []int{3, 1, 2})
	require.Error(t, err)
	require.True(t, errors.Is(err, merge.ErrOrderViolation))
}
