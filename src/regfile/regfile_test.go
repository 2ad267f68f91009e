package regfile

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocFromHighestIndexDownward(t *testing.T) {
	f := New()
	i, err := f.Alloc("a")
	require.NoError(t, err)
	assert.Equal(t, 7, i)

	i, err = f.Alloc("b")
	require.NoError(t, err)
	assert.Equal(t, 6, i)
}

func TestReserveSkipsExplicitIndices(t *testing.T) {
	f := New()
	require.NoError(t, f.Reserve(7, "user"))

	i, err := f.Alloc("auto")
	require.NoError(t, err)
	assert.Equal(t, 6, i, "Alloc must skip the explicitly reserved slot 7")
}

func TestAllocExhaustionIsHardError(t *testing.T) {
	f := New()
	for i := 0; i < Count; i++ {
		_, err := f.Alloc(fmt.Sprintf("owner%d", i))
		require.NoError(t, err)
	}
	_, err := f.Alloc("overflow")
	require.Error(t, err)
}

func TestClampRespectsBounds(t *testing.T) {
	v, clipped := Clamp(2_000_000)
	assert.Equal(t, int32(ValueMax), v)
	assert.True(t, clipped)

	v, clipped = Clamp(42)
	assert.Equal(t, int32(42), v)
	assert.False(t, clipped)
}
