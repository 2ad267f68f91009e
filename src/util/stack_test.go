package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStackPushPopOrder(t *testing.T) {
	s := &Stack[int]{}
	assert.Equal(t, 0, s.Size())

	s.Push(1)
	s.Push(2)
	s.Push(3)
	require.Equal(t, 3, s.Size())

	top, ok := s.Peek()
	require.True(t, ok)
	assert.Equal(t, 3, top)

	v, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, 3, v)
	v, ok = s.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v)
	v, ok = s.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = s.Pop()
	assert.False(t, ok)
}

func TestStackContains(t *testing.T) {
	s := &Stack[int]{}
	s.Push(4)
	s.Push(7)

	assert.True(t, s.Contains(func(e int) bool { return e == 4 }))
	assert.True(t, s.Contains(func(e int) bool { return e == 7 }))
	assert.False(t, s.Contains(func(e int) bool { return e == 5 }))
}
