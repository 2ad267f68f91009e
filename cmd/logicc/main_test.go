package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inav-tools/logicc/src/target"
)

func TestParseLogicLines(t *testing.T) {
	table, err := parseLogicLines("logic 0 1 -1 2 2 5001 0 100 0\nlogic 1 1 0 25 0 3 0 0 0\n")
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, 0, table[0].Slot)
	assert.True(t, table[0].Enabled)
	assert.Equal(t, target.NoActivator, table[0].Activator)
	assert.Equal(t, target.Greater, table[0].Operation)
	assert.Equal(t, target.SetVTXPowerLevel, table[1].Operation)
	assert.Equal(t, 0, table[1].Activator)
}

func TestParseLogicLinesSkipsBlankAndComments(t *testing.T) {
	table, err := parseLogicLines("# a comment\n\nlogic 0 0 -1 0 0 0 0 0 0\n")
	require.NoError(t, err)
	require.Len(t, table, 1)
	assert.False(t, table[0].Enabled)
}

func TestParseLogicLinesRejectsMalformed(t *testing.T) {
	_, err := parseLogicLines("logic 0 1 -1\n")
	require.Error(t, err)
}

func TestInputPath(t *testing.T) {
	assert.Equal(t, "", inputPath(nil))
	assert.Equal(t, "foo.vtx", inputPath([]string{"foo.vtx"}))
}
