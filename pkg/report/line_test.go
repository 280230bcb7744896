package report

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLine_Append(t *testing.T) {
	var l Line
	l.WriteString("v=")
	l.AppendFloat(3.14159, 2)
	require.NoError(t, l.WriteByte('\n'))

	require.NoError(t, l.Err())
	assert.Equal(t, "v=3.14\n", string(l.Bytes()))
	assert.Equal(t, 7, len(l.Bytes()))
}

func TestLine_OverflowDoesNotTruncate(t *testing.T) {
	var l Line
	l.WriteString(strings.Repeat("x", LineSize-3))
	l.AppendFloat(123.456, 2) // "123.46" needs 6 bytes, 3 left

	assert.ErrorIs(t, l.Err(), ErrFormatOverflow)
	assert.Equal(t, LineSize-3, len(l.Bytes()), "previous contents are kept intact")

	// Sticky until Reset.
	l.WriteString("a")
	assert.ErrorIs(t, l.WriteByte('b'), ErrFormatOverflow)
	assert.Equal(t, LineSize-3, len(l.Bytes()))

	l.Reset()
	assert.NoError(t, l.Err())
	assert.Zero(t, len(l.Bytes()))
}

func TestLine_ExactFit(t *testing.T) {
	var l Line
	l.WriteString(strings.Repeat("x", LineSize-1))
	require.NoError(t, l.WriteByte('\n'))
	assert.Equal(t, LineSize, len(l.Bytes()))
	assert.ErrorIs(t, l.WriteByte('!'), ErrFormatOverflow)
}

func TestLine_StringOverflow(t *testing.T) {
	var l Line
	l.WriteString(strings.Repeat("y", LineSize+1))
	assert.ErrorIs(t, l.Err(), ErrFormatOverflow)
	assert.Zero(t, len(l.Bytes()))
}
