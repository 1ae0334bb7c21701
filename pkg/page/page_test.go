package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSpan_WholeRegion(t *testing.T) {
	start, end, err := Span(0, 0, 10*Size)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), start)
	assert.Equal(t, uint64(9), end)
}

func TestSpan_ZeroLengthMeansToEnd(t *testing.T) {
	start, end, err := Span(4*Size, 0, 10*Size)
	assert.NoError(t, err)
	assert.Equal(t, uint64(4), start)
	assert.Equal(t, uint64(9), end)
}

func TestSpan_UnalignedSizeRoundsUp(t *testing.T) {
	// A 5-byte region still owns one full page.
	start, end, err := Span(0, 0, 5)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), start)
	assert.Equal(t, uint64(0), end)
}

func TestSpan_RejectsMisaligned(t *testing.T) {
	_, _, err := Span(1, 0, 10*Size)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, _, err = Span(0, Size+1, 10*Size)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestSpan_RejectsOutOfBounds(t *testing.T) {
	_, _, err := Span(10*Size, Size, 10*Size)
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, _, err = Span(0, 11*Size, 10*Size)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestSpan_RejectsOverflow(t *testing.T) {
	_, _, err := Span(^uint64(0)&^uint64(Mask), 2*Size, 10*Size)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestSpan_RejectsUnsetSize(t *testing.T) {
	_, _, err := Span(0, Size, 0)
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestAlign(t *testing.T) {
	assert.Equal(t, uint64(0), Align(0))
	assert.Equal(t, uint64(Size), Align(1))
	assert.Equal(t, uint64(Size), Align(Size))
	assert.Equal(t, uint64(2*Size), Align(Size+1))
}
