package page

import "errors"

// Size is the fixed page granularity of every region. All pin/unpin/status
// requests are validated against it before they are translated to page spans.
const (
	Size  = 4096
	Shift = 12
	Mask  = Size - 1
)

var ErrInvalidRange = errors.New("page: invalid range (misaligned, zero-length or out of bounds)")

// Align rounds n up to the next page boundary.
func Align(n uint64) uint64 {
	return (n + Mask) &^ uint64(Mask)
}

// Span translates a byte range into an inclusive page span within a region of
// the given byte size. A zero length means "to the end of the region".
// The whole request is validated before anything is returned: offset and
// length must be page-aligned, the sum must not overflow and must stay within
// [0, Align(size)).
func Span(offset, length, size uint64) (pgStart, pgEnd uint64, err error) {
	if size == 0 {
		return 0, 0, ErrInvalidRange
	}

	aligned := Align(size)
	if length == 0 {
		if offset >= aligned {
			return 0, 0, ErrInvalidRange
		}
		length = aligned - offset
	}

	if (offset|length)&Mask != 0 {
		return 0, 0, ErrInvalidRange
	}
	if length == 0 || offset > ^uint64(0)-length {
		return 0, 0, ErrInvalidRange
	}
	if offset+length > aligned {
		return 0, 0, ErrInvalidRange
	}

	pgStart = offset >> Shift
	pgEnd = pgStart + (length >> Shift) - 1
	return pgStart, pgEnd, nil
}
