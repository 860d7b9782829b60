package session

import "errors"

// ErrBufferFull is returned when appending to a full InputBuffer
var ErrBufferFull = errors.New("identifier is at maximum length")

// InputBuffer accumulates identifier characters up to a fixed length
type InputBuffer struct {
	max   int
	runes []rune
}

// NewInputBuffer creates an empty buffer holding at most max characters
func NewInputBuffer(max int) *InputBuffer {
	return &InputBuffer{max: max, runes: make([]rune, 0, max)}
}

// Append adds r, or returns ErrBufferFull and leaves the buffer unchanged
func (b *InputBuffer) Append(r rune) error {
	if len(b.runes) >= b.max {
		return ErrBufferFull
	}
	b.runes = append(b.runes, r)
	return nil
}

// Clear empties the buffer
func (b *InputBuffer) Clear() {
	b.runes = b.runes[:0]
}

// Len returns the number of characters held
func (b *InputBuffer) Len() int {
	return len(b.runes)
}

// Max returns the capacity
func (b *InputBuffer) Max() int {
	return b.max
}

// String returns the identifier
func (b *InputBuffer) String() string {
	return string(b.runes)
}
