package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRingBuffer_Wraps(t *testing.T) {
	rb := NewRingBuffer(10)

	for i := range 20 {
		rb.Add([]int16{int16(i)})
	}

	assert.Equal(t, []int16{10, 11, 12, 13, 14, 15, 16, 17, 18, 19}, rb.Read())
	assert.Equal(t, 10, rb.Len())
}

func TestRingBuffer_PartiallyFilled(t *testing.T) {
	rb := NewRingBuffer(8)
	rb.Add([]int16{1, 2, 3})

	assert.Equal(t, []int16{1, 2, 3}, rb.Read())
}

func TestRingBuffer_LargeWrite(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Add([]int16{1, 2, 3, 4, 5, 6})

	assert.Equal(t, []int16{3, 4, 5, 6}, rb.Read())
}

func TestRingBuffer_Clear(t *testing.T) {
	rb := NewRingBuffer(4)
	rb.Add([]int16{1, 2, 3})
	rb.Clear()

	assert.Empty(t, rb.Read())

	rb.Add([]int16{9})
	assert.Equal(t, []int16{9}, rb.Read())
}

func TestRingBuffer_ZeroSize(t *testing.T) {
	rb := NewRingBuffer(0)
	rb.Add([]int16{1})

	assert.Empty(t, rb.Read())
}
