package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocate(t *testing.T) {
	p, err := Allocate(64)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	assert.Equal(t, uint32(64), p.Size())
	data := p.Bytes()
	require.Len(t, data, 64)
	for _, b := range data {
		assert.Zero(t, b)
	}

	data[10] = 0xAB
	assert.Equal(t, byte(0xAB), p.Bytes()[10])
}

func TestAllocate_ZeroSize(t *testing.T) {
	p, err := Allocate(0)
	require.NoError(t, err)

	assert.Equal(t, uint32(0), p.Size())
	assert.NotNil(t, p.Bytes())
	assert.Empty(t, p.Bytes())
	require.NoError(t, p.Close())
}

func TestKey_UniquePerPool(t *testing.T) {
	a, err := Allocate(8)
	require.NoError(t, err)
	defer a.Close()
	b, err := Allocate(8)
	require.NoError(t, err)
	defer b.Close()

	assert.NotEqual(t, a.Key(), b.Key())
	assert.Equal(t, a.Key(), a.Key())
}

func TestSlice(t *testing.T) {
	p, err := Allocate(16)
	require.NoError(t, err)
	defer p.Close()

	s, err := p.Slice(4, 8)
	require.NoError(t, err)
	assert.Len(t, s, 8)
	assert.Equal(t, 8, cap(s))

	s[0] = 7
	assert.Equal(t, byte(7), p.Bytes()[4])

	_, err = p.Slice(12, 8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside pool of 16 bytes")
}

func TestClose_Idempotent(t *testing.T) {
	p, err := Allocate(32)
	require.NoError(t, err)

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	assert.Nil(t, p.Bytes())

	_, err = p.Slice(0, 1)
	assert.ErrorIs(t, err, ErrClosed)
}
