package benchmark

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRandomName(t *testing.T) {
	a, err := GenerateRandomName(5)
	require.NoError(t, err)
	b, err := GenerateRandomName(5)
	require.NoError(t, err)

	assert.Len(t, a, 10)
	assert.Regexp(t, `^[0-9a-f]+$`, a)
	assert.NotEqual(t, a, b)
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "abc/0", ObjectName("abc", 0))
	assert.Equal(t, "abc/17", ObjectName("abc", 17))
}

func TestGetBuffer(t *testing.T) {
	small := GetBuffer(100)
	assert.Len(t, small, 100)
	PutBuffer(small)

	large := GetBuffer(1 << 20)
	assert.Len(t, large, 1<<20)
	PutBuffer(large)
}
