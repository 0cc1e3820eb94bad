package tuple

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntFieldCompare(t *testing.T) {
	three := NewIntField(3)
	five := NewIntField(5)

	tests := []struct {
		op       Op
		expected bool
	}{
		{OpEquals, false},
		{OpNotEquals, true},
		{OpLessThan, true},
		{OpLessThanOrEq, true},
		{OpGreaterThan, false},
		{OpGreaterThanOrEq, false},
	}

	for _, test := range tests {
		t.Run(test.op.String(), func(t *testing.T) {
			got, err := three.Compare(test.op, five)
			require.NoError(t, err)
			assert.Equal(t, test.expected, got)
		})
	}
}

func TestFieldCompareTypeMismatch(t *testing.T) {
	_, err := NewIntField(1).Compare(OpEquals, NewStringField("1"))
	require.ErrorIs(t, err, ErrTypeMismatch)

	_, err = NewStringField("1").Compare(OpEquals, NewIntField(1))
	require.ErrorIs(t, err, ErrTypeMismatch)
}

func TestStringFieldLike(t *testing.T) {
	haystack := NewStringField("hello world")

	got, err := haystack.Compare(OpLike, NewStringField("o wor"))
	require.NoError(t, err)
	assert.True(t, got)

	got, err = haystack.Compare(OpLike, NewStringField("mars"))
	require.NoError(t, err)
	assert.False(t, got)
}

func TestIntFieldSerializedWidth(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIntField(-7).Serialize(&buf))
	require.Equal(t, IntType.Size(), buf.Len())

	// big-endian two's complement
	assert.Equal(t, []byte{0xff, 0xff, 0xff, 0xf9}, buf.Bytes())
}

func TestStringFieldSerializedWidth(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewStringField("abc").Serialize(&buf))
	require.Equal(t, StringType.Size(), buf.Len())

	// 4-byte big-endian length, then content, then zero padding
	assert.Equal(t, []byte{0, 0, 0, 3}, buf.Bytes()[:4])
	assert.Equal(t, []byte("abc"), buf.Bytes()[4:7])
	assert.Equal(t, make([]byte, StringMaxLen-3), buf.Bytes()[7:])
}

func TestStringFieldTruncation(t *testing.T) {
	long := make([]byte, StringMaxLen+40)
	for i := range long {
		long[i] = 'x'
	}

	f := NewStringField(string(long))
	assert.Len(t, f.Value, StringMaxLen)
}

func TestFieldRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIntField(-123456).Serialize(&buf))
	require.NoError(t, NewStringField("round trip").Serialize(&buf))

	intF, err := ReadField(&buf, IntType)
	require.NoError(t, err)
	assert.Equal(t, NewIntField(-123456), intF)

	strF, err := ReadField(&buf, StringType)
	require.NoError(t, err)
	assert.Equal(t, NewStringField("round trip"), strF)
}
