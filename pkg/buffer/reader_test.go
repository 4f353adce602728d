package buffer

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail-go/pkg/types"
)

// frame constructs a raw typed backend frame for the reader under test.
func frame(tag byte, payload []byte) []byte {
	buf := make([]byte, 5+len(payload))
	buf[0] = tag
	binary.BigEndian.PutUint32(buf[1:5], uint32(4+len(payload)))
	copy(buf[5:], payload)
	return buf
}

func TestReadTypedMsg(t *testing.T) {
	t.Parallel()

	payload := append([]byte("ready"), 0)
	input := bytes.NewBuffer(frame(byte(types.BackendCommandComplete), payload))

	reader := NewReader(slogt.New(t), input, DefaultBufferSize)
	typed, length, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, types.BackendCommandComplete, typed)
	assert.Equal(t, 4+len(payload), length)

	value, err := reader.GetString()
	require.NoError(t, err)
	assert.Equal(t, "ready", value)
}

func TestReadLargeMessage(t *testing.T) {
	t.Parallel()

	// a message larger than the socket buffer must be read whole, frames are
	// never split at the application layer
	payload := bytes.Repeat([]byte{'x'}, DefaultBufferSize*4)
	input := bytes.NewBuffer(frame(byte(types.BackendDataRow), payload))

	reader := NewReader(slogt.New(t), input, DefaultBufferSize)
	typed, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	assert.Equal(t, types.BackendDataRow, typed)
	assert.Len(t, reader.Msg, len(payload))
}

func TestReadOversizedMessage(t *testing.T) {
	t.Parallel()

	payload := bytes.Repeat([]byte{'x'}, 64)
	input := bytes.NewBuffer(frame(byte(types.BackendDataRow), payload))

	reader := NewReader(slogt.New(t), input, DefaultBufferSize)
	reader.MaxMessageSize = 32

	_, _, err := reader.ReadTypedMsg()
	require.ErrorIs(t, err, ErrOversizedMessage)

	oversized, ok := UnwrapOversized(err)
	require.True(t, ok)
	assert.Equal(t, 64, oversized.Size)
	assert.Equal(t, 32, oversized.Limit)
}

func TestGetIntegers(t *testing.T) {
	t.Parallel()

	payload := make([]byte, 14)
	binary.BigEndian.PutUint16(payload[0:2], 7)
	binary.BigEndian.PutUint32(payload[2:6], 42)
	binary.BigEndian.PutUint32(payload[6:10], 0xfffffffe) // -2 as int32
	binary.BigEndian.PutUint16(payload[10:12], 0xfff0)    // -16 as int16
	payload[12] = 'I'
	payload[13] = 0

	input := bytes.NewBuffer(frame(byte(types.BackendReady), payload))
	reader := NewReader(slogt.New(t), input, DefaultBufferSize)
	_, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)

	u16, err := reader.GetUint16()
	require.NoError(t, err)
	assert.Equal(t, uint16(7), u16)

	u32, err := reader.GetUint32()
	require.NoError(t, err)
	assert.Equal(t, uint32(42), u32)

	i32, err := reader.GetInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-2), i32)

	i16, err := reader.GetInt16()
	require.NoError(t, err)
	assert.Equal(t, int16(-16), i16)

	b, err := reader.GetByte()
	require.NoError(t, err)
	assert.Equal(t, byte('I'), b)
}

func TestGetShortMessage(t *testing.T) {
	t.Parallel()

	input := bytes.NewBuffer(frame(byte(types.BackendReady), []byte{0x01}))
	reader := NewReader(slogt.New(t), input, DefaultBufferSize)
	_, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)

	_, err = reader.GetUint32()
	require.ErrorIs(t, err, ErrShortMessage)
}

func TestGetStringMissingTerminator(t *testing.T) {
	t.Parallel()

	input := bytes.NewBuffer(frame(byte(types.BackendCommandComplete), []byte("unterminated")))
	reader := NewReader(slogt.New(t), input, DefaultBufferSize)
	_, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)

	_, err = reader.GetString()
	require.ErrorIs(t, err, ErrMissingNul)
}
