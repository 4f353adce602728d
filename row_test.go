package qail

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/lib/pq/oid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail-go/pkg/codec"
	"github.com/qail-io/qail-go/pkg/types"
)

func testRow(fields []codec.FieldDescription, values [][]byte) Row {
	return Row{fields: fields, values: values}
}

func binaryField(typ oid.Oid) codec.FieldDescription {
	return codec.FieldDescription{TypeOID: typ, Format: types.BinaryFormat}
}

func textField(typ oid.Oid) codec.FieldDescription {
	return codec.FieldDescription{TypeOID: typ, Format: types.TextFormat}
}

func TestRowGetInt(t *testing.T) {
	t.Parallel()

	int2 := []byte{0x00, 0x07}
	int4 := make([]byte, 4)
	binary.BigEndian.PutUint32(int4, uint32(0xfffffff9)) // -7
	int8 := make([]byte, 8)
	binary.BigEndian.PutUint64(int8, uint64(1<<40))

	row := testRow(
		[]codec.FieldDescription{
			binaryField(oid.T_int2),
			binaryField(oid.T_int4),
			binaryField(oid.T_int8),
			textField(oid.T_int4),
		},
		[][]byte{int2, int4, int8, []byte("1234")},
	)

	value, err := row.GetInt64(0)
	require.NoError(t, err)
	assert.Equal(t, int64(7), value)

	i32, err := row.GetInt32(1)
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i32)

	value, err = row.GetInt64(2)
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), value)

	i32, err = row.GetInt32(3)
	require.NoError(t, err)
	assert.Equal(t, int32(1234), i32)

	// an int8 value beyond the int32 range must not silently truncate
	_, err = row.GetInt32(2)
	require.ErrorIs(t, err, ErrTypeDecode)
}

func TestRowGetFloat(t *testing.T) {
	t.Parallel()

	float4 := make([]byte, 4)
	binary.BigEndian.PutUint32(float4, math.Float32bits(1.5))
	float8 := make([]byte, 8)
	binary.BigEndian.PutUint64(float8, math.Float64bits(-2.25))

	row := testRow(
		[]codec.FieldDescription{
			binaryField(oid.T_float4),
			binaryField(oid.T_float8),
			textField(oid.T_float8),
		},
		[][]byte{float4, float8, []byte("3.5")},
	)

	value, err := row.GetFloat64(0)
	require.NoError(t, err)
	assert.Equal(t, 1.5, value)

	value, err = row.GetFloat64(1)
	require.NoError(t, err)
	assert.Equal(t, -2.25, value)

	value, err = row.GetFloat64(2)
	require.NoError(t, err)
	assert.Equal(t, 3.5, value)
}

func TestRowGetBool(t *testing.T) {
	t.Parallel()

	row := testRow(
		[]codec.FieldDescription{
			binaryField(oid.T_bool),
			binaryField(oid.T_bool),
			textField(oid.T_bool),
			textField(oid.T_bool),
		},
		[][]byte{{0x01}, {0x00}, []byte("t"), []byte("f")},
	)

	for index, expected := range []bool{true, false, true, false} {
		value, err := row.GetBool(index)
		require.NoError(t, err)
		assert.Equal(t, expected, value)
	}
}

func TestRowGetString(t *testing.T) {
	t.Parallel()

	uuid := []byte{
		0x0f, 0x1e, 0x2d, 0x3c, 0x4b, 0x5a, 0x69, 0x78,
		0x87, 0x96, 0xa5, 0xb4, 0xc3, 0xd2, 0xe1, 0xf0,
	}
	jsonb := append([]byte{1}, []byte(`{"a":1}`)...)

	row := testRow(
		[]codec.FieldDescription{
			textField(oid.T_text),
			binaryField(oid.T_uuid),
			binaryField(oid.T_jsonb),
		},
		[][]byte{[]byte("hello"), uuid, jsonb},
	)

	value, err := row.GetString(0)
	require.NoError(t, err)
	assert.Equal(t, "hello", value)

	value, err = row.GetString(1)
	require.NoError(t, err)
	assert.Equal(t, "0f1e2d3c-4b5a-6978-8796-a5b4c3d2e1f0", value)

	value, err = row.GetString(2)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, value)
}

func TestRowGetBytes(t *testing.T) {
	t.Parallel()

	row := testRow(
		[]codec.FieldDescription{
			binaryField(oid.T_bytea),
			textField(oid.T_bytea),
		},
		[][]byte{{0xde, 0xad}, []byte(`\xbeef`)},
	)

	value, err := row.GetBytes(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, value)

	value, err = row.GetBytes(1)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xbe, 0xef}, value)
}

func TestRowGetNumeric(t *testing.T) {
	t.Parallel()

	row := testRow(
		[]codec.FieldDescription{textField(oid.T_numeric)},
		[][]byte{[]byte("12.34")},
	)

	value, err := row.GetNumeric(0)
	require.NoError(t, err)
	assert.Equal(t, "12.34", value.String())
}

func TestRowNullHandling(t *testing.T) {
	t.Parallel()

	row := testRow(
		[]codec.FieldDescription{textField(oid.T_int4), textField(oid.T_text)},
		[][]byte{nil, nil},
	)

	require.True(t, row.IsNull(0))

	_, err := row.GetInt32(0)
	require.ErrorIs(t, err, ErrNullValue)

	_, err = row.GetBool(0)
	require.ErrorIs(t, err, ErrNullValue)

	// string and byte accessors report NULL as their zero value
	value, err := row.GetString(1)
	require.NoError(t, err)
	assert.Empty(t, value)

	raw, err := row.GetBytes(1)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestRowIndexOutOfBounds(t *testing.T) {
	t.Parallel()

	row := testRow([]codec.FieldDescription{textField(oid.T_int4)}, [][]byte{[]byte("1")})

	_, err := row.GetInt32(1)
	require.ErrorIs(t, err, ErrColumnIndexOutOfBounds)

	_, err = row.GetString(-1)
	require.ErrorIs(t, err, ErrColumnIndexOutOfBounds)

	assert.True(t, row.IsNull(9))
}

func TestRowDecodeMismatch(t *testing.T) {
	t.Parallel()

	row := testRow(
		[]codec.FieldDescription{binaryField(oid.T_text), textField(oid.T_int4)},
		[][]byte{[]byte("abc"), []byte("abc")},
	)

	_, err := row.GetInt64(0)
	require.ErrorIs(t, err, ErrTypeDecode)

	_, err = row.GetInt64(1)
	require.ErrorIs(t, err, ErrTypeDecode)
}

func TestRowScan(t *testing.T) {
	t.Parallel()

	row := testRow(
		[]codec.FieldDescription{textField(oid.T_int4), textField(oid.T_text)},
		[][]byte{[]byte("42"), []byte("ann")},
	)

	var id int32
	require.NoError(t, row.Scan(0, &id))
	assert.Equal(t, int32(42), id)

	var name string
	require.NoError(t, row.Scan(1, &name))
	assert.Equal(t, "ann", name)
}
