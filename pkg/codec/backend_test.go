package codec

import (
	"bytes"
	"testing"

	"github.com/lib/pq/oid"
	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail-go/codes"
	"github.com/qail-io/qail-go/pkg/buffer"
	"github.com/qail-io/qail-go/pkg/types"
)

// backendFrame writes a scripted backend message and returns a reader
// positioned inside its payload.
func backendFrame(t *testing.T, tag types.BackendMessage, build func(writer *buffer.Writer)) *buffer.Reader {
	sink := bytes.NewBuffer(nil)
	writer := buffer.NewWriter(slogt.New(t), sink)

	writer.Start(types.FrontendMessage(tag))
	build(writer)
	require.NoError(t, writer.End())

	reader := buffer.NewReader(slogt.New(t), sink, buffer.DefaultBufferSize)
	typed, _, err := reader.ReadTypedMsg()
	require.NoError(t, err)
	require.Equal(t, tag, typed)

	return reader
}

func TestReadAuth(t *testing.T) {
	t.Parallel()

	t.Run("ok", func(t *testing.T) {
		reader := backendFrame(t, types.BackendAuth, func(writer *buffer.Writer) {
			writer.AddInt32(0)
		})

		request, err := ReadAuth(reader)
		require.NoError(t, err)
		assert.Equal(t, types.AuthOK, request.Type)
	})

	t.Run("md5 salt", func(t *testing.T) {
		reader := backendFrame(t, types.BackendAuth, func(writer *buffer.Writer) {
			writer.AddInt32(5)
			writer.AddBytes([]byte{0xde, 0xad, 0xbe, 0xef})
		})

		request, err := ReadAuth(reader)
		require.NoError(t, err)
		assert.Equal(t, types.AuthMD5Password, request.Type)

		// the salt is the 4 raw bytes following the sub-code, not encoded
		assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, request.Salt)
	})

	t.Run("sasl mechanisms", func(t *testing.T) {
		reader := backendFrame(t, types.BackendAuth, func(writer *buffer.Writer) {
			writer.AddInt32(10)
			writer.AddString("SCRAM-SHA-256")
			writer.AddNullTerminate()
			writer.AddNullTerminate()
		})

		request, err := ReadAuth(reader)
		require.NoError(t, err)
		assert.Equal(t, types.AuthSASL, request.Type)
		assert.Equal(t, []string{"SCRAM-SHA-256"}, request.Mechanisms)
	})

	t.Run("unsupported", func(t *testing.T) {
		reader := backendFrame(t, types.BackendAuth, func(writer *buffer.Writer) {
			writer.AddInt32(7)
		})

		_, err := ReadAuth(reader)
		require.Error(t, err)
	})
}

func TestReadBackendKeyData(t *testing.T) {
	t.Parallel()

	reader := backendFrame(t, types.BackendKeyData, func(writer *buffer.Writer) {
		writer.AddInt32(4242)
		writer.AddInt32(98765)
	})

	keys, err := ReadBackendKeyData(reader)
	require.NoError(t, err)
	assert.Equal(t, uint32(4242), keys.ProcessID)
	assert.Equal(t, uint32(98765), keys.SecretKey)
}

func TestReadParameterStatus(t *testing.T) {
	t.Parallel()

	reader := backendFrame(t, types.BackendParameterStatus, func(writer *buffer.Writer) {
		writer.AddString("server_version")
		writer.AddNullTerminate()
		writer.AddString("16.0")
		writer.AddNullTerminate()
	})

	name, value, err := ReadParameterStatus(reader)
	require.NoError(t, err)
	assert.Equal(t, "server_version", name)
	assert.Equal(t, "16.0", value)
}

func TestReadReadyForQuery(t *testing.T) {
	t.Parallel()

	for _, status := range []types.TxStatus{types.TxIdle, types.TxActive, types.TxFailed} {
		reader := backendFrame(t, types.BackendReady, func(writer *buffer.Writer) {
			writer.AddByte(byte(status))
		})

		parsed, err := ReadReadyForQuery(reader)
		require.NoError(t, err)
		assert.Equal(t, status, parsed)
	}

	reader := backendFrame(t, types.BackendReady, func(writer *buffer.Writer) {
		writer.AddByte('?')
	})

	_, err := ReadReadyForQuery(reader)
	require.Error(t, err)
}

func TestReadRowDescription(t *testing.T) {
	t.Parallel()

	reader := backendFrame(t, types.BackendRowDescription, func(writer *buffer.Writer) {
		writer.AddInt16(2)

		writer.AddString("id")
		writer.AddNullTerminate()
		writer.AddInt32(1000)            // table oid
		writer.AddInt16(1)               // column index
		writer.AddInt32(int32(oid.T_int4))
		writer.AddInt16(4)               // type length
		writer.AddInt32(-1)              // type modifier
		writer.AddInt16(1)               // binary format

		writer.AddString("name")
		writer.AddNullTerminate()
		writer.AddInt32(1000)
		writer.AddInt16(2)
		writer.AddInt32(int32(oid.T_text))
		writer.AddInt16(-1)
		writer.AddInt32(-1)
		writer.AddInt16(0)
	})

	fields, err := ReadRowDescription(reader)
	require.NoError(t, err)
	require.Len(t, fields, 2)

	assert.Equal(t, "id", fields[0].Name)
	assert.Equal(t, uint32(1000), fields[0].TableOID)
	assert.Equal(t, uint16(1), fields[0].ColumnIndex)
	assert.Equal(t, oid.T_int4, fields[0].TypeOID)
	assert.Equal(t, int16(4), fields[0].TypeLen)
	assert.Equal(t, int32(-1), fields[0].TypeModifier)
	assert.Equal(t, types.BinaryFormat, fields[0].Format)

	assert.Equal(t, "name", fields[1].Name)
	assert.Equal(t, oid.T_text, fields[1].TypeOID)
	assert.Equal(t, types.TextFormat, fields[1].Format)
}

func TestReadDataRow(t *testing.T) {
	t.Parallel()

	reader := backendFrame(t, types.BackendDataRow, func(writer *buffer.Writer) {
		writer.AddInt16(3)
		writer.AddInt32(2)
		writer.AddBytes([]byte("42"))
		writer.AddInt32(-1) // NULL
		writer.AddInt32(0)  // empty, distinct from NULL
	})

	columns, err := ReadDataRow(reader)
	require.NoError(t, err)
	require.Len(t, columns, 3)
	assert.Equal(t, []byte("42"), columns[0])
	assert.Nil(t, columns[1])
	assert.NotNil(t, columns[2])
	assert.Empty(t, columns[2])
}

func TestReadCommandComplete(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		tag  string
		rows int64
	}{
		"select": {tag: "SELECT 10", rows: 10},
		"insert": {tag: "INSERT 0 3", rows: 3},
		"begin":  {tag: "BEGIN", rows: 0},
	}

	for name, test := range tests {
		test := test
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			reader := backendFrame(t, types.BackendCommandComplete, func(writer *buffer.Writer) {
				writer.AddString(test.tag)
				writer.AddNullTerminate()
			})

			tag, rows, err := ReadCommandComplete(reader)
			require.NoError(t, err)
			assert.Equal(t, test.tag, tag)
			assert.Equal(t, test.rows, rows)
		})
	}
}

func TestReadError(t *testing.T) {
	t.Parallel()

	reader := backendFrame(t, types.BackendErrorResponse, func(writer *buffer.Writer) {
		writer.AddByte('S')
		writer.AddString("ERROR")
		writer.AddNullTerminate()
		writer.AddByte('C')
		writer.AddString("42P01")
		writer.AddNullTerminate()
		writer.AddByte('M')
		writer.AddString(`relation "missing" does not exist`)
		writer.AddNullTerminate()
		writer.AddByte('P')
		writer.AddString("15")
		writer.AddNullTerminate()
		writer.AddByte('t')
		writer.AddString("missing")
		writer.AddNullTerminate()
		writer.AddByte('Z') // unrecognized field, skipped
		writer.AddString("ignored")
		writer.AddNullTerminate()
		writer.AddNullTerminate()
	})

	server, err := ReadError(reader)
	require.NoError(t, err)
	assert.Equal(t, codes.UndefinedTable, server.Code)
	assert.Equal(t, `relation "missing" does not exist`, server.Message)
	assert.Equal(t, int32(15), server.Position)
	assert.Equal(t, "missing", server.Table)
}

func TestReadNotification(t *testing.T) {
	t.Parallel()

	reader := backendFrame(t, types.BackendNotification, func(writer *buffer.Writer) {
		writer.AddInt32(4242)
		writer.AddString("jobs")
		writer.AddNullTerminate()
		writer.AddString("payload")
		writer.AddNullTerminate()
	})

	notification, err := ReadNotification(reader)
	require.NoError(t, err)
	assert.Equal(t, uint32(4242), notification.ProcessID)
	assert.Equal(t, "jobs", notification.Channel)
	assert.Equal(t, "payload", notification.Payload)
}

func TestReadCopyResponse(t *testing.T) {
	t.Parallel()

	reader := backendFrame(t, types.BackendCopyInResponse, func(writer *buffer.Writer) {
		writer.AddByte(0)
		writer.AddInt16(2)
		writer.AddInt16(0)
		writer.AddInt16(0)
	})

	response, err := ReadCopyResponse(reader)
	require.NoError(t, err)
	assert.Equal(t, types.TextFormat, response.OverallFormat)
	assert.Len(t, response.ColumnFormats, 2)
}
