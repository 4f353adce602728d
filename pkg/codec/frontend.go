// Package codec implements the PostgreSQL v3 message codec: encoders for
// every frontend message, decoders for every backend message and the bridge
// which materializes a command into an extended-protocol message sequence.
// All multi-byte integers are big-endian as mandated by the protocol.
package codec

import (
	"fmt"
	"math"

	"github.com/lib/pq/oid"
	"github.com/qail-io/qail-go/pkg/buffer"
	"github.com/qail-io/qail-go/pkg/types"
)

// MaxBindParameters is the maximum number of parameter values a single Bind
// message can carry. This is not documented by Postgres, but is a consequence
// of the fact that a 16-bit integer in the wire format is used to indicate
// the number of values to bind during prepared statement execution.
const MaxBindParameters = math.MaxUint16

// WriteStartup writes the startup packet announcing protocol version 3.0 and
// the given connection parameters. The startup packet carries no type byte.
// https://www.postgresql.org/docs/current/protocol-message-formats.html
func WriteStartup(writer *buffer.Writer, user, database string, params map[string]string) error {
	writer.StartUntyped()
	writer.AddInt32(int32(types.Version30))
	writer.AddString("user")
	writer.AddNullTerminate()
	writer.AddString(user)
	writer.AddNullTerminate()
	writer.AddString("database")
	writer.AddNullTerminate()
	writer.AddString(database)
	writer.AddNullTerminate()

	for key, value := range params {
		writer.AddString(key)
		writer.AddNullTerminate()
		writer.AddString(value)
		writer.AddNullTerminate()
	}

	writer.AddNullTerminate()
	return writer.End()
}

// WriteSSLRequest writes the SSLRequest prelude. The server answers with a
// single raw byte, 'S' to proceed with a TLS handshake or 'N' to continue in
// clear text.
func WriteSSLRequest(writer *buffer.Writer) error {
	writer.StartUntyped()
	writer.AddInt32(int32(types.VersionSSLRequest))
	return writer.End()
}

// WriteCancelRequest writes an out-of-band cancel request carrying the backend
// key data of the connection whose query should be canceled.
func WriteCancelRequest(writer *buffer.Writer, processID, secretKey uint32) error {
	writer.StartUntyped()
	writer.AddInt32(int32(types.VersionCancel))
	writer.AddInt32(int32(processID))
	writer.AddInt32(int32(secretKey))
	return writer.End()
}

// WritePassword writes a password message. The payload is the cleartext
// password, the computed MD5 digest or a SASL mechanism response depending on
// the authentication exchange.
func WritePassword(writer *buffer.Writer, password []byte) error {
	writer.Start(types.FrontendPassword)
	writer.AddBytes(password)
	writer.AddNullTerminate()
	return writer.End()
}

// WriteSASLInitialResponse writes the first message of a SASL exchange naming
// the selected mechanism and carrying the client-first message.
func WriteSASLInitialResponse(writer *buffer.Writer, mechanism string, response []byte) error {
	writer.Start(types.FrontendPassword)
	writer.AddString(mechanism)
	writer.AddNullTerminate()
	writer.AddInt32(int32(len(response)))
	writer.AddBytes(response)
	return writer.End()
}

// WriteSASLResponse writes a SASL continuation message. The payload is not
// NUL terminated, its length is carried by the frame header.
func WriteSASLResponse(writer *buffer.Writer, response []byte) error {
	writer.Start(types.FrontendPassword)
	writer.AddBytes(response)
	return writer.End()
}

// WriteSimpleQuery writes a simple query message, one round-trip text-only
// query outside the extended protocol.
func WriteSimpleQuery(writer *buffer.Writer, sql string) error {
	writer.Start(types.FrontendSimpleQuery)
	writer.AddString(sql)
	writer.AddNullTerminate()
	return writer.End()
}

// WriteParse writes a parse message registering the given SQL under the given
// statement name. Parameter type OIDs may be empty to leave types unspecified.
func WriteParse(writer *buffer.Writer, name, sql string, paramTypes []oid.Oid) error {
	writer.Start(types.FrontendParse)
	writer.AddString(name)
	writer.AddNullTerminate()
	writer.AddString(sql)
	writer.AddNullTerminate()
	writer.AddInt16(int16(len(paramTypes)))
	for _, typ := range paramTypes {
		writer.AddInt32(int32(typ))
	}
	return writer.End()
}

// WriteBind writes a bind message binding the given parameter values to a
// prepared statement, producing the named portal. A nil parameter value is
// transmitted as SQL NULL (length -1). Empty format slices fall back to the
// text format for every parameter and result column.
func WriteBind(writer *buffer.Writer, portal, statement string, paramFormats []types.FormatCode, params [][]byte, resultFormats []types.FormatCode) error {
	if len(params) > MaxBindParameters {
		return fmt.Errorf("bind carries %d parameter values, the wire format caps at %d", len(params), MaxBindParameters)
	}

	writer.Start(types.FrontendBind)
	writer.AddString(portal)
	writer.AddNullTerminate()
	writer.AddString(statement)
	writer.AddNullTerminate()

	writer.AddInt16(int16(len(paramFormats)))
	for _, format := range paramFormats {
		writer.AddInt16(int16(format))
	}

	writer.AddInt16(int16(len(params)))
	for _, param := range params {
		if param == nil {
			writer.AddInt32(-1)
			continue
		}

		writer.AddInt32(int32(len(param)))
		writer.AddBytes(param)
	}

	writer.AddInt16(int16(len(resultFormats)))
	for _, format := range resultFormats {
		writer.AddInt16(int16(format))
	}

	return writer.End()
}

// WriteDescribe writes a describe message for the given statement or portal.
func WriteDescribe(writer *buffer.Writer, target types.DescribeMessage, name string) error {
	writer.Start(types.FrontendDescribe)
	writer.AddByte(byte(target))
	writer.AddString(name)
	writer.AddNullTerminate()
	return writer.End()
}

// WriteExecute writes an execute message for the given portal. A max of zero
// denotes no row limit.
func WriteExecute(writer *buffer.Writer, portal string, maxRows uint32) error {
	writer.Start(types.FrontendExecute)
	writer.AddString(portal)
	writer.AddNullTerminate()
	writer.AddInt32(int32(maxRows))
	return writer.End()
}

// WriteClose writes a close message releasing the named statement or portal
// on the server side.
func WriteClose(writer *buffer.Writer, target types.DescribeMessage, name string) error {
	writer.Start(types.FrontendClose)
	writer.AddByte(byte(target))
	writer.AddString(name)
	writer.AddNullTerminate()
	return writer.End()
}

// WriteSync writes a sync message, the resynchronization point closing an
// extended-protocol request group. The backend answers the group with exactly
// one ReadyForQuery.
func WriteSync(writer *buffer.Writer) error {
	writer.Start(types.FrontendSync)
	return writer.End()
}

// WriteFlush writes a flush message forcing the backend to deliver pending
// output without closing the request group.
func WriteFlush(writer *buffer.Writer) error {
	writer.Start(types.FrontendFlush)
	return writer.End()
}

// WriteTerminate writes a terminate message announcing an orderly shutdown of
// the connection.
func WriteTerminate(writer *buffer.Writer) error {
	writer.Start(types.FrontendTerminate)
	return writer.End()
}

// WriteCopyData writes a copy-data frame carrying the raw row payload.
func WriteCopyData(writer *buffer.Writer, data []byte) error {
	writer.Start(types.FrontendCopyData)
	writer.AddBytes(data)
	return writer.End()
}

// WriteCopyDone writes the frame terminating a copy-in stream.
func WriteCopyDone(writer *buffer.Writer) error {
	writer.Start(types.FrontendCopyDone)
	return writer.End()
}

// WriteCopyFail writes the frame aborting a copy-in stream with the given
// reason.
func WriteCopyFail(writer *buffer.Writer, reason string) error {
	writer.Start(types.FrontendCopyFail)
	writer.AddString(reason)
	writer.AddNullTerminate()
	return writer.End()
}
