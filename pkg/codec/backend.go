package codec

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq/oid"
	"github.com/qail-io/qail-go/codes"
	qailerr "github.com/qail-io/qail-go/errors"
	"github.com/qail-io/qail-go/pkg/buffer"
	"github.com/qail-io/qail-go/pkg/types"
)

// AuthRequest represents a decoded backend Authentication message. The Type
// field selects which of the remaining fields carry a payload.
type AuthRequest struct {
	Type       types.AuthType
	Salt       []byte   // MD5Password: the 4 raw bytes following the sub-code
	Mechanisms []string // SASL: advertised mechanism names
	Data       []byte   // SASLContinue/SASLFinal: mechanism data
}

// ReadAuth decodes an Authentication message from the current reader message.
func ReadAuth(reader *buffer.Reader) (AuthRequest, error) {
	code, err := reader.GetUint32()
	if err != nil {
		return AuthRequest{}, err
	}

	request := AuthRequest{Type: types.AuthType(code)}
	switch request.Type {
	case types.AuthOK, types.AuthCleartextPassword:
	case types.AuthMD5Password:
		request.Salt, err = reader.GetBytes(4)
		if err != nil {
			return request, err
		}
	case types.AuthSASL:
		// NOTE: the mechanism list is a sequence of NUL-terminated names
		// ended by an empty name.
		for {
			mechanism, err := reader.GetString()
			if err != nil {
				return request, err
			}
			if mechanism == "" {
				break
			}
			request.Mechanisms = append(request.Mechanisms, mechanism)
		}
	case types.AuthSASLContinue, types.AuthSASLFinal:
		request.Data = reader.Remaining()
	default:
		return request, fmt.Errorf("unsupported authentication sub-code: %d", code)
	}

	return request, nil
}

// KeyData represents the backend key data used to issue out-of-band cancel
// requests.
type KeyData struct {
	ProcessID uint32
	SecretKey uint32
}

// ReadBackendKeyData decodes a BackendKeyData message.
func ReadBackendKeyData(reader *buffer.Reader) (KeyData, error) {
	pid, err := reader.GetUint32()
	if err != nil {
		return KeyData{}, err
	}

	key, err := reader.GetUint32()
	if err != nil {
		return KeyData{}, err
	}

	return KeyData{ProcessID: pid, SecretKey: key}, nil
}

// ReadParameterStatus decodes a ParameterStatus message into its name/value
// pair.
func ReadParameterStatus(reader *buffer.Reader) (name, value string, err error) {
	name, err = reader.GetString()
	if err != nil {
		return "", "", err
	}

	value, err = reader.GetString()
	if err != nil {
		return "", "", err
	}

	return name, value, nil
}

// ReadReadyForQuery decodes a ReadyForQuery message returning the transaction
// status byte.
func ReadReadyForQuery(reader *buffer.Reader) (types.TxStatus, error) {
	status, err := reader.GetByte()
	if err != nil {
		return 0, err
	}

	switch types.TxStatus(status) {
	case types.TxIdle, types.TxActive, types.TxFailed:
		return types.TxStatus(status), nil
	default:
		return 0, fmt.Errorf("unknown transaction status byte: %q", status)
	}
}

// FieldDescription carries the metadata of a single column inside a
// RowDescription message.
type FieldDescription struct {
	Name         string
	TableOID     uint32
	ColumnIndex  uint16
	TypeOID      oid.Oid
	TypeLen      int16
	TypeModifier int32
	Format       types.FormatCode
}

// ReadRowDescription decodes a RowDescription message into the field
// descriptor vector used to interpret subsequent DataRow payloads.
func ReadRowDescription(reader *buffer.Reader) ([]FieldDescription, error) {
	count, err := reader.GetUint16()
	if err != nil {
		return nil, err
	}

	fields := make([]FieldDescription, count)
	for i := uint16(0); i < count; i++ {
		name, err := reader.GetString()
		if err != nil {
			return nil, err
		}

		table, err := reader.GetUint32()
		if err != nil {
			return nil, err
		}

		column, err := reader.GetUint16()
		if err != nil {
			return nil, err
		}

		typ, err := reader.GetUint32()
		if err != nil {
			return nil, err
		}

		length, err := reader.GetInt16()
		if err != nil {
			return nil, err
		}

		modifier, err := reader.GetInt32()
		if err != nil {
			return nil, err
		}

		format, err := reader.GetUint16()
		if err != nil {
			return nil, err
		}

		fields[i] = FieldDescription{
			Name:         name,
			TableOID:     table,
			ColumnIndex:  column,
			TypeOID:      oid.Oid(typ),
			TypeLen:      length,
			TypeModifier: modifier,
			Format:       types.FormatCode(format),
		}
	}

	return fields, nil
}

// ReadDataRow decodes a DataRow message. The returned column slices reference
// the reader buffer and must be copied before the next message is read. A nil
// column represents SQL NULL.
func ReadDataRow(reader *buffer.Reader) ([][]byte, error) {
	count, err := reader.GetUint16()
	if err != nil {
		return nil, err
	}

	columns := make([][]byte, count)
	for i := uint16(0); i < count; i++ {
		length, err := reader.GetInt32()
		if err != nil {
			return nil, err
		}

		columns[i], err = reader.GetBytes(int(length))
		if err != nil {
			return nil, err
		}
	}

	return columns, nil
}

// ReadCommandComplete decodes a CommandComplete message returning the command
// tag and the rows-affected count parsed from its trailing integer. Tags
// without a count, such as "BEGIN", report zero rows.
func ReadCommandComplete(reader *buffer.Reader) (tag string, rows int64, err error) {
	tag, err = reader.GetString()
	if err != nil {
		return "", 0, err
	}

	if index := strings.LastIndexByte(tag, ' '); index != -1 {
		if parsed, err := strconv.ParseInt(tag[index+1:], 10, 64); err == nil {
			rows = parsed
		}
	}

	return tag, rows, nil
}

// http://www.postgresql.org/docs/current/static/protocol-error-fields.html
const (
	errFieldSeverity       byte = 'S'
	errFieldSQLState       byte = 'C'
	errFieldMsgPrimary     byte = 'M'
	errFieldDetail         byte = 'D'
	errFieldHint           byte = 'H'
	errFieldPosition       byte = 'P'
	errFieldSchema         byte = 's'
	errFieldTable          byte = 't'
	errFieldColumn         byte = 'c'
	errFieldConstraintName byte = 'n'
	errFieldSrcFile        byte = 'F'
	errFieldSrcLine        byte = 'L'
	errFieldSrcFunction    byte = 'R'
)

// ReadError decodes an ErrorResponse or NoticeResponse message into the full
// set of recognized error fields. Unrecognized fields are skipped as the
// protocol mandates.
func ReadError(reader *buffer.Reader) (*qailerr.Error, error) {
	result := &qailerr.Error{Code: codes.Uncategorized}
	var source qailerr.Source
	sourced := false

	for {
		field, err := reader.GetByte()
		if err != nil {
			return nil, err
		}

		// a zero field code terminates the message
		if field == 0 {
			break
		}

		value, err := reader.GetString()
		if err != nil {
			return nil, err
		}

		switch field {
		case errFieldSeverity:
			result.Severity = qailerr.Severity(value)
		case errFieldSQLState:
			result.Code = codes.Code(value)
		case errFieldMsgPrimary:
			result.Message = value
		case errFieldDetail:
			result.Detail = value
		case errFieldHint:
			result.Hint = value
		case errFieldPosition:
			if position, err := strconv.ParseInt(value, 10, 32); err == nil {
				result.Position = int32(position)
			}
		case errFieldSchema:
			result.Schema = value
		case errFieldTable:
			result.Table = value
		case errFieldColumn:
			result.Column = value
		case errFieldConstraintName:
			result.ConstraintName = value
		case errFieldSrcFile:
			source.File = value
			sourced = true
		case errFieldSrcLine:
			if line, err := strconv.ParseInt(value, 10, 32); err == nil {
				source.Line = int32(line)
			}
			sourced = true
		case errFieldSrcFunction:
			source.Function = value
			sourced = true
		}
	}

	if sourced {
		result.Source = &source
	}

	return result, nil
}

// Notification represents a decoded NotificationResponse message.
type Notification struct {
	ProcessID uint32
	Channel   string
	Payload   string
}

// ReadNotification decodes a NotificationResponse message.
func ReadNotification(reader *buffer.Reader) (Notification, error) {
	pid, err := reader.GetUint32()
	if err != nil {
		return Notification{}, err
	}

	channel, err := reader.GetString()
	if err != nil {
		return Notification{}, err
	}

	payload, err := reader.GetString()
	if err != nil {
		return Notification{}, err
	}

	return Notification{ProcessID: pid, Channel: channel, Payload: payload}, nil
}

// ReadParameterDescription decodes a ParameterDescription message returning
// the parameter type OIDs of a described statement.
func ReadParameterDescription(reader *buffer.Reader) ([]oid.Oid, error) {
	count, err := reader.GetUint16()
	if err != nil {
		return nil, err
	}

	oids := make([]oid.Oid, count)
	for i := uint16(0); i < count; i++ {
		typ, err := reader.GetUint32()
		if err != nil {
			return nil, err
		}

		oids[i] = oid.Oid(typ)
	}

	return oids, nil
}

// CopyResponse represents a decoded CopyInResponse or CopyOutResponse
// message.
type CopyResponse struct {
	OverallFormat types.FormatCode
	ColumnFormats []types.FormatCode
}

// ReadCopyResponse decodes a CopyInResponse or CopyOutResponse message.
func ReadCopyResponse(reader *buffer.Reader) (CopyResponse, error) {
	overall, err := reader.GetByte()
	if err != nil {
		return CopyResponse{}, err
	}

	count, err := reader.GetUint16()
	if err != nil {
		return CopyResponse{}, err
	}

	response := CopyResponse{
		OverallFormat: types.FormatCode(overall),
		ColumnFormats: make([]types.FormatCode, count),
	}

	for i := uint16(0); i < count; i++ {
		format, err := reader.GetUint16()
		if err != nil {
			return response, err
		}

		response.ColumnFormats[i] = types.FormatCode(format)
	}

	return response, nil
}
