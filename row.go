package qail

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/lib/pq/oid"
	"github.com/qail-io/qail-go/pkg/codec"
	"github.com/qail-io/qail-go/pkg/types"
	"github.com/shopspring/decimal"
)

// Rows carries the result set of a single command: the shared field
// descriptor vector and the row values. Rows own their backing buffers, the
// connection read buffer is never referenced after a fetch returns.
type Rows struct {
	Fields  []codec.FieldDescription
	Tag     string
	values  [][][]byte
	typeMap *pgtype.Map
}

// Len returns the number of rows in the result set.
func (rows *Rows) Len() int {
	return len(rows.values)
}

// Row returns the row at the given zero-based index.
func (rows *Rows) Row(index int) Row {
	return Row{fields: rows.Fields, values: rows.values[index], typeMap: rows.typeMap}
}

// append copies the given column slices into a row owned by the result set.
func (rows *Rows) append(columns [][]byte) {
	row := make([][]byte, len(columns))
	for index, column := range columns {
		if column == nil {
			continue
		}

		row[index] = make([]byte, len(column))
		copy(row[index], column)
	}

	rows.values = append(rows.values, row)
}

// Row is an indexable, immutable bag of column bytes sharing the field
// descriptors of its result set. Column accessors decode on demand from the
// column bytes using the field type OID and format code.
type Row struct {
	fields  []codec.FieldDescription
	values  [][]byte
	typeMap *pgtype.Map
}

// Len returns the number of columns in the row.
func (row Row) Len() int {
	return len(row.values)
}

func (row Row) column(index int) ([]byte, codec.FieldDescription, error) {
	if index < 0 || index >= len(row.values) {
		return nil, codec.FieldDescription{}, fmt.Errorf("column %d of %d: %w", index, len(row.values), ErrColumnIndexOutOfBounds)
	}

	var field codec.FieldDescription
	if index < len(row.fields) {
		field = row.fields[index]
	}

	return row.values[index], field, nil
}

// IsNull returns whether the column at the given index holds SQL NULL.
func (row Row) IsNull(index int) bool {
	if index < 0 || index >= len(row.values) {
		return true
	}

	return row.values[index] == nil
}

// GetString decodes the column at the given index as a string. SQL NULL
// decodes to the empty string, use [Row.IsNull] to distinguish.
func (row Row) GetString(index int) (string, error) {
	value, field, err := row.column(index)
	if err != nil {
		return "", err
	}
	if value == nil {
		return "", nil
	}

	switch field.TypeOID {
	case oid.T_uuid:
		if field.Format == types.BinaryFormat {
			return formatUUID(index, value)
		}
	case oid.T_jsonb:
		if field.Format == types.BinaryFormat {
			// binary jsonb carries a single version byte before the JSON text
			if len(value) < 1 || value[0] != 1 {
				return "", newTypeDecodeError(index, "jsonb", nil)
			}
			return string(value[1:]), nil
		}
	case oid.T_bytea:
		if field.Format == types.TextFormat {
			return string(value), nil
		}
	}

	return string(value), nil
}

// GetBytes returns the raw column bytes at the given index. SQL NULL returns
// nil. Text-format bytea values are hex decoded.
func (row Row) GetBytes(index int) ([]byte, error) {
	value, field, err := row.column(index)
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, nil
	}

	if field.TypeOID == oid.T_bytea && field.Format == types.TextFormat {
		if len(value) < 2 || value[0] != '\\' || value[1] != 'x' {
			return nil, newTypeDecodeError(index, "bytea", nil)
		}

		decoded := make([]byte, hex.DecodedLen(len(value)-2))
		if _, err := hex.Decode(decoded, value[2:]); err != nil {
			return nil, newTypeDecodeError(index, "bytea", err)
		}

		return decoded, nil
	}

	return value, nil
}

// GetInt32 decodes the column at the given index as an int32.
func (row Row) GetInt32(index int) (int32, error) {
	value, err := row.GetInt64(index)
	if err != nil {
		return 0, err
	}

	if value < math.MinInt32 || value > math.MaxInt32 {
		return 0, newTypeDecodeError(index, "int32", fmt.Errorf("value %d out of range", value))
	}

	return int32(value), nil
}

// GetInt64 decodes the column at the given index as an int64. Binary columns
// must carry an int2, int4 or int8 OID, text columns are parsed as decimal
// strings.
func (row Row) GetInt64(index int) (int64, error) {
	value, field, err := row.column(index)
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, fmt.Errorf("column %d: %w", index, ErrNullValue)
	}

	if field.Format == types.BinaryFormat {
		switch field.TypeOID {
		case oid.T_int2:
			if len(value) != 2 {
				return 0, newTypeDecodeError(index, "int64", nil)
			}
			return int64(int16(binary.BigEndian.Uint16(value))), nil
		case oid.T_int4:
			if len(value) != 4 {
				return 0, newTypeDecodeError(index, "int64", nil)
			}
			return int64(int32(binary.BigEndian.Uint32(value))), nil
		case oid.T_int8:
			if len(value) != 8 {
				return 0, newTypeDecodeError(index, "int64", nil)
			}
			return int64(binary.BigEndian.Uint64(value)), nil
		default:
			return 0, newTypeDecodeError(index, "int64", fmt.Errorf("unexpected type oid %d", field.TypeOID))
		}
	}

	parsed, err := strconv.ParseInt(string(value), 10, 64)
	if err != nil {
		return 0, newTypeDecodeError(index, "int64", err)
	}

	return parsed, nil
}

// GetFloat64 decodes the column at the given index as a float64.
func (row Row) GetFloat64(index int) (float64, error) {
	value, field, err := row.column(index)
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, fmt.Errorf("column %d: %w", index, ErrNullValue)
	}

	if field.Format == types.BinaryFormat {
		switch field.TypeOID {
		case oid.T_float4:
			if len(value) != 4 {
				return 0, newTypeDecodeError(index, "float64", nil)
			}
			return float64(math.Float32frombits(binary.BigEndian.Uint32(value))), nil
		case oid.T_float8:
			if len(value) != 8 {
				return 0, newTypeDecodeError(index, "float64", nil)
			}
			return math.Float64frombits(binary.BigEndian.Uint64(value)), nil
		default:
			return 0, newTypeDecodeError(index, "float64", fmt.Errorf("unexpected type oid %d", field.TypeOID))
		}
	}

	parsed, err := strconv.ParseFloat(string(value), 64)
	if err != nil {
		return 0, newTypeDecodeError(index, "float64", err)
	}

	return parsed, nil
}

// GetBool decodes the column at the given index as a bool. Binary booleans
// are a single 0x00/0x01 byte, text booleans the strings "t" and "f".
func (row Row) GetBool(index int) (bool, error) {
	value, field, err := row.column(index)
	if err != nil {
		return false, err
	}
	if value == nil {
		return false, fmt.Errorf("column %d: %w", index, ErrNullValue)
	}

	if field.Format == types.BinaryFormat {
		if len(value) != 1 || value[0] > 1 {
			return false, newTypeDecodeError(index, "bool", nil)
		}
		return value[0] == 1, nil
	}

	switch string(value) {
	case "t", "true":
		return true, nil
	case "f", "false":
		return false, nil
	default:
		return false, newTypeDecodeError(index, "bool", fmt.Errorf("unexpected value %q", value))
	}
}

// GetNumeric decodes the column at the given index as an arbitrary precision
// decimal.
func (row Row) GetNumeric(index int) (decimal.Decimal, error) {
	value, field, err := row.column(index)
	if err != nil {
		return decimal.Zero, err
	}
	if value == nil {
		return decimal.Zero, fmt.Errorf("column %d: %w", index, ErrNullValue)
	}

	if field.Format == types.BinaryFormat {
		var numeric pgtype.Numeric
		if err := row.scanMap().Scan(uint32(field.TypeOID), int16(field.Format), value, &numeric); err != nil {
			return decimal.Zero, newTypeDecodeError(index, "numeric", err)
		}
		if !numeric.Valid || numeric.Int == nil {
			return decimal.Zero, newTypeDecodeError(index, "numeric", nil)
		}

		return decimal.NewFromBigInt(numeric.Int, numeric.Exp), nil
	}

	parsed, err := decimal.NewFromString(string(value))
	if err != nil {
		return decimal.Zero, newTypeDecodeError(index, "numeric", err)
	}

	return parsed, nil
}

// GetUUID decodes the column at the given index as the canonical 36
// character textual UUID.
func (row Row) GetUUID(index int) (string, error) {
	value, field, err := row.column(index)
	if err != nil {
		return "", err
	}
	if value == nil {
		return "", fmt.Errorf("column %d: %w", index, ErrNullValue)
	}

	if field.Format == types.BinaryFormat {
		return formatUUID(index, value)
	}

	if len(value) != 36 {
		return "", newTypeDecodeError(index, "uuid", nil)
	}

	return string(value), nil
}

// Scan decodes the column at the given index into the given destination
// using the pgtype codec registry, supporting targets beyond the narrow
// typed accessor set. Arrays, timestamps and ranges amongst others.
func (row Row) Scan(index int, dest any) error {
	value, field, err := row.column(index)
	if err != nil {
		return err
	}

	err = row.scanMap().Scan(uint32(field.TypeOID), int16(field.Format), value, dest)
	if err != nil {
		return newTypeDecodeError(index, fmt.Sprintf("%T", dest), err)
	}

	return nil
}

func (row Row) scanMap() *pgtype.Map {
	if row.typeMap != nil {
		return row.typeMap
	}

	return pgtype.NewMap()
}

func formatUUID(index int, value []byte) (string, error) {
	if len(value) != 16 {
		return "", newTypeDecodeError(index, "uuid", nil)
	}

	encoded := make([]byte, 36)
	hex.Encode(encoded[0:8], value[0:4])
	encoded[8] = '-'
	hex.Encode(encoded[9:13], value[4:6])
	encoded[13] = '-'
	hex.Encode(encoded[14:18], value[6:8])
	encoded[18] = '-'
	hex.Encode(encoded[19:23], value[8:10])
	encoded[23] = '-'
	hex.Encode(encoded[24:36], value[10:16])

	return string(encoded), nil
}
