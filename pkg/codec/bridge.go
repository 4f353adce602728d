package codec

import (
	"github.com/lib/pq/oid"
	"github.com/qail-io/qail-go/pkg/ast"
	"github.com/qail-io/qail-go/pkg/buffer"
	"github.com/qail-io/qail-go/pkg/types"
)

// Materialized carries the wire-ready rendition of a single command: the
// rendered SQL and the number of positional parameters it binds.
type Materialized struct {
	SQL        string
	ParamCount int
}

// Materialize renders the given command into its canonical SQL string. The
// canonical string doubles as the statement cache key, identical commands
// always materialize identically.
func Materialize(cmd ast.Command) (Materialized, error) {
	sql, err := ast.Render(cmd)
	if err != nil {
		return Materialized{}, err
	}

	return Materialized{SQL: sql, ParamCount: ast.CountParams(sql)}, nil
}

// WriteExtended writes a full extended-protocol request group for the given
// statement: an optional Parse registering the statement, Bind of the given
// parameter values to the unnamed portal, Describe of the portal, and
// Execute. The caller closes the batch with [WriteSync], allowing multiple
// groups to be pipelined before a single resynchronization point.
//
// Parameters are transmitted in the text format unless explicit format
// overrides are supplied.
func WriteExtended(writer *buffer.Writer, statement, sql string, parsed bool, params [][]byte, paramFormats, resultFormats []types.FormatCode) error {
	if !parsed {
		if err := WriteParse(writer, statement, sql, nil); err != nil {
			return err
		}
	}

	if err := WriteBind(writer, "", statement, paramFormats, params, resultFormats); err != nil {
		return err
	}

	if err := WriteDescribe(writer, types.DescribePortal, ""); err != nil {
		return err
	}

	return WriteExecute(writer, "", 0)
}

// WritePrepare writes the request group registering and describing a named
// statement: Parse, Describe of the statement, Sync. The backend answers with
// ParseComplete, ParameterDescription, RowDescription (or NoData) and
// ReadyForQuery.
func WritePrepare(writer *buffer.Writer, statement, sql string, paramTypes []oid.Oid) error {
	if err := WriteParse(writer, statement, sql, paramTypes); err != nil {
		return err
	}

	if err := WriteDescribe(writer, types.DescribeStatement, statement); err != nil {
		return err
	}

	return WriteSync(writer)
}
