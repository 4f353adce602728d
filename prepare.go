package qail

import (
	"fmt"

	"github.com/lib/pq/oid"
	"github.com/qail-io/qail-go/pkg/ast"
	"github.com/qail-io/qail-go/pkg/codec"
	"github.com/qail-io/qail-go/pkg/types"
)

// PreparedStatement is a handle to a server-side statement registered through
// [Conn.Prepare]. The handle carries the parameter type OIDs and the field
// descriptors reported by the statement describe.
type PreparedStatement struct {
	Name       string
	SQL        string
	ParamTypes []oid.Oid
	Fields     []codec.FieldDescription
}

// Prepare registers the given command as a named server-side statement and
// returns its handle. The statement lives until the connection is closed.
func (c *Conn) Prepare(cmd ast.Command) (*PreparedStatement, error) {
	materialized, err := codec.Materialize(cmd)
	if err != nil {
		return nil, err
	}

	return c.PrepareSQL(materialized.SQL)
}

// PrepareSQL registers the given SQL as a named server-side statement. The
// statement name is derived deterministically from the SQL string.
func (c *Conn) PrepareSQL(sql string) (*PreparedStatement, error) {
	if err := c.checkReady(false); err != nil {
		return nil, err
	}

	statement := &PreparedStatement{
		Name: StatementName(sql),
		SQL:  sql,
	}

	if err := codec.WritePrepare(c.writer, statement.Name, sql, nil); err != nil {
		return nil, err
	}

	if err := c.flush(); err != nil {
		c.close()
		return nil, err
	}

	err := c.drain(func(t types.BackendMessage) error {
		switch t {
		case types.BackendParseComplete, types.BackendNoData:
			return nil
		case types.BackendParameterDescription:
			oids, err := codec.ReadParameterDescription(c.reader)
			if err != nil {
				return err
			}

			statement.ParamTypes = oids
			return nil
		case types.BackendRowDescription:
			fields, err := codec.ReadRowDescription(c.reader)
			if err != nil {
				return err
			}

			statement.Fields = fields
			return nil
		default:
			return fmt.Errorf("unexpected message %s inside a prepare response: %w", t, ErrProtocol)
		}
	})
	if err != nil {
		return nil, err
	}

	return statement, nil
}

// FetchPrepared binds the given parameters to a prepared statement and
// returns its result set. Parameters are transmitted in the text format
// unless format overrides are supplied through [Conn.FetchPreparedFormats].
func (c *Conn) FetchPrepared(statement *PreparedStatement, params ...[]byte) (*Rows, error) {
	return c.FetchPreparedFormats(statement, nil, params)
}

// FetchPreparedFormats binds the given parameters with explicit per-parameter
// format codes to a prepared statement and returns its result set.
func (c *Conn) FetchPreparedFormats(statement *PreparedStatement, formats []types.FormatCode, params [][]byte) (*Rows, error) {
	if err := c.checkReady(false); err != nil {
		return nil, err
	}

	if len(statement.ParamTypes) != len(params) {
		return nil, fmt.Errorf("%w: statement %s binds %d parameters but %d were given",
			ErrInvalidCommand, statement.Name, len(statement.ParamTypes), len(params))
	}

	if err := codec.WriteBind(c.writer, "", statement.Name, formats, params, nil); err != nil {
		return nil, err
	}

	if err := codec.WriteDescribe(c.writer, types.DescribePortal, ""); err != nil {
		return nil, err
	}

	if err := codec.WriteExecute(c.writer, "", 0); err != nil {
		return nil, err
	}

	if err := codec.WriteSync(c.writer); err != nil {
		return nil, err
	}

	if err := c.flush(); err != nil {
		c.close()
		return nil, err
	}

	rows, _, _, err := c.drainResult()
	return rows, err
}

// CloseStatement releases the given server-side statement.
func (c *Conn) CloseStatement(statement *PreparedStatement) error {
	if err := c.checkReady(false); err != nil {
		return err
	}

	if err := codec.WriteClose(c.writer, types.DescribeStatement, statement.Name); err != nil {
		return err
	}

	if err := codec.WriteSync(c.writer); err != nil {
		return err
	}

	if err := c.flush(); err != nil {
		c.close()
		return err
	}

	c.statements.Forget(statement.SQL)

	return c.drain(func(t types.BackendMessage) error {
		if t == types.BackendCloseComplete {
			return nil
		}

		return fmt.Errorf("unexpected message %s inside a close response: %w", t, ErrProtocol)
	})
}
