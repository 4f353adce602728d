package qail

import (
	"fmt"

	"github.com/qail-io/qail-go/pkg/ast"
	"github.com/qail-io/qail-go/pkg/codec"
	"github.com/qail-io/qail-go/pkg/types"
)

// astRawPing is the lightweight health check query issued by [Conn.Ping] and
// the pool.
var astRawPing = ast.Raw("SELECT 1")

// TextParam encodes a parameter value for transmission in the text format,
// the default format for every bound parameter.
func TextParam(value string) []byte {
	return []byte(value)
}

// TextParams encodes a list of parameter values in the text format.
func TextParams(values ...string) [][]byte {
	params := make([][]byte, len(values))
	for index, value := range values {
		params[index] = []byte(value)
	}

	return params
}

// allowInFailedTx reports whether the given command kind may be issued while
// the server transaction is in the failed state. Only a rollback moves the
// transaction out of the failed state.
func allowInFailedTx(kind ast.Kind) bool {
	return kind == ast.KindRollback || kind == ast.KindRollbackTo
}

// simpleKind reports whether the given command kind is routed through the
// simple query protocol rather than the extended protocol. Transaction
// control and pub/sub commands carry no parameters or result rows worth
// preparing for.
func simpleKind(kind ast.Kind) bool {
	switch kind {
	case ast.KindBegin, ast.KindCommit, ast.KindRollback, ast.KindSavepoint,
		ast.KindRelease, ast.KindRollbackTo, ast.KindListen, ast.KindNotify,
		ast.KindUnlisten:
		return true
	default:
		return false
	}
}

// Execute sends the given command and returns the number of affected rows as
// reported by the server command tag.
func (c *Conn) Execute(cmd ast.Command, params ...[]byte) (int64, error) {
	_, affected, err := c.submit(cmd, params)
	return affected, err
}

// FetchAll sends the given command and returns the complete result set
// together with its field descriptors.
func (c *Conn) FetchAll(cmd ast.Command, params ...[]byte) (*Rows, error) {
	rows, _, err := c.submit(cmd, params)
	return rows, err
}

// FetchOne sends the given command and returns the first result row.
// ErrNoRows is returned when the result set is empty.
func (c *Conn) FetchOne(cmd ast.Command, params ...[]byte) (Row, error) {
	rows, err := c.FetchAll(cmd, params...)
	if err != nil {
		return Row{}, err
	}

	if rows.Len() == 0 {
		return Row{}, ErrNoRows
	}

	return rows.Row(0), nil
}

// submit materializes, encodes and sends the given command and drains its
// response group. The connection consumes through exactly one ReadyForQuery
// before submit returns, restoring readiness even when the server reports an
// error.
func (c *Conn) submit(cmd ast.Command, params [][]byte) (*Rows, int64, error) {
	if err := c.checkReady(allowInFailedTx(cmd.Kind)); err != nil {
		return nil, 0, err
	}

	materialized, err := codec.Materialize(cmd)
	if err != nil {
		return nil, 0, err
	}

	metricQueryTotal.WithLabelValues(cmd.Kind.String()).Inc()

	if simpleKind(cmd.Kind) || (materialized.ParamCount == 0 && len(params) == 0 && cmd.Kind == ast.KindRaw) {
		rows, affected, err := c.submitSimple(materialized.SQL)
		return rows, affected, err
	}

	if len(params) != materialized.ParamCount {
		return nil, 0, fmt.Errorf("%w: command binds %d parameters but %d were given",
			ErrInvalidCommand, materialized.ParamCount, len(params))
	}

	name, registered := c.statements.Lookup(materialized.SQL)
	if err := codec.WriteExtended(c.writer, name, materialized.SQL, registered, params, nil, nil); err != nil {
		return nil, 0, err
	}

	if err := codec.WriteSync(c.writer); err != nil {
		return nil, 0, err
	}

	if err := c.flush(); err != nil {
		c.close()
		return nil, 0, err
	}

	rows, affected, parsed, err := c.drainResult()
	if err != nil && !registered && parsed == 0 {
		// the request group failed before its Parse completed, the statement
		// was never registered server-side
		c.statements.Forget(materialized.SQL)
	}

	return rows, affected, err
}

// submitSimple sends the given SQL over the simple query protocol.
func (c *Conn) submitSimple(sql string) (*Rows, int64, error) {
	if err := codec.WriteSimpleQuery(c.writer, sql); err != nil {
		return nil, 0, err
	}

	if err := c.flush(); err != nil {
		c.close()
		return nil, 0, err
	}

	rows, affected, _, err := c.drainResult()
	return rows, affected, err
}

// drainResult consumes a single response group into a result set. The number
// of completed parses is reported so callers can tell whether a failed group
// registered its statement server-side.
func (c *Conn) drainResult() (*Rows, int64, int, error) {
	rows := &Rows{typeMap: c.typeMap}
	var affected int64
	var parsed int

	err := c.drain(func(t types.BackendMessage) error {
		switch t {
		case types.BackendParseComplete:
			parsed++
			return nil
		case types.BackendBindComplete,
			types.BackendCloseComplete, types.BackendNoData,
			types.BackendEmptyQuery, types.BackendPortalSuspended:
			return nil
		case types.BackendRowDescription:
			fields, err := codec.ReadRowDescription(c.reader)
			if err != nil {
				return err
			}

			rows.Fields = fields
			return nil
		case types.BackendDataRow:
			columns, err := codec.ReadDataRow(c.reader)
			if err != nil {
				return err
			}

			rows.append(columns)
			return nil
		case types.BackendCommandComplete:
			tag, count, err := codec.ReadCommandComplete(c.reader)
			if err != nil {
				return err
			}

			rows.Tag = tag
			affected = count
			return nil
		default:
			return fmt.Errorf("unexpected message %s inside a query response: %w", t, ErrProtocol)
		}
	})
	if err != nil {
		return nil, 0, parsed, err
	}

	return rows, affected, parsed, nil
}
