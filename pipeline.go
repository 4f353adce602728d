package qail

import (
	"fmt"

	"github.com/qail-io/qail-go/pkg/ast"
	"github.com/qail-io/qail-go/pkg/codec"
	"github.com/qail-io/qail-go/pkg/types"
)

// Batch collects commands and their parameters for pipelined submission:
// every command is encoded as its own extended-protocol request group and the
// whole batch is closed by a single Sync. The protocol guarantees that the
// response groups arrive in submission order.
type Batch struct {
	items []batchItem
}

type batchItem struct {
	cmd    ast.Command
	params [][]byte
}

// Queue appends a command with its parameter values to the batch.
func (b *Batch) Queue(cmd ast.Command, params ...[]byte) {
	b.items = append(b.items, batchItem{cmd: cmd, params: params})
}

// Len returns the number of queued commands.
func (b *Batch) Len() int {
	return len(b.items)
}

// BatchResult carries the outcome of a single command inside a batch,
// one-to-one and in order with the submitted commands.
type BatchResult struct {
	Rows         *Rows
	RowsAffected int64
	Err          error
}

// SendBatch submits every queued command back-to-back and reads the response
// groups in submission order. A server error aborts the remainder of the
// batch: the failed command and every command after it report the same
// error, the server skips to the closing Sync. The connection is ready again
// once SendBatch returns.
func (c *Conn) SendBatch(batch *Batch) ([]BatchResult, error) {
	if err := c.checkReady(false); err != nil {
		return nil, err
	}

	if batch.Len() == 0 {
		return nil, fmt.Errorf("%w: empty batch", ErrInvalidCommand)
	}

	var fresh []string
	for _, item := range batch.items {
		materialized, err := codec.Materialize(item.cmd)
		if err != nil {
			return nil, err
		}

		if len(item.params) != materialized.ParamCount {
			return nil, fmt.Errorf("%w: command binds %d parameters but %d were given",
				ErrInvalidCommand, materialized.ParamCount, len(item.params))
		}

		metricQueryTotal.WithLabelValues(item.cmd.Kind.String()).Inc()

		name, registered := c.statements.Lookup(materialized.SQL)
		if !registered {
			fresh = append(fresh, materialized.SQL)
		}

		err = codec.WriteExtended(c.writer, name, materialized.SQL, registered, item.params, nil, nil)
		if err != nil {
			return nil, err
		}
	}

	if err := codec.WriteSync(c.writer); err != nil {
		return nil, err
	}

	if err := c.flush(); err != nil {
		c.close()
		return nil, err
	}

	results := make([]BatchResult, len(batch.items))
	index := 0
	parsed := 0
	current := &Rows{typeMap: c.typeMap}

	err := c.drain(func(t types.BackendMessage) error {
		if index >= len(results) {
			return fmt.Errorf("unexpected message %s after the final response group: %w", t, ErrProtocol)
		}

		switch t {
		case types.BackendParseComplete:
			parsed++
			return nil
		case types.BackendBindComplete, types.BackendNoData:
			return nil
		case types.BackendRowDescription:
			fields, err := codec.ReadRowDescription(c.reader)
			if err != nil {
				return err
			}

			current.Fields = fields
			return nil
		case types.BackendDataRow:
			columns, err := codec.ReadDataRow(c.reader)
			if err != nil {
				return err
			}

			current.append(columns)
			return nil
		case types.BackendCommandComplete:
			tag, affected, err := codec.ReadCommandComplete(c.reader)
			if err != nil {
				return err
			}

			current.Tag = tag
			results[index] = BatchResult{Rows: current, RowsAffected: affected}
			index++
			current = &Rows{typeMap: c.typeMap}
			return nil
		case types.BackendEmptyQuery, types.BackendPortalSuspended:
			results[index] = BatchResult{Rows: current}
			index++
			current = &Rows{typeMap: c.typeMap}
			return nil
		default:
			return fmt.Errorf("unexpected message %s inside a batch response: %w", t, ErrProtocol)
		}
	})
	if err != nil {
		if _, isServer := AsServerError(err); !isServer {
			return nil, err
		}

		// the server skipped the remaining groups up to the Sync, every
		// unanswered command reports the same error. Statements whose Parse
		// never completed were not registered server-side and are dropped
		// from the cache.
		if parsed < len(fresh) {
			for _, sql := range fresh[parsed:] {
				c.statements.Forget(sql)
			}
		}

		for ; index < len(results); index++ {
			results[index] = BatchResult{Err: err}
		}
	}

	return results, nil
}
