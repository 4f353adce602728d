package qail

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/qail-io/qail-go/pkg/codec"
	"github.com/qail-io/qail-go/pkg/types"
)

// CopySource supplies the rows of a copy-in stream one at a time.
type CopySource interface {
	// Next advances to the next row, returning false once the source is
	// exhausted.
	Next() bool
	// Values returns the column values of the current row. A nil column
	// transmits SQL NULL.
	Values() ([][]byte, error)
	// Err returns the error which terminated the iteration, if any.
	Err() error
}

// CopyRows adapts an in-memory row slice into a [CopySource].
func CopyRows(rows [][][]byte) CopySource {
	return &copyRows{rows: rows, index: -1}
}

type copyRows struct {
	rows  [][][]byte
	index int
}

func (src *copyRows) Next() bool {
	src.index++
	return src.index < len(src.rows)
}

func (src *copyRows) Values() ([][]byte, error) {
	return src.rows[src.index], nil
}

func (src *copyRows) Err() error {
	return nil
}

// CopyIn streams the given rows into the table using the copy protocol. The
// returned count is the number of rows reported by the server command tag.
func (c *Conn) CopyIn(table string, columns []string, source CopySource) (int64, error) {
	if err := c.checkReady(false); err != nil {
		return 0, err
	}

	sql := fmt.Sprintf("COPY %s (%s) FROM STDIN", table, strings.Join(columns, ", "))
	if err := codec.WriteSimpleQuery(c.writer, sql); err != nil {
		return 0, err
	}

	if err := c.flush(); err != nil {
		c.close()
		return 0, err
	}

	if err := c.awaitCopyResponse(types.BackendCopyInResponse); err != nil {
		return 0, err
	}

	for source.Next() {
		values, err := source.Values()
		if err != nil {
			return 0, c.copyFail(err)
		}

		if err := codec.WriteCopyData(c.writer, encodeCopyRow(values)); err != nil {
			return 0, err
		}
	}

	if err := source.Err(); err != nil {
		return 0, c.copyFail(err)
	}

	if err := codec.WriteCopyDone(c.writer); err != nil {
		return 0, err
	}

	if err := c.flush(); err != nil {
		c.close()
		return 0, err
	}

	_, affected, _, err := c.drainResult()
	return affected, err
}

// copyFail aborts the copy-in stream with the given cause and drains the
// resulting server error.
func (c *Conn) copyFail(cause error) error {
	if err := codec.WriteCopyFail(c.writer, cause.Error()); err != nil {
		return err
	}

	if err := c.flush(); err != nil {
		c.close()
		return err
	}

	if _, _, _, err := c.drainResult(); err != nil {
		return err
	}

	return cause
}

// CopyOut streams the content of the table out of the server into the given
// writer using the copy protocol. The payload arrives in the text copy
// format, rows separated by newlines and columns by tabs.
func (c *Conn) CopyOut(table string, columns []string, destination io.Writer) (int64, error) {
	if err := c.checkReady(false); err != nil {
		return 0, err
	}

	sql := fmt.Sprintf("COPY %s (%s) TO STDOUT", table, strings.Join(columns, ", "))
	if err := codec.WriteSimpleQuery(c.writer, sql); err != nil {
		return 0, err
	}

	if err := c.flush(); err != nil {
		c.close()
		return 0, err
	}

	if err := c.awaitCopyResponse(types.BackendCopyOutResponse); err != nil {
		return 0, err
	}

	var affected int64
	err := c.drain(func(t types.BackendMessage) error {
		switch t {
		case types.BackendCopyData:
			_, err := destination.Write(c.reader.Remaining())
			return err
		case types.BackendCopyDone:
			return nil
		case types.BackendCommandComplete:
			_, count, err := codec.ReadCommandComplete(c.reader)
			affected = count
			return err
		default:
			return fmt.Errorf("unexpected message %s inside a copy-out response: %w", t, ErrProtocol)
		}
	})
	if err != nil {
		return 0, err
	}

	return affected, nil
}

// awaitCopyResponse consumes messages until the copy response opening the
// transfer phase. A server error is drained through ReadyForQuery before it
// is returned, the connection stays usable.
func (c *Conn) awaitCopyResponse(expected types.BackendMessage) error {
	c.ready = false

	for {
		t, err := c.readMessage()
		if err != nil {
			c.close()
			return err
		}

		absorbed, err := c.absorbAsync(t)
		if err != nil {
			c.close()
			return err
		}
		if absorbed {
			continue
		}

		switch t {
		case expected:
			if _, err := codec.ReadCopyResponse(c.reader); err != nil {
				c.close()
				return err
			}

			return nil
		case types.BackendErrorResponse:
			server, err := codec.ReadError(c.reader)
			if err != nil {
				c.close()
				return err
			}

			if err := c.drainUntilReadyAfterError(); err != nil {
				return err
			}

			return server
		default:
			c.close()
			return fmt.Errorf("unexpected message %s awaiting a copy response: %w", t, ErrProtocol)
		}
	}
}

// drainUntilReadyAfterError consumes the remainder of a failed request group
// up to its ReadyForQuery boundary.
func (c *Conn) drainUntilReadyAfterError() error {
	for {
		t, err := c.readMessage()
		if err != nil {
			c.close()
			return err
		}

		if absorbed, err := c.absorbAsync(t); err != nil {
			c.close()
			return err
		} else if absorbed {
			continue
		}

		if t == types.BackendReady {
			status, err := codec.ReadReadyForQuery(c.reader)
			if err != nil {
				c.close()
				return err
			}

			c.ready = true
			c.txStatus = status
			return nil
		}
	}
}

// encodeCopyRow serializes a row into the text copy format: columns joined
// by tabs, the row terminated by a newline, NULL transmitted as \N and
// backslash, tab, newline and carriage return escaped.
func encodeCopyRow(values [][]byte) []byte {
	var row bytes.Buffer
	for index, value := range values {
		if index > 0 {
			row.WriteByte('\t')
		}

		if value == nil {
			row.WriteString(`\N`)
			continue
		}

		for _, b := range value {
			switch b {
			case '\\':
				row.WriteString(`\\`)
			case '\t':
				row.WriteString(`\t`)
			case '\n':
				row.WriteString(`\n`)
			case '\r':
				row.WriteString(`\r`)
			default:
				row.WriteByte(b)
			}
		}
	}

	row.WriteByte('\n')
	return row.Bytes()
}
