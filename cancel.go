package qail

import (
	"io"
	"net"

	"github.com/qail-io/qail-go/pkg/buffer"
	"github.com/qail-io/qail-go/pkg/codec"
)

// cancelRequest delivers an out-of-band cancel request for the in-flight
// query. The request travels over a separate TCP connection carrying the
// backend key data captured during startup. Delivery does not guarantee
// cancellation, the server honors the request on a best-effort basis.
// https://www.postgresql.org/docs/current/protocol-flow.html#id-1.10.6.7.10
func (c *Conn) cancelRequest() error {
	address := c.conn.RemoteAddr()
	cancel, err := net.DialTimeout(address.Network(), address.String(), c.config.ConnectTimeout)
	if err != nil {
		return err
	}
	defer cancel.Close()

	writer := buffer.NewWriter(c.logger, cancel)
	if err := codec.WriteCancelRequest(writer, c.processID, c.secretKey); err != nil {
		return err
	}

	// the server closes the cancel connection without a reply
	_, err = cancel.Read(make([]byte, 1))
	if err != nil && err != io.EOF {
		return err
	}

	return nil
}
