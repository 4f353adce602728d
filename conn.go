package qail

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	qailerr "github.com/qail-io/qail-go/errors"
	"github.com/qail-io/qail-go/pkg/buffer"
	"github.com/qail-io/qail-go/pkg/codec"
	"github.com/qail-io/qail-go/pkg/types"
)

// Conn represents a single PostgreSQL connection. A connection is a blocking,
// synchronous resource: no operation may be invoked concurrently with any
// other on the same connection. Concurrency is obtained at the pool level by
// owning multiple connections.
type Conn struct {
	config Config
	logger *slog.Logger

	conn   net.Conn
	out    *bufio.Writer
	reader *buffer.Reader
	writer *buffer.Writer

	processID uint32
	secretKey uint32

	// parameters holds the latest ParameterStatus value per name as reported
	// by the server.
	parameters map[string]string

	ready    bool
	txStatus types.TxStatus
	closed   bool

	statements    *StatementCache
	typeMap       *pgtype.Map
	notifications []Notification
}

// Connect establishes a new connection using the given connection string and
// options. The returned connection has completed the startup and
// authentication handshake and is ready for queries.
func Connect(dsn string, options ...OptionFn) (*Conn, error) {
	config, err := ParseURL(dsn)
	if err != nil {
		return nil, err
	}

	for _, option := range options {
		option(&config)
	}

	return ConnectConfig(config)
}

// ConnectConfig establishes a new connection using the given configuration.
func ConnectConfig(config Config) (*Conn, error) {
	config.defaults()

	address := net.JoinHostPort(config.Host, fmt.Sprintf("%d", config.Port))
	socket, err := net.DialTimeout("tcp", address, config.ConnectTimeout)
	if err != nil {
		var timeout net.Error
		if errors.As(err, &timeout) && timeout.Timeout() {
			return nil, fmt.Errorf("connect to %s: %w", address, ErrTimeout)
		}
		return nil, fmt.Errorf("connect to %s: %w", address, err)
	}

	socket, err = negotiateSSL(socket, config)
	if err != nil {
		socket.Close()
		return nil, err
	}

	out := bufio.NewWriter(socket)
	conn := &Conn{
		config:     config,
		logger:     config.Logger,
		conn:       socket,
		out:        out,
		reader:     buffer.NewReader(config.Logger, socket, config.BufferSize),
		writer:     buffer.NewWriter(config.Logger, out),
		parameters: map[string]string{},
		txStatus:   types.TxIdle,
		statements: NewStatementCache(config.StatementCacheSize),
		typeMap:    pgtype.NewMap(),
	}

	if err := conn.startup(); err != nil {
		socket.Close()
		return nil, err
	}

	return conn, nil
}

// startup performs the startup and authentication handshake. The server is
// sent the startup packet and the connection consumes backend messages until
// the first ReadyForQuery, answering authentication requests along the way.
func (c *Conn) startup() error {
	c.logger.Debug("sending startup message", slog.String("user", c.config.User), slog.String("database", c.config.Database))

	err := codec.WriteStartup(c.writer, c.config.User, c.config.Database, c.config.RuntimeParams)
	if err != nil {
		return err
	}

	if err := c.flush(); err != nil {
		return err
	}

	for {
		t, err := c.readMessage()
		if err != nil {
			return err
		}

		switch t {
		case types.BackendAuth:
			request, err := codec.ReadAuth(c.reader)
			if err != nil {
				switch request.Type {
				case types.AuthOK, types.AuthCleartextPassword, types.AuthMD5Password,
					types.AuthSASL, types.AuthSASLContinue, types.AuthSASLFinal:
					return err
				default:
					return fmt.Errorf("%w: %v", ErrUnsupportedAuth, err)
				}
			}

			if err := c.authenticate(request); err != nil {
				return err
			}
		case types.BackendParameterStatus:
			if err := c.absorbParameterStatus(); err != nil {
				return err
			}
		case types.BackendKeyData:
			keys, err := codec.ReadBackendKeyData(c.reader)
			if err != nil {
				return err
			}

			c.processID = keys.ProcessID
			c.secretKey = keys.SecretKey
		case types.BackendNoticeResponse:
			if err := c.absorbNotice(); err != nil {
				return err
			}
		case types.BackendErrorResponse:
			server, err := codec.ReadError(c.reader)
			if err != nil {
				return err
			}

			return server
		case types.BackendReady:
			status, err := codec.ReadReadyForQuery(c.reader)
			if err != nil {
				return err
			}

			c.ready = true
			c.txStatus = status
			c.logger.Debug("connection ready", slog.String("status", string(status)))
			return nil
		default:
			return fmt.Errorf("unexpected message %s during startup: %w", t, ErrProtocol)
		}
	}
}

// readMessage reads the next backend message into the connection read buffer.
func (c *Conn) readMessage() (types.BackendMessage, error) {
	t, _, err := c.reader.ReadTypedMsg()
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		c.closed = true
		return 0, ErrConnClosed
	}
	if err != nil {
		return 0, err
	}

	c.logger.Debug("<- incoming message", slog.String("type", t.String()))
	return t, nil
}

// flush writes the buffered outbound frames to the socket.
func (c *Conn) flush() error {
	if err := c.writer.Error(); err != nil {
		return err
	}

	return c.out.Flush()
}

// checkReady guards a new request against the connection state. Commands are
// invalid while the connection is closed, mid-response or inside a failed
// transaction.
func (c *Conn) checkReady(allowFailedTx bool) error {
	if c.closed {
		return ErrConnClosed
	}
	if !c.ready {
		return ErrNotReady
	}
	if !allowFailedTx && c.txStatus == types.TxFailed {
		return ErrTransactionAborted
	}

	return nil
}

// absorbParameterStatus records an asynchronous ParameterStatus message.
func (c *Conn) absorbParameterStatus() error {
	name, value, err := codec.ReadParameterStatus(c.reader)
	if err != nil {
		return err
	}

	c.parameters[name] = value
	c.logger.Debug("server parameter", slog.String("name", name), slog.String("value", value))
	return nil
}

// absorbNotice logs an asynchronous NoticeResponse message.
func (c *Conn) absorbNotice() error {
	notice, err := codec.ReadError(c.reader)
	if err != nil {
		return err
	}

	c.logger.Info("server notice", slog.String("severity", string(notice.Severity)), slog.String("message", notice.Message))
	return nil
}

// absorbNotification queues an asynchronous NotificationResponse message.
func (c *Conn) absorbNotification() error {
	notification, err := codec.ReadNotification(c.reader)
	if err != nil {
		return err
	}

	c.notifications = append(c.notifications, Notification(notification))
	return nil
}

// absorbAsync consumes the asynchronous messages which may arrive interleaved
// with any response. A boolean is returned indicating whether the message was
// absorbed.
func (c *Conn) absorbAsync(t types.BackendMessage) (bool, error) {
	switch t {
	case types.BackendParameterStatus:
		return true, c.absorbParameterStatus()
	case types.BackendNoticeResponse:
		return true, c.absorbNotice()
	case types.BackendNotification:
		return true, c.absorbNotification()
	default:
		return false, nil
	}
}

// messageHandler handles a single non-asynchronous backend message during a
// response drain.
type messageHandler func(t types.BackendMessage) error

// drain consumes backend messages up to and including exactly one
// ReadyForQuery, restoring the connection readiness. Messages other than the
// asynchronous set are dispatched to the given handler. A server
// ErrorResponse is captured and returned after the drain completes, the
// connection stays usable. Socket and protocol failures close the connection
// and are returned immediately.
func (c *Conn) drain(handler messageHandler) error {
	c.ready = false

	if c.config.QueryTimeout > 0 {
		deadline := time.Now().Add(c.config.QueryTimeout)
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return err
		}
		defer c.conn.SetReadDeadline(time.Time{}) //nolint:errcheck
	}

	var server *qailerr.Error
	for {
		t, err := c.readMessage()
		if err != nil {
			var timeout net.Error
			if errors.As(err, &timeout) && timeout.Timeout() {
				return c.abortQuery()
			}

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
		case types.BackendErrorResponse:
			server, err = codec.ReadError(c.reader)
			if err != nil {
				c.close()
				return err
			}
		case types.BackendReady:
			status, err := codec.ReadReadyForQuery(c.reader)
			if err != nil {
				c.close()
				return err
			}

			c.ready = true
			c.txStatus = status
			if server != nil {
				return server
			}
			return nil
		default:
			// NOTE: an error response causes the server to discard the
			// remainder of the request group, trailing messages before the
			// ready boundary are dropped alongside it.
			if server != nil {
				continue
			}

			if err := handler(t); err != nil {
				c.close()
				return err
			}
		}
	}
}

// abortQuery handles a query deadline expiry: an out-of-band cancel request
// is issued and the connection is closed, the in-flight request leaves the
// response stream at an undefined boundary.
func (c *Conn) abortQuery() error {
	c.logger.Warn("query deadline exceeded, sending cancel request")

	if err := c.cancelRequest(); err != nil {
		c.logger.Error("unable to deliver the cancel request", "err", err)
	}

	c.close()
	return ErrTimeout
}

// close terminates the socket without the terminate handshake. Used whenever
// the protocol state is no longer trustworthy.
func (c *Conn) close() {
	if c.closed {
		return
	}

	c.closed = true
	c.ready = false
	c.conn.Close()
}

// Close performs an orderly shutdown by sending a terminate message before
// closing the socket.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}

	if err := codec.WriteTerminate(c.writer); err == nil {
		c.flush() //nolint:errcheck
	}

	c.closed = true
	c.ready = false
	return c.conn.Close()
}

// IsReady returns whether the connection is at the ready-for-query boundary
// and accepts a new command.
func (c *Conn) IsReady() bool {
	return c.ready && !c.closed
}

// TxStatus returns the transaction status reported by the most recent
// ReadyForQuery message.
func (c *Conn) TxStatus() types.TxStatus {
	return c.txStatus
}

// Parameter returns the latest server-reported value of the given runtime
// parameter, server_version amongst others.
func (c *Conn) Parameter(name string) string {
	return c.parameters[name]
}

// ProcessID returns the server backend process identifier of the connection.
func (c *Conn) ProcessID() uint32 {
	return c.processID
}

// StatementCacheStats returns the hit/miss counters of the connection
// statement cache.
func (c *Conn) StatementCacheStats() CacheStats {
	return c.statements.Stats()
}

// Ping issues a lightweight query verifying that the connection is alive and
// ready.
func (c *Conn) Ping() error {
	_, err := c.Execute(astRawPing)
	return err
}
