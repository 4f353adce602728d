package qail

import (
	"strings"
	"testing"
	"time"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qail-io/qail-go/internal/mock"
)

// serveSimpleQueries scripts a server answering every simple query with an
// empty result, tracking the transaction status across BEGIN/COMMIT/ROLLBACK.
func serveSimpleQueries(t *testing.T, session *mock.Session) {
	session.Handshake()
	if session.Err() != nil {
		return
	}

	status := byte('I')
	for {
		message := session.ReadMessage()
		if session.Err() != nil {
			return
		}

		switch message.Type {
		case 'Q':
			sql := strings.TrimRight(string(message.Payload), "\x00")
			switch {
			case strings.HasPrefix(sql, "BEGIN"):
				status = 'T'
				session.WriteCommandComplete("BEGIN")
			case strings.HasPrefix(sql, "COMMIT"), strings.HasPrefix(sql, "ROLLBACK"):
				status = 'I'
				session.WriteCommandComplete("COMMIT")
			default:
				session.WriteCommandComplete("SELECT 1")
			}
			session.WriteReady(status)
		case 'X':
			return
		}
	}
}

func poolConfig(t *testing.T, server *mock.Server) PoolConfig {
	return PoolConfig{
		Host:     "127.0.0.1",
		Port:     uint16(server.Addr().Port),
		User:     "postgres",
		Database: "mydb",
		SSLMode:  SSLDisable,
		Logger:   slogt.New(t),
	}
}

func TestPoolBorrowRelease(t *testing.T) {
	t.Parallel()

	server := mock.NewServer(t, serveSimpleQueries)

	config := poolConfig(t, server)
	config.MaxConnections = 2

	pool, err := NewPool(config)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	conn, err := pool.Borrow()
	require.NoError(t, err)
	require.NoError(t, conn.Ping())

	pool.Release(conn)

	idle, total := pool.Stats()
	assert.Equal(t, 1, idle)
	assert.Equal(t, 1, total)

	// the released connection is health checked and handed out again
	again, err := pool.Borrow()
	require.NoError(t, err)
	assert.Same(t, conn, again)
	pool.Release(again)
}

func TestPoolMinIdle(t *testing.T) {
	t.Parallel()

	server := mock.NewServer(t, serveSimpleQueries)

	config := poolConfig(t, server)
	config.MaxConnections = 4
	config.MinIdle = 2

	pool, err := NewPool(config)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	idle, total := pool.Stats()
	assert.Equal(t, 2, idle)
	assert.Equal(t, 2, total)
}

func TestPoolExhausted(t *testing.T) {
	t.Parallel()

	server := mock.NewServer(t, serveSimpleQueries)

	config := poolConfig(t, server)
	config.MaxConnections = 1
	config.BorrowTimeout = 100 * time.Millisecond

	pool, err := NewPool(config)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	conn, err := pool.Borrow()
	require.NoError(t, err)
	defer pool.Release(conn)

	_, err = pool.Borrow()
	require.ErrorIs(t, err, ErrPoolExhausted)
}

func TestPoolDiscardsTransactionalConnections(t *testing.T) {
	t.Parallel()

	server := mock.NewServer(t, serveSimpleQueries)

	config := poolConfig(t, server)
	config.MaxConnections = 2

	pool, err := NewPool(config)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	conn, err := pool.Borrow()
	require.NoError(t, err)
	require.NoError(t, conn.BeginTx())

	// a connection released mid-transaction must not re-enter the ready queue
	pool.Release(conn)

	idle, total := pool.Stats()
	assert.Zero(t, idle)
	assert.Zero(t, total)
}

func TestPoolClosedBorrow(t *testing.T) {
	t.Parallel()

	server := mock.NewServer(t, serveSimpleQueries)

	pool, err := NewPool(poolConfig(t, server))
	require.NoError(t, err)

	pool.Close()

	_, err = pool.Borrow()
	require.ErrorIs(t, err, ErrConnClosed)
}
