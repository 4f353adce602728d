package qail

import (
	"fmt"
	"sync"
	"time"
)

// Pool maintains a bounded set of ready connections. Borrowed connections
// are owned exclusively by the borrower until released, parallelism across
// queries is obtained by borrowing multiple connections at the pool level.
type Pool struct {
	config PoolConfig

	// ready is the queue of idle connections. A borrow blocks on the queue
	// when every connection is in use.
	ready chan *idleConn

	// mu guards the counters below, never held across an I/O operation.
	mu     sync.Mutex
	total  int
	closed bool
}

type idleConn struct {
	conn     *Conn
	returned time.Time
}

// NewPool constructs a new connection pool using the given configuration. A
// minimum of min_idle connections is established eagerly so the first
// borrows do not pay the handshake.
func NewPool(config PoolConfig) (*Pool, error) {
	config.defaults()

	pool := &Pool{
		config: config,
		ready:  make(chan *idleConn, config.MaxConnections),
	}

	for i := 0; i < config.MinIdle; i++ {
		conn, err := pool.dial()
		if err != nil {
			pool.Close()
			return nil, err
		}

		pool.ready <- &idleConn{conn: conn, returned: time.Now()}
		metricPoolIdle.Inc()
	}

	return pool, nil
}

// dial establishes a new connection, accounting it against the pool bound.
// Capacity is checked under the mutex; a nil connection and a nil error are
// returned when the pool is already at its bound.
func (pool *Pool) dial() (*Conn, error) {
	pool.mu.Lock()
	if pool.closed {
		pool.mu.Unlock()
		return nil, ErrConnClosed
	}
	if pool.total >= pool.config.MaxConnections {
		pool.mu.Unlock()
		return nil, nil
	}
	pool.total++
	pool.mu.Unlock()

	conn, err := ConnectConfig(pool.config.connConfig())
	if err != nil {
		pool.mu.Lock()
		pool.total--
		pool.mu.Unlock()
		return nil, err
	}

	return conn, nil
}

// Borrow returns a ready connection, establishing a new one while the pool
// holds capacity and blocking until one is released otherwise.
// ErrPoolExhausted is returned when no connection became available within the
// borrow deadline.
func (pool *Pool) Borrow() (*Conn, error) {
	metricPoolBorrows.Inc()

	deadline := time.NewTimer(pool.config.BorrowTimeout)
	defer deadline.Stop()

	for {
		// prefer an idle connection over establishing a new one
		select {
		case entry := <-pool.ready:
			metricPoolIdle.Dec()
			if conn, ok := pool.validate(entry); ok {
				return conn, nil
			}
			continue
		default:
		}

		conn, err := pool.dial()
		if err != nil {
			return nil, err
		}
		if conn != nil {
			return conn, nil
		}

		// every connection is in use, wait for a release
		select {
		case entry := <-pool.ready:
			metricPoolIdle.Dec()
			if conn, ok := pool.validate(entry); ok {
				return conn, nil
			}
		case <-deadline.C:
			metricPoolExhausted.Inc()
			return nil, fmt.Errorf("no connection available within %s: %w", pool.config.BorrowTimeout, ErrPoolExhausted)
		}
	}
}

// validate health checks an idle connection before it is handed out. Expired
// and failed connections are evicted.
func (pool *Pool) validate(entry *idleConn) (*Conn, bool) {
	if pool.expired(entry) || entry.conn.Ping() != nil {
		pool.discard(entry.conn)
		return nil, false
	}

	return entry.conn, true
}

// Release returns the given connection to the ready queue. Connections which
// are no longer ready or still inside a transaction are discarded instead.
func (pool *Pool) Release(conn *Conn) {
	if conn == nil {
		return
	}

	if !conn.IsReady() || conn.InTransaction() {
		pool.discard(conn)
		return
	}

	pool.mu.Lock()
	closed := pool.closed
	pool.mu.Unlock()
	if closed {
		pool.discard(conn)
		return
	}

	select {
	case pool.ready <- &idleConn{conn: conn, returned: time.Now()}:
		metricPoolIdle.Inc()
	default:
		pool.discard(conn)
	}
}

// discard closes the given connection and frees its pool slot.
func (pool *Pool) discard(conn *Conn) {
	conn.Close() //nolint:errcheck

	pool.mu.Lock()
	pool.total--
	pool.mu.Unlock()
}

// expired reports whether the given idle connection has outlived the idle
// timeout.
func (pool *Pool) expired(entry *idleConn) bool {
	if pool.config.IdleTimeout <= 0 {
		return false
	}

	return time.Since(entry.returned) > pool.config.IdleTimeout
}

// Stats reports the current pool occupancy.
func (pool *Pool) Stats() (idle, total int) {
	pool.mu.Lock()
	defer pool.mu.Unlock()

	return len(pool.ready), pool.total
}

// Close closes every idle connection and marks the pool as closed. Borrowed
// connections are closed as they are released.
func (pool *Pool) Close() {
	pool.mu.Lock()
	if pool.closed {
		pool.mu.Unlock()
		return
	}
	pool.closed = true
	pool.mu.Unlock()

	for {
		select {
		case entry := <-pool.ready:
			metricPoolIdle.Dec()
			pool.discard(entry.conn)
		default:
			return
		}
	}
}
