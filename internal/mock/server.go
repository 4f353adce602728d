// Package mock provides a scripted PostgreSQL server used to exercise the
// driver against hand-written protocol exchanges without a running database.
package mock

import (
	"net"
	"testing"
)

// SessionFn scripts the server side of a single client connection.
type SessionFn func(t *testing.T, session *Session)

// Server is a scripted PostgreSQL server listening on a local port. Every
// accepted connection is served by the configured session script.
type Server struct {
	t        *testing.T
	listener net.Listener
	script   SessionFn
}

// NewServer opens a scripted server on an unallocated local port. The
// listener is closed alongside the test.
func NewServer(t *testing.T, script SessionFn) *Server {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	server := &Server{
		t:        t,
		listener: listener,
		script:   script,
	}

	t.Cleanup(func() {
		listener.Close() //nolint:errcheck
	})

	go server.serve()
	return server
}

// Addr returns the address clients connect to.
func (server *Server) Addr() *net.TCPAddr {
	return server.listener.Addr().(*net.TCPAddr)
}

// URL returns a connection string pointing at the scripted server.
func (server *Server) URL(user, database string) string {
	return "postgres://" + user + "@" + server.Addr().String() + "/" + database + "?sslmode=disable"
}

func (server *Server) serve() {
	for {
		conn, err := server.listener.Accept()
		if err != nil {
			return
		}

		go func() {
			defer conn.Close()
			server.script(server.t, NewSession(conn))
		}()
	}
}
