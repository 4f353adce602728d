package qail

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"

	"github.com/qail-io/qail-go/pkg/buffer"
	"github.com/qail-io/qail-go/pkg/codec"
)

// negotiateSSL performs the SSLRequest prelude before the startup message is
// sent. The server answers with a single raw byte: 'S' upgrades the socket
// to TLS, 'N' continues in clear text. A declined upgrade fails the
// connection when sslmode is require.
func negotiateSSL(conn net.Conn, config Config) (net.Conn, error) {
	if config.SSLMode == SSLDisable {
		return conn, nil
	}

	writer := buffer.NewWriter(config.Logger, conn)
	if err := codec.WriteSSLRequest(writer); err != nil {
		return conn, err
	}

	response := make([]byte, 1)
	if _, err := io.ReadFull(conn, response); err != nil {
		return conn, fmt.Errorf("reading SSL response: %w", err)
	}

	switch response[0] {
	case 'S':
	case 'N':
		if config.SSLMode == SSLRequire {
			return conn, fmt.Errorf("server declined the required TLS upgrade")
		}

		config.Logger.Debug("server declined TLS, continuing in clear text")
		return conn, nil
	default:
		return conn, fmt.Errorf("unexpected SSL response byte %q: %w", response[0], ErrProtocol)
	}

	tlsConfig := config.TLSConfig
	if tlsConfig == nil {
		tlsConfig = &tls.Config{
			ServerName: config.Host,
			MinVersion: tls.VersionTLS12,
		}
	}

	upgraded := tls.Client(conn, tlsConfig)
	if err := upgraded.Handshake(); err != nil {
		return conn, fmt.Errorf("TLS handshake: %w", err)
	}

	config.Logger.Debug("connection upgraded to TLS")
	return upgraded, nil
}
