package qail

import (
	"errors"
	"net"
	"time"

	"github.com/qail-io/qail-go/pkg/ast"
	"github.com/qail-io/qail-go/pkg/codec"
)

// Notification represents an asynchronous NOTIFY delivered by the server.
// Notifications can arrive interleaved with any response and are buffered by
// the connection until drained.
type Notification = codec.Notification

// Listen subscribes the connection to the given notification channel.
func (c *Conn) Listen(channel string) error {
	_, err := c.Execute(ast.NewListen(channel))
	return err
}

// Notify sends a notification on the given channel. An empty payload
// notifies without one.
func (c *Conn) Notify(channel, payload string) error {
	_, err := c.Execute(ast.NewNotify(channel, payload))
	return err
}

// Unlisten cancels the subscription on the given channel. An empty channel
// cancels all subscriptions.
func (c *Conn) Unlisten(channel string) error {
	_, err := c.Execute(ast.NewUnlisten(channel))
	return err
}

// Notifications returns and clears every notification received so far. The
// drain is non-blocking: besides the notifications collected during earlier
// response reads, only frames already buffered on the socket are consumed.
func (c *Conn) Notifications() ([]Notification, error) {
	if c.closed {
		return nil, ErrConnClosed
	}

	// poll the socket with an immediate deadline so buffered notification
	// frames are consumed without blocking for new ones
	for c.ready {
		if err := c.conn.SetReadDeadline(time.Now()); err != nil {
			return nil, err
		}

		t, err := c.readMessage()
		if err != nil {
			c.conn.SetReadDeadline(time.Time{}) //nolint:errcheck

			var timeout net.Error
			if errors.As(err, &timeout) && timeout.Timeout() {
				break
			}

			return nil, err
		}

		absorbed, err := c.absorbAsync(t)
		if err != nil {
			return nil, err
		}
		if !absorbed {
			c.close()
			return nil, ErrProtocol
		}
	}

	if err := c.conn.SetReadDeadline(time.Time{}); err != nil {
		return nil, err
	}

	notifications := c.notifications
	c.notifications = nil
	return notifications, nil
}

// WaitForNotification blocks until a notification arrives or the given
// timeout elapses.
func (c *Conn) WaitForNotification(timeout time.Duration) (Notification, error) {
	if len(c.notifications) > 0 {
		notification := c.notifications[0]
		c.notifications = c.notifications[1:]
		return notification, nil
	}

	if err := c.checkReady(true); err != nil {
		return Notification{}, err
	}

	if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return Notification{}, err
	}
	defer c.conn.SetReadDeadline(time.Time{}) //nolint:errcheck

	for {
		t, err := c.readMessage()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return Notification{}, ErrTimeout
			}

			return Notification{}, err
		}

		absorbed, err := c.absorbAsync(t)
		if err != nil {
			return Notification{}, err
		}
		if !absorbed {
			c.close()
			return Notification{}, ErrProtocol
		}

		if len(c.notifications) > 0 {
			notification := c.notifications[0]
			c.notifications = c.notifications[1:]
			return notification, nil
		}
	}
}
