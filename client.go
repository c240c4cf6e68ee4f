// Package routeros implements a client for the MikroTik RouterOS API: a
// length-prefixed, sentence-oriented binary protocol spoken over a plain
// TCP or TLS stream (default ports 8728/8729). See SPEC_FULL.md for the
// full wire-format and component design this package implements.
package routeros

import (
	"crypto/tls"
	"net"
	"strconv"
	"time"
)

// defaultTimeout is applied to Options.Timeout when the caller leaves it
// unset.
const defaultTimeout = 30 * time.Second

// Options configures a Client. Host is the only required field.
type Options struct {
	Host string
	// Port defaults to 8729 when SSL is true, 8728 otherwise.
	Port int
	// SSL dials over TLS instead of plain TCP. Certificates are never
	// validated: RouterOS deployments commonly run self-signed certs, and
	// certificate validation is out of scope for this client.
	SSL bool
	// Timeout bounds Connect's dial. Defaults to 30s.
	Timeout time.Duration
}

func (o Options) port() int {
	if o.Port != 0 {
		return o.Port
	}
	if o.SSL {
		return 8729
	}
	return 8728
}

func (o Options) timeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return defaultTimeout
}

// Client is a connection to a single RouterOS device. It holds at most one
// in-flight command at a time: RunCommand blocks the calling goroutine
// until the router resolves it, so a Client must not be driven
// concurrently from more than one goroutine without external
// serialization.
type Client struct {
	opts    Options
	conn    net.Conn
	emitter *Emitter
}

// NewClient builds a Client from opts. It does not dial; call Connect.
func NewClient(opts Options) *Client {
	return &Client{opts: opts, emitter: NewEmitter()}
}

// Connect dials the router. On success it emits "connect" on the client's
// Emitter. On failure it returns a *ConnectError without touching the
// emitter.
func (c *Client) Connect() error {
	addr := net.JoinHostPort(c.opts.Host, strconv.Itoa(c.opts.port()))

	var conn net.Conn
	var err error
	if c.opts.SSL {
		dialer := &net.Dialer{Timeout: c.opts.timeout()}
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{InsecureSkipVerify: true})
	} else {
		conn, err = net.DialTimeout("tcp", addr, c.opts.timeout())
	}
	if err != nil {
		return &ConnectError{Addr: addr, Err: err}
	}

	c.conn = conn
	c.emitter.Emit("connect")
	return nil
}

// Close destroys the transport and emits "close". A failure to close the
// underlying connection is wrapped as *CloseError, emitted as "error", and
// returned.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	if err != nil {
		closeErr := &CloseError{Err: err}
		c.emitter.Emit("error", error(closeErr))
		return closeErr
	}
	c.emitter.Emit("close")
	return nil
}

// On registers fn to run every time event is emitted on this client's
// Emitter (events: "connect", "error", "close", "end"). It returns the
// Client so calls can be chained.
func (c *Client) On(event string, fn Listener) *Client {
	c.emitter.On(event, fn)
	return c
}

// Once registers fn to run at most once for event.
func (c *Client) Once(event string, fn Listener) *Client {
	c.emitter.Once(event, fn)
	return c
}

// Off removes fn from event's listener list.
func (c *Client) Off(event string, fn Listener) *Client {
	c.emitter.Off(event, fn)
	return c
}

// GetSystemIdentity is a shorthand for RunCommand("/system/identity/print", nil).
func (c *Client) GetSystemIdentity() (Reply, error) {
	return c.RunCommand("/system/identity/print", nil)
}
