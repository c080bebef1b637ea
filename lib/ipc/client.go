// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package ipc

import (
	"context"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/warden-project/warden/lib/codec"
)

// dialTimeout is the maximum time to wait for a connection to the
// daemon socket. Separate from the server's read/write timeouts; it
// covers only the connect phase.
const dialTimeout = 5 * time.Second

// responseReadTimeout is how long the client waits for the daemon's
// response after writing the request. Matched to the server's
// readTimeout + writeTimeout to account for handler execution time.
const responseReadTimeout = 45 * time.Second

// maxResponseSize bounds a single CBOR response. Matches the server's
// maxRequestSize for symmetry.
const maxResponseSize = 16 << 20

// DaemonError is returned by Do when the daemon answers ok=false: the
// request reached the daemon and the daemon refused it.
type DaemonError struct {
	Action  string
	Message string
}

func (e *DaemonError) Error() string {
	return fmt.Sprintf("daemon error on %q: %s", e.Action, e.Message)
}

// Client sends requests to a warden daemon socket. Each Do opens a
// new connection (matching the server's one-request-per-connection
// model), sends the request, reads the response, and closes the
// connection. Safe for concurrent use.
type Client struct {
	socketPath string
}

// NewClient returns a client for the daemon socket at socketPath.
func NewClient(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Do sends a request and decodes the daemon's response.
//
// If the daemon answers ok=false the error is a *DaemonError carrying
// the daemon's message. Connection and encoding failures are plain
// errors. Policy verdicts — a rejected image, a denied syscall — are
// not errors; they ride in the response's per-action fields.
func (c *Client) Do(ctx context.Context, request Request) (*Response, error) {
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("connecting to daemon at %s: %w", c.socketPath, err)
	}
	defer conn.Close()

	if err := codec.NewEncoder(conn).Encode(request); err != nil {
		return nil, fmt.Errorf("writing %q request: %w", request.Action, err)
	}

	// Half-close the write side. CBOR is self-delimiting so this is
	// not strictly necessary, but it lets the server's read side see
	// EOF cleanly.
	if unixConn, ok := conn.(*net.UnixConn); ok {
		unixConn.CloseWrite()
	}

	conn.SetReadDeadline(time.Now().Add(responseReadTimeout))
	var response Response
	if err := codec.NewDecoder(io.LimitReader(conn, maxResponseSize)).Decode(&response); err != nil {
		return nil, fmt.Errorf("reading %q response: %w", request.Action, err)
	}

	if !response.OK {
		return nil, &DaemonError{Action: request.Action, Message: response.Error}
	}
	return &response, nil
}
