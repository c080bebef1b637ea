// Copyright 2026 The Warden Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"context"
	"errors"
	"os"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/warden-project/warden/lib/config"
	"github.com/warden-project/warden/lib/ipc"
)

// SocketConfig holds the shared --socket flag for commands that talk
// to the warden daemon.
//
// The socket path resolves in order: the --socket flag, the
// WARDEN_SOCKET environment variable, paths.socket from the warden.yaml
// named by WARDEN_CONFIG, then the shipped default. Commands never fail
// on resolution; a daemon that is not listening surfaces as a connect
// error with a diagnosis.
type SocketConfig struct {
	Socket string
}

// AddFlags registers --socket on the given flag set, satisfying
// [FlagBinder] so SocketConfig embeds in params structs.
func (c *SocketConfig) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&c.Socket, "socket", "", "warden daemon socket (default from WARDEN_SOCKET or WARDEN_CONFIG)")
}

// ResolveSocketPath returns the daemon socket path per the documented
// resolution order.
func (c *SocketConfig) ResolveSocketPath() string {
	if c.Socket != "" {
		return c.Socket
	}
	if path := os.Getenv("WARDEN_SOCKET"); path != "" {
		return path
	}
	if configPath := os.Getenv("WARDEN_CONFIG"); configPath != "" {
		if cfg, err := config.LoadFile(configPath); err == nil && cfg.Paths.Socket != "" {
			return cfg.Paths.Socket
		}
	}
	return config.Default().Paths.Socket
}

// Client returns an IPC client for the resolved socket path.
func (c *SocketConfig) Client() *ipc.Client {
	return ipc.NewClient(c.ResolveSocketPath())
}

// Do sends one request to the daemon. Transport failures come back
// diagnosed ([DiagnoseConnectError]); a daemon refusal comes back as a
// validation error carrying the daemon's message.
func (c *SocketConfig) Do(ctx context.Context, request ipc.Request) (*ipc.Response, error) {
	socketPath := c.ResolveSocketPath()
	response, err := ipc.NewClient(socketPath).Do(ctx, request)
	if err != nil {
		var daemonError *ipc.DaemonError
		if errors.As(err, &daemonError) {
			return nil, Validation("%s", daemonError.Message)
		}
		return nil, DiagnoseConnectError(err, socketPath)
	}
	return response, nil
}

// DiagnoseConnectError converts a low-level socket dial failure into a
// categorized error with remediation guidance. Errors that are not
// recognizable dial failures pass through unchanged.
func DiagnoseConnectError(err error, socketPath string) error {
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Transient("daemon socket %s does not exist (is warden-daemon running?): %v", socketPath, err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return Transient("daemon socket %s refused the connection (stale socket from a dead daemon?): %v", socketPath, err)
	case errors.Is(err, syscall.EACCES):
		return Internal("daemon socket %s denied access (run as the daemon's user): %v", socketPath, err)
	default:
		return err
	}
}
