package mcp

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/server"
)

// HostConfig specifies the tool host subprocess.
type HostConfig struct {
	// Command is the executable of the tool host
	Command string `json:"command" yaml:"command" validate:"required"`
	// Args are the command arguments
	Args []string `json:"args,omitempty" yaml:"args,omitempty"`
	// Env are additional KEY=VALUE environment variables
	Env []string `json:"env,omitempty" yaml:"env,omitempty"`
}

// Launch starts the tool host as a subprocess,
// and returns the channel over its stdio.
// The channel must be initialized before use.
func Launch(host HostConfig, cfg Config) (*Channel, error) {
	if host.Command == "" {
		return nil, errors.New("tool host command is required")
	}

	cl, err := client.NewStdioMCPClient(host.Command, host.Env, host.Args...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to start tool host %q", host.Command)
	}

	logger.KV(xlog.DEBUG,
		"status", "launched",
		"command", host.Command,
		"args", host.Args)

	return NewChannel(cl, cfg), nil
}

// NewInProcess returns the channel connected to the server in this process.
// The channel must be initialized before use.
func NewInProcess(ctx context.Context, srv *server.MCPServer, cfg Config) (*Channel, error) {
	cl, err := client.NewInProcessClient(srv)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create in-process client")
	}
	if err = cl.Start(ctx); err != nil {
		_ = cl.Close()
		return nil, errors.Wrap(err, "failed to start in-process client")
	}
	return NewChannel(cl, cfg), nil
}
