// Command funtools is the tool host serving the fun tools over stdio.
//
// Stdout is the protocol channel, the logs go to stderr.
// The log level is set by FUNTOOLS_LOG_LEVEL, WARNING by default.
package main

import (
	"fmt"
	"os"

	"github.com/effective-security/funagent/config"
	"github.com/effective-security/funagent/tools"
	"github.com/effective-security/funagent/tools/host"
	"github.com/effective-security/xlog"
	"github.com/mark3labs/mcp-go/server"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/funagent", "funtools")

func main() {
	xlog.SetFormatter(xlog.NewStringFormatter(os.Stderr))
	xlog.SetGlobalLogLevel((&config.Config{LogLevel: os.Getenv("FUNTOOLS_LOG_LEVEL")}).Level())

	srv := host.NewServer(tools.DefaultValues(), nil)
	logger.KV(xlog.INFO, "status", "serving", "server", host.ServerName)

	if err := server.ServeStdio(srv); err != nil {
		fmt.Fprintf(os.Stderr, "funtools: %s\n", err.Error())
		os.Exit(1)
	}
}
