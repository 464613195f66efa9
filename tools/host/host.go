// Package host assembles the tool host server.
package host

import (
	"net/http"

	"github.com/effective-security/funagent/tools"
	"github.com/effective-security/funagent/tools/books"
	"github.com/effective-security/funagent/tools/dog"
	"github.com/effective-security/funagent/tools/geocode"
	"github.com/effective-security/funagent/tools/joke"
	"github.com/effective-security/funagent/tools/trivia"
	"github.com/effective-security/funagent/tools/weather"
	"github.com/effective-security/xlog"
	"github.com/mark3labs/mcp-go/server"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/funagent/tools", "host")

const (
	// ServerName is reported to the clients in the handshake
	ServerName = "FunTools"
	// ServerVersion is reported to the clients in the handshake
	ServerVersion = "1.0.0"
)

// Tools returns all tools served by the host.
func Tools(defaults tools.Defaults, httpClient *http.Client) []tools.ITool {
	client := tools.NewClient(httpClient)
	return []tools.ITool{
		geocode.New(defaults, client),
		weather.NewSummary(defaults, client),
		weather.NewCurrent(defaults, client),
		books.New(defaults, client),
		joke.New(defaults, client),
		dog.New(defaults, client),
		trivia.New(defaults, client),
	}
}

// NewServer returns the server with all tools registered.
func NewServer(defaults tools.Defaults, httpClient *http.Client) *server.MCPServer {
	srv := server.NewMCPServer(ServerName, ServerVersion,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)
	for _, t := range Tools(defaults, httpClient) {
		tools.Register(srv, t)
		logger.KV(xlog.DEBUG, "status", "registered", "tool", t.Name())
	}
	return srv
}
