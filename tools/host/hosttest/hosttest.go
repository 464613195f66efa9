// Package hosttest provides a fake upstream for the tool host in tests.
package hosttest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/effective-security/funagent/tools"
	"github.com/effective-security/funagent/tools/host"
	"github.com/mark3labs/mcp-go/server"
)

// Joke is the joke served by the upstream.
const Joke = "Why do programmers prefer dark mode? Because light attracts bugs."

// DogURL is the image served by the upstream.
const DogURL = "https://images.dog.ceo/breeds/pug/pug_1.jpg"

// Upstream serves fixed replies on the paths of the public services.
// Geocoding knows Paris (48.85, 2.35) and Null Island (0, 0);
// the forecast is 59°F and overcast everywhere.
type Upstream struct {
	*httptest.Server

	lock  sync.Mutex
	calls map[string]int
}

// NewUpstream starts the upstream, the caller must Close it.
func NewUpstream() *Upstream {
	u := &Upstream{calls: make(map[string]int)}
	u.Server = httptest.NewServer(http.HandlerFunc(u.serve))
	return u
}

// Defaults returns the tool defaults pointing to the upstream.
func (u *Upstream) Defaults() tools.Defaults {
	return tools.DefaultValues().WithBaseURL(u.URL)
}

// NewServer returns the tool host over the upstream.
func (u *Upstream) NewServer() *server.MCPServer {
	return host.NewServer(u.Defaults(), u.Client())
}

// Calls returns the number of requests to the path.
func (u *Upstream) Calls(path string) int {
	u.lock.Lock()
	defer u.lock.Unlock()
	return u.calls[path]
}

func (u *Upstream) serve(w http.ResponseWriter, r *http.Request) {
	u.lock.Lock()
	u.calls[r.URL.Path]++
	u.lock.Unlock()

	w.Header().Set("Content-Type", "application/json")

	var body string
	switch r.URL.Path {
	case "/v1/search":
		switch strings.ToLower(r.URL.Query().Get("name")) {
		case "paris":
			body = `{"results":[{"name":"Paris","country":"France","latitude":48.85,"longitude":2.35,"timezone":"Europe/Paris"}]}`
		case "null island":
			body = `{"results":[{"name":"Null Island","latitude":0,"longitude":0}]}`
		default:
			body = `{}`
		}
	case "/v1/forecast":
		body = `{"current":{"temperature_2m":59.0,"weather_code":3,"wind_speed_10m":11.2}}`
	case "/search.json":
		body = `{"docs":[{"title":"Dune"},{"title":"Foundation"},{"title":"Hyperion"},{"title":"Solaris"}]}`
	case "/joke/Any":
		body = `{"type":"single","joke":"` + Joke + `"}`
	case "/api/breeds/image/random":
		body = `{"message":"` + DogURL + `","status":"success"}`
	case "/api.php":
		body = `{"results":[{"question":"2 + 2 = ?","correct_answer":"4","incorrect_answers":["3","5","22"]}]}`
	default:
		http.NotFound(w, r)
		return
	}
	_, _ = w.Write([]byte(body))
}
