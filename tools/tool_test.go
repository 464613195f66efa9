package tools_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/pkg/schema"
	"github.com/effective-security/funagent/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoRequest struct {
	Text  string `json:"text"`
	Times int    `json:"times,omitempty"`
}

type echoResult struct {
	Echo []string `json:"echo"`
}

type echoTool struct{}

var _ tools.Tool[echoRequest, echoResult] = echoTool{}

func (echoTool) Name() string               { return "echo" }
func (echoTool) Description() string        { return "Echo the text" }
func (echoTool) Parameters() *schema.Schema { return tools.MustSchema[echoRequest]() }
func (t echoTool) Call(ctx context.Context, args map[string]any) (string, error) {
	return tools.Call[echoRequest, echoResult](ctx, t, args)
}
func (echoTool) Run(_ context.Context, req *echoRequest) (*echoResult, error) {
	if req.Text == "fail" {
		return nil, errors.New("echo failed")
	}
	res := &echoResult{}
	for range max(req.Times, 1) {
		res.Echo = append(res.Echo, req.Text)
	}
	return res, nil
}

func TestCall(t *testing.T) {
	ctx := context.Background()
	tool := echoTool{}

	out, err := tool.Call(ctx, map[string]any{"text": "hi", "times": 2})
	require.NoError(t, err)
	assert.Equal(t, `{"echo":["hi","hi"]}`, out)

	out, err = tool.Call(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"echo":[""]}`, out)

	_, err = tool.Call(ctx, map[string]any{"text": 1})
	assert.ErrorIs(t, err, tools.ErrFailedUnmarshalInput)

	_, err = tool.Call(ctx, map[string]any{"text": "fail"})
	assert.EqualError(t, err, "echo failed")

	assert.Equal(t, []string{"text"}, tool.Parameters().Parameters.Required)
}

func TestErrorJSON(t *testing.T) {
	assert.Equal(t, `{"error":"City 'X' not found"}`, tools.ErrorJSON("City 'X' not found"))
	assert.Equal(t, `{"error":"say \"hi\""}`, tools.ErrorJSON(`say "hi"`))
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		switch r.URL.Path {
		case "/ok":
			assert.Equal(t, "multiple", r.URL.Query().Get("type"))
			assert.Equal(t, "1", r.URL.Query().Get("amount"))
			_, _ = w.Write([]byte(`{"results":[{"name":"Paris"}]}`))
		case "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
			_, _ = w.Write([]byte(`{}`))
		case "/text":
			_, _ = w.Write([]byte(`not json`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	client := tools.NewClient(srv.Client())

	res, err := client.GetJSON(ctx, srv.URL+"/ok?type=multiple", url.Values{"amount": {"1"}}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Paris", res.Get("results.0.name").String())

	_, err = client.GetJSON(ctx, srv.URL+"/slow", nil, 20*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = client.GetJSON(ctx, srv.URL+"/text", nil, time.Second)
	assert.ErrorContains(t, err, "invalid JSON response")

	_, err = client.GetJSON(ctx, srv.URL+"/missing", nil, time.Second)
	assert.ErrorContains(t, err, "unexpected status 404")

	_, err = client.GetJSON(ctx, "://bad", nil, time.Second)
	assert.ErrorContains(t, err, "invalid URL")
}

func TestDefaults(t *testing.T) {
	d := tools.DefaultValues()
	assert.Equal(t, "mystery", d.BookTopic)
	assert.Equal(t, 3, d.BookLimit)
	assert.Equal(t, "https://via.placeholder.com/500?text=No+Dog+Image", d.DogPlaceholderURL)
	assert.Equal(t, 10*time.Second, d.GeocodingTimeout)
	assert.Equal(t, 20*time.Second, d.RequestTimeout)

	local := d.WithBaseURL("http://127.0.0.1:8080")
	assert.Equal(t, "http://127.0.0.1:8080/v1/search", local.GeocodingURL)
	assert.Equal(t, "https://geocoding-api.open-meteo.com/v1/search", d.GeocodingURL)
}
