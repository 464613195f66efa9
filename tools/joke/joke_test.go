package joke_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/funagent/tools"
	"github.com/effective-security/funagent/tools/joke"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoke(t *testing.T) {
	ctx := context.Background()

	body := `{"error":false,"category":"Programming","type":"single","joke":"I'd tell you a UDP joke, but you might not get it."}`
	status := http.StatusOK
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/joke/Any", r.URL.Path)
		assert.Equal(t, "single", r.URL.Query().Get("type"))
		assert.True(t, r.URL.Query().Has("safe-mode"))
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	defer srv.Close()

	tool := joke.New(tools.DefaultValues().WithBaseURL(srv.URL), tools.NewClient(srv.Client()))
	assert.Equal(t, tools.RandomJoke, tool.Name())
	assert.Equal(t, 0, tool.Parameters().Parameters.Properties.Len())

	out, err := tool.Call(ctx, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"joke":"I'd tell you a UDP joke, but you might not get it."}`, out)

	body = `{"error":false,"type":"twopart","setup":"a","delivery":"b"}`
	out, err = tool.Call(ctx, map[string]any{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"joke":"No joke found"}`, out)

	status = http.StatusTooManyRequests
	out, err = tool.Call(ctx, nil)
	require.NoError(t, err)
	assert.Contains(t, out, "unexpected status 429")
}
