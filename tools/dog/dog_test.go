package dog_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/funagent/tools"
	"github.com/effective-security/funagent/tools/dog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDog(t *testing.T) {
	ctx := context.Background()

	tcases := []struct {
		name   string
		status int
		body   string
		exp    string
	}{
		{"ok", http.StatusOK, `{"message":"https://images.dog.ceo/breeds/hound-afghan/n02088094_1003.jpg","status":"success"}`, "https://images.dog.ceo/breeds/hound-afghan/n02088094_1003.jpg"},
		{"not a url", http.StatusOK, `{"message":"Breed not found","status":"error"}`, tools.DefaultValues().DogPlaceholderURL},
		{"missing", http.StatusOK, `{"status":"success"}`, tools.DefaultValues().DogPlaceholderURL},
		{"not json", http.StatusOK, `<html>`, tools.DefaultValues().DogPlaceholderURL},
		{"status", http.StatusNotFound, `{"message":"https://images.dog.ceo/x.jpg"}`, tools.DefaultValues().DogPlaceholderURL},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/api/breeds/image/random", r.URL.Path)
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			tool := dog.New(tools.DefaultValues().WithBaseURL(srv.URL), tools.NewClient(srv.Client()))
			assert.Equal(t, tools.RandomDogImage, tool.Name())

			out, err := tool.Call(ctx, nil)
			require.NoError(t, err)
			assert.Equal(t, tc.exp, out)
		})
	}
}
