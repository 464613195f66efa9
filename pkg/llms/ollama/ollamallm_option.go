package ollama

import "net/http"

// Options for the Ollama client.
type Options struct {
	Host       string
	Model      string
	HTTPClient *http.Client
}

type Option func(*Options)

// WithHost sets the server address. If not set, OLLAMA_HOST or DefaultHost is used.
func WithHost(host string) Option {
	return func(opts *Options) {
		if host != "" {
			opts.Host = host
		}
	}
}

// WithModel sets the default model.
func WithModel(model string) Option {
	return func(opts *Options) {
		if model != "" {
			opts.Model = model
		}
	}
}

// WithHTTPClient allows setting a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *Options) {
		opts.HTTPClient = client
	}
}
