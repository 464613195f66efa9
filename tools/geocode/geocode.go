package geocode

import (
	"context"
	"fmt"
	"net/url"

	"github.com/effective-security/funagent/pkg/schema"
	"github.com/effective-security/funagent/tools"
	"github.com/tidwall/gjson"
)

// Request is the tool input.
type Request struct {
	City string `json:"city" yaml:"city" jsonschema:"description=Name of the city"`
}

// Result is the location of the city, or the error.
type Result struct {
	City      string   `json:"city,omitempty" yaml:"city,omitempty"`
	Country   string   `json:"country,omitempty" yaml:"country,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty" yaml:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" yaml:"longitude,omitempty"`
	Timezone  string   `json:"timezone,omitempty" yaml:"timezone,omitempty"`
	Error     string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Tool converts a city name to coordinates with the Open-Meteo geocoding API.
type Tool struct {
	defaults tools.Defaults
	client   *tools.Client
}

var _ tools.Tool[Request, Result] = (*Tool)(nil)

// New returns the tool.
func New(defaults tools.Defaults, client *tools.Client) *Tool {
	return &Tool{
		defaults: defaults,
		client:   client,
	}
}

func (t *Tool) Name() string {
	return tools.CityToCoordinates
}

func (t *Tool) Description() string {
	return "Convert a city name to latitude/longitude using Open-Meteo geocoding."
}

func (t *Tool) Parameters() *schema.Schema {
	return tools.MustSchema[Request]()
}

func (t *Tool) Call(ctx context.Context, args map[string]any) (string, error) {
	return tools.Call[Request, Result](ctx, t, args)
}

func (t *Tool) Run(ctx context.Context, req *Request) (*Result, error) {
	notFound := &Result{Error: fmt.Sprintf("City '%s' not found", req.City)}
	if req.City == "" {
		return notFound, nil
	}

	query := url.Values{
		"name":     {req.City},
		"count":    {"1"},
		"language": {"en"},
	}
	res, err := t.client.GetJSON(ctx, t.defaults.GeocodingURL, query, t.defaults.GeocodingTimeout)
	if err != nil {
		return &Result{Error: err.Error()}, nil
	}

	loc := res.Get("results.0")
	if !loc.Exists() {
		return notFound, nil
	}
	lat := loc.Get("latitude")
	lon := loc.Get("longitude")
	if lat.Type != gjson.Number || lon.Type != gjson.Number {
		return notFound, nil
	}

	latitude, longitude := lat.Float(), lon.Float()
	return &Result{
		City:      loc.Get("name").String(),
		Country:   loc.Get("country").String(),
		Latitude:  &latitude,
		Longitude: &longitude,
		Timezone:  loc.Get("timezone").String(),
	}, nil
}
