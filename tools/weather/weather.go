package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"strconv"

	"github.com/effective-security/funagent/pkg/schema"
	"github.com/effective-security/funagent/tools"
	"github.com/tidwall/gjson"
)

// ErrNoWeather is the error of the summary when the temperature is missing.
const ErrNoWeather = "Could not retrieve weather"

var conditions = map[int64]string{
	0:  "clear sky",
	1:  "mainly clear",
	2:  "partly cloudy",
	3:  "overcast",
	45: "foggy",
	51: "light drizzle",
	61: "light rain",
	63: "rain",
	65: "heavy rain",
	71: "light snow",
	73: "snow",
	80: "rain showers",
	95: "thunderstorm",
}

// Condition returns the description of the WMO weather code.
func Condition(code int64) string {
	if c, ok := conditions[code]; ok {
		return c
	}
	return "unknown weather"
}

// Feel returns the comment on the temperature in fahrenheit.
func Feel(tempF float64) string {
	switch {
	case tempF < 32:
		return "Freezing cold, perfect for hot cocoa indoors!"
	case tempF < 50:
		return "Chilly, grab a cozy sweater."
	case tempF < 70:
		return "Pleasant and mild."
	case tempF < 85:
		return "Warm and lovely."
	default:
		return "Hot, stay hydrated!"
	}
}

// Request is the input of the weather tools.
type Request struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" jsonschema:"description=Latitude in degrees"`
	Longitude float64 `json:"longitude" yaml:"longitude" jsonschema:"description=Longitude in degrees"`
}

// Summary is the current weather with a human-readable description.
type Summary struct {
	TemperatureF *float64 `json:"temperature_f,omitempty" yaml:"temperature_f,omitempty"`
	Condition    string   `json:"condition,omitempty" yaml:"condition,omitempty"`
	WindKmh      *float64 `json:"wind_kmh,omitempty" yaml:"wind_kmh,omitempty"`
	Summary      string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	Error        string   `json:"error,omitempty" yaml:"error,omitempty"`
}

type forecast struct {
	defaults tools.Defaults
	client   *tools.Client
}

// current returns the current block of the Open-Meteo forecast.
func (f forecast) current(ctx context.Context, req *Request) (gjson.Result, error) {
	query := url.Values{
		"latitude":         {strconv.FormatFloat(req.Latitude, 'f', -1, 64)},
		"longitude":        {strconv.FormatFloat(req.Longitude, 'f', -1, 64)},
		"current":          {"temperature_2m,weather_code,wind_speed_10m"},
		"timezone":         {"auto"},
		"temperature_unit": {"fahrenheit"},
	}
	res, err := f.client.GetJSON(ctx, f.defaults.ForecastURL, query, f.defaults.RequestTimeout)
	if err != nil {
		return gjson.Result{}, err
	}
	return res.Get("current"), nil
}

// SummaryTool returns the current weather with a cheerful description.
type SummaryTool struct {
	forecast
}

var _ tools.Tool[Request, Summary] = (*SummaryTool)(nil)

// NewSummary returns the weather-summary tool.
func NewSummary(defaults tools.Defaults, client *tools.Client) *SummaryTool {
	return &SummaryTool{forecast{defaults: defaults, client: client}}
}

func (t *SummaryTool) Name() string {
	return tools.WeatherSummary
}

func (t *SummaryTool) Description() string {
	return "Returns current weather with a cheerful human-readable description."
}

func (t *SummaryTool) Parameters() *schema.Schema {
	return tools.MustSchema[Request]()
}

func (t *SummaryTool) Call(ctx context.Context, args map[string]any) (string, error) {
	return tools.Call[Request, Summary](ctx, t, args)
}

func (t *SummaryTool) Run(ctx context.Context, req *Request) (*Summary, error) {
	cur, err := t.current(ctx, req)
	if err != nil {
		return &Summary{Error: ErrNoWeather}, nil
	}

	temp := cur.Get("temperature_2m")
	if temp.Type != gjson.Number {
		return &Summary{Error: ErrNoWeather}, nil
	}
	wind := cur.Get("wind_speed_10m")
	windRaw := "0"
	if wind.Type == gjson.Number {
		windRaw = wind.Raw
	}

	tempF := round1(temp.Float())
	windKmh := round1(wind.Float())
	condition := Condition(cur.Get("weather_code").Int())

	return &Summary{
		TemperatureF: &tempF,
		Condition:    condition,
		WindKmh:      &windKmh,
		Summary: fmt.Sprintf("It's currently %s°F and %s with winds around %s km/h. %s",
			temp.Raw, condition, windRaw, Feel(temp.Float())),
	}, nil
}

// CurrentTool returns the raw current weather block.
type CurrentTool struct {
	forecast
}

var _ tools.Tool[Request, json.RawMessage] = (*CurrentTool)(nil)

// NewCurrent returns the current-weather tool.
func NewCurrent(defaults tools.Defaults, client *tools.Client) *CurrentTool {
	return &CurrentTool{forecast{defaults: defaults, client: client}}
}

func (t *CurrentTool) Name() string {
	return tools.CurrentWeather
}

func (t *CurrentTool) Description() string {
	return "Current weather at coordinates via Open-Meteo."
}

func (t *CurrentTool) Parameters() *schema.Schema {
	return tools.MustSchema[Request]()
}

func (t *CurrentTool) Call(ctx context.Context, args map[string]any) (string, error) {
	return tools.Call[Request, json.RawMessage](ctx, t, args)
}

func (t *CurrentTool) Run(ctx context.Context, req *Request) (*json.RawMessage, error) {
	var raw json.RawMessage
	cur, err := t.current(ctx, req)
	switch {
	case err != nil:
		raw = json.RawMessage(tools.ErrorJSON(err.Error()))
	case cur.IsObject():
		raw = json.RawMessage(cur.Raw)
	default:
		raw = json.RawMessage(`{}`)
	}
	return &raw, nil
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
