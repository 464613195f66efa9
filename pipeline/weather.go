package pipeline

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/funagent/mcp"
	"github.com/effective-security/funagent/pkg/llmutils"
	"github.com/effective-security/funagent/tools"
	"github.com/tidwall/gjson"
)

// WeatherName is the name of the weather pipeline.
const WeatherName = "weather-pipeline"

// Stage names of the weather pipeline.
const (
	StageGeocode = "geocode"
	StageWeather = "weather"
)

// Weather returns the pipeline resolving the city of the "city" seed
// to coordinates, and fetching the weather summary at them.
func Weather() *Pipeline {
	return &Pipeline{
		Name: WeatherName,
		Stages: []Stage{
			{
				Name: StageGeocode,
				Tool: tools.CityToCoordinates,
				Input: func(state State) (map[string]any, error) {
					city := state.String("city")
					if city == "" {
						return nil, errors.WithMessage(ErrRejected, "no city")
					}
					return map[string]any{"city": city}, nil
				},
				Validate: validateCoordinates,
			},
			{
				Name: StageWeather,
				Tool: tools.WeatherSummary,
				Input: func(state State) (map[string]any, error) {
					return map[string]any{
						"latitude":  state["latitude"],
						"longitude": state["longitude"],
					}, nil
				},
			},
		},
		Render: func(state State, last *mcp.ToolResult) string {
			return fmt.Sprintf("Weather for %s:\n%s", state.String("city"), last.Text)
		},
		OnReject: func(rej Rejection, state State) string {
			if rej.Stage.Name == StageGeocode {
				return fmt.Sprintf("Could not find city '%s'.", state.String("city"))
			}
			return rej.Result.String()
		},
	}
}

// validateCoordinates accepts a JSON result with numeric latitude and longitude,
// zero is a valid coordinate.
func validateCoordinates(res *mcp.ToolResult, state State) error {
	if res.Failed() {
		return errors.WithMessage(ErrRejected, res.String())
	}
	js := llmutils.CleanJSON([]byte(res.Text))
	if !gjson.ValidBytes(js) {
		return errors.WithMessage(ErrRejected, "not a JSON result")
	}
	lat := gjson.GetBytes(js, "latitude")
	lon := gjson.GetBytes(js, "longitude")
	if lat.Type != gjson.Number || lon.Type != gjson.Number {
		return errors.WithMessage(ErrRejected, "no coordinates")
	}
	state["latitude"] = lat.Float()
	state["longitude"] = lon.Float()
	return nil
}
