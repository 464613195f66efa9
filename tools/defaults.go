package tools

import "time"

// Tool names served by the host.
const (
	CityToCoordinates   = "city-to-coordinates"
	WeatherSummary      = "weather-summary"
	CurrentWeather      = "current-weather"
	BookRecommendations = "book-recommendations"
	RandomJoke          = "random-joke"
	RandomDogImage      = "random-dog-image"
	Trivia              = "trivia"
)

// Defaults are the named fallback values and upstream endpoints of the tools.
type Defaults struct {
	// BookTopic is used when the topic argument is absent
	BookTopic string `json:"book_topic" yaml:"book_topic"`
	// BookLimit is used when the limit argument is absent
	BookLimit int `json:"book_limit" yaml:"book_limit"`
	// DogPlaceholderURL is returned when no dog image is available
	DogPlaceholderURL string `json:"dog_placeholder_url" yaml:"dog_placeholder_url"`
	// NoJoke is returned when the joke is missing
	NoJoke string `json:"no_joke" yaml:"no_joke"`
	// NoTrivia is returned when there is no question
	NoTrivia string `json:"no_trivia" yaml:"no_trivia"`

	GeocodingURL string `json:"geocoding_url" yaml:"geocoding_url"`
	ForecastURL  string `json:"forecast_url" yaml:"forecast_url"`
	BooksURL     string `json:"books_url" yaml:"books_url"`
	JokeURL      string `json:"joke_url" yaml:"joke_url"`
	DogURL       string `json:"dog_url" yaml:"dog_url"`
	TriviaURL    string `json:"trivia_url" yaml:"trivia_url"`

	// GeocodingTimeout bounds the geocoding request
	GeocodingTimeout time.Duration `json:"geocoding_timeout" yaml:"geocoding_timeout"`
	// RequestTimeout bounds the other requests
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout"`
}

// DefaultValues returns the defaults of the public upstream services.
func DefaultValues() Defaults {
	return Defaults{
		BookTopic:         "mystery",
		BookLimit:         3,
		DogPlaceholderURL: "https://via.placeholder.com/500?text=No+Dog+Image",
		NoJoke:            "No joke found",
		NoTrivia:          "No trivia available.",

		GeocodingURL: "https://geocoding-api.open-meteo.com/v1/search",
		ForecastURL:  "https://api.open-meteo.com/v1/forecast",
		BooksURL:     "https://openlibrary.org/search.json",
		JokeURL:      "https://v2.jokeapi.dev/joke/Any?type=single&safe-mode",
		DogURL:       "https://dog.ceo/api/breeds/image/random",
		TriviaURL:    "https://opentdb.com/api.php?amount=1&type=multiple",

		GeocodingTimeout: 10 * time.Second,
		RequestTimeout:   20 * time.Second,
	}
}

// WithBaseURL returns a copy with every upstream endpoint served by baseURL,
// using the same paths as the public services.
func (d Defaults) WithBaseURL(baseURL string) Defaults {
	d.GeocodingURL = baseURL + "/v1/search"
	d.ForecastURL = baseURL + "/v1/forecast"
	d.BooksURL = baseURL + "/search.json"
	d.JokeURL = baseURL + "/joke/Any?type=single&safe-mode"
	d.DogURL = baseURL + "/api/breeds/image/random"
	d.TriviaURL = baseURL + "/api.php?amount=1&type=multiple"
	return d
}
