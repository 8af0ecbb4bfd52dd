// Package weather reports current conditions from Open-Meteo.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/soyeahso/collig/internal/skill"
)

// Default Open-Meteo endpoints. Neither needs an API key.
const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
)

type geocodingResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		Humidity    float64 `json:"relative_humidity_2m"`
		WeatherCode int     `json:"weather_code"`
		WindSpeed   float64 `json:"wind_speed_10m"`
	} `json:"current"`
}

// Skill is the Weather Reporter.
type Skill struct {
	skill.Base
	httpClient   *http.Client
	geocodingURL string
	forecastURL  string
}

// New creates the skill against the public Open-Meteo endpoints.
func New(httpClient *http.Client) *Skill {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Skill{
		Base: skill.Base{
			SkillName:        "Weather Reporter",
			SkillDescription: "Provides current weather information using Open-Meteo.",
			SkillTriggers:    []string{"weather", "temperature", "forecast", "raining", "sunny"},
		},
		httpClient:   httpClient,
		geocodingURL: DefaultGeocodingURL,
		forecastURL:  DefaultForecastURL,
	}
}

// WithEndpoints overrides the API base URLs.
func (s *Skill) WithEndpoints(geocodingURL, forecastURL string) *Skill {
	s.geocodingURL = geocodingURL
	s.forecastURL = forecastURL
	return s
}

func (s *Skill) Tools() []skill.Tool {
	return []skill.Tool{{
		Name:        "get_weather",
		Description: "Get the current weather for a specific city (e.g. \"London\", \"Tokyo\").",
		Schema:      `{"type":"object","properties":{"city":{"type":"string","description":"The name of the city"}},"required":["city"]}`,
		Fn: func(ctx context.Context, args json.RawMessage) (string, error) {
			var in struct {
				City string `json:"city"`
			}
			if err := skill.DecodeArgs(args, &in); err != nil {
				return "", err
			}
			out, err := s.Report(ctx, in.City)
			if err != nil {
				return fmt.Sprintf("Error fetching weather: %v", err), nil
			}
			return out, nil
		},
	}}
}

// Report geocodes city and formats its current conditions.
func (s *Skill) Report(ctx context.Context, city string) (string, error) {
	q := url.Values{}
	q.Set("name", city)
	q.Set("count", "1")
	q.Set("language", "en")
	q.Set("format", "json")

	var geo geocodingResponse
	if err := s.getJSON(ctx, s.geocodingURL+"?"+q.Encode(), &geo); err != nil {
		return "", err
	}
	if len(geo.Results) == 0 {
		return fmt.Sprintf("I couldn't find the location '%s'.", city), nil
	}
	loc := geo.Results[0]

	q = url.Values{}
	q.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	q.Set("current", "temperature_2m,relative_humidity_2m,weather_code,wind_speed_10m")
	q.Set("temperature_unit", "celsius")
	q.Set("wind_speed_unit", "kmh")

	var fc forecastResponse
	if err := s.getJSON(ctx, s.forecastURL+"?"+q.Encode(), &fc); err != nil {
		return "", err
	}

	c := fc.Current
	return fmt.Sprintf("Weather in %s, %s:\nTemperature: %g°C\nCondition: %s\nHumidity: %g%%\nWind: %g km/h",
		loc.Name, loc.Country, c.Temperature, Condition(c.WeatherCode), c.Humidity, c.WindSpeed), nil
}

// Condition maps a WMO weather code to a short description.
func Condition(code int) string {
	switch code {
	case 0:
		return "Clear sky"
	case 1, 2, 3:
		return "Partly cloudy"
	case 45, 48:
		return "Foggy"
	case 51, 53, 55, 56, 57:
		return "Drizzle"
	case 61, 63, 65, 66, 67, 80, 81, 82:
		return "Rain"
	case 71, 73, 75, 77, 85, 86:
		return "Snow"
	case 95, 96, 99:
		return "Thunderstorm"
	default:
		return "Unknown"
	}
}

func (s *Skill) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return json.Unmarshal(body, out)
}
