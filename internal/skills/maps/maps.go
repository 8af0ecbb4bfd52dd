// Package maps answers route and traffic questions with the Google
// Directions API.
package maps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/collig/internal/config"
	"github.com/soyeahso/collig/internal/skill"
)

const (
	// KeyAPIKey is the config key holding the Google Maps key.
	KeyAPIKey = "google_maps_api_key"
	// DefaultDirectionsURL is the Directions API endpoint.
	DefaultDirectionsURL = "https://maps.googleapis.com/maps/api/directions/json"
)

var (
	fromToRe = regexp.MustCompile(`(?i)from\s+(.+?)\s+to\s+(.+)`)
	toRe     = regexp.MustCompile(`(?i).*\bto\s+(.+)`)
	tagRe    = regexp.MustCompile(`<[^<]+?>`)
)

type text struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Summary string `json:"summary"`
		Legs    []struct {
			Duration          text   `json:"duration"`
			DurationInTraffic *text  `json:"duration_in_traffic"`
			Distance          text   `json:"distance"`
			StartAddress      string `json:"start_address"`
			EndAddress        string `json:"end_address"`
			Steps             []struct {
				HTMLInstructions string `json:"html_instructions"`
				Distance         text   `json:"distance"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
}

// Route is the part of a Directions answer the skill reports.
type Route struct {
	Origin      string   `json:"origin"`
	Destination string   `json:"destination"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Duration    string   `json:"duration"`
	Traffic     string   `json:"traffic,omitempty"`
	Distance    string   `json:"distance"`
	Summary     string   `json:"summary"`
	Steps       []string `json:"steps"`
}

// Skill is the Map & Navigation executor.
type Skill struct {
	skill.Base
	cfg        config.Getter
	httpClient *http.Client
	url        string
	now        func() time.Time
	// home supplies a starting point when the message names none.
	home func() string
}

// New creates the skill. home may be nil.
func New(cfg config.Getter, httpClient *http.Client, home func() string) *Skill {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &Skill{
		Base: skill.Base{
			SkillName:        "Map & Navigation",
			SkillDescription: "Provides directions, routes, and traffic information using Google Maps.",
			SkillTriggers:    []string{"route", "directions", "map", "navigate", "how to get to", "traffic", "distance"},
			SkillConfig:      []string{KeyAPIKey},
		},
		cfg:        cfg,
		httpClient: httpClient,
		url:        DefaultDirectionsURL,
		now:        time.Now,
		home:       home,
	}
}

// ParseTrip extracts origin and destination from "from A to B" or "to B".
func ParseTrip(message string) (origin, destination string) {
	message = strings.TrimRight(strings.TrimSpace(message), "?.!")
	if m := fromToRe.FindStringSubmatch(message); m != nil {
		return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
	}
	if m := toRe.FindStringSubmatch(message); m != nil {
		return "", strings.TrimSpace(m[1])
	}
	return "", ""
}

func (s *Skill) Execute(ctx context.Context, c skill.Context) (skill.Result, error) {
	key, ok := s.cfg.Get(KeyAPIKey)
	if !ok {
		return skill.Result{
			Response: "I need a Google Maps API Key to check real traffic and routes.\n" +
				"Please configure it using: `collig config set " + KeyAPIKey + " YOUR_KEY`",
			Action: skill.ActionMissingConfig,
			Data:   map[string]any{"key": KeyAPIKey},
		}, nil
	}

	origin, destination := ParseTrip(c.Message())
	if destination == "" {
		return skill.Errorf("I couldn't figure out where you want to go. Please say something like 'route from New York to Boston'."), nil
	}
	if origin == "" && s.home != nil {
		origin = s.home()
	}
	if origin == "" {
		return skill.Errorf("Where are you starting from? Say 'route from <start> to %s', or save your location with 'my location is ...'.", destination), nil
	}

	route, err := s.Directions(ctx, key, origin, destination)
	if err != nil {
		return skill.Errorf("Error getting directions: %v", err), nil
	}
	if route == nil {
		return skill.Errorf("I couldn't find a route from '%s' to '%s'.", origin, destination), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "🚗 **Route from %s to %s**\n", route.Start, route.End)
	fmt.Fprintf(&b, "**Time:** %s\n", route.Duration)
	if route.Traffic != "" {
		fmt.Fprintf(&b, "**Time in current traffic:** %s\n", route.Traffic)
	}
	fmt.Fprintf(&b, "**Distance:** %s\n", route.Distance)
	fmt.Fprintf(&b, "**Via:** %s\n\n", route.Summary)
	b.WriteString("**First few steps:**\n" + strings.Join(route.Steps, "\n") + "\n...")

	return skill.Result{
		Response: b.String(),
		Action:   skill.ActionShowRoute,
		Data:     map[string]any{"route": route},
	}, nil
}

// Directions fetches a driving route departing now. A nil Route means
// none was found.
func (s *Skill) Directions(ctx context.Context, key, origin, destination string) (*Route, error) {
	q := url.Values{}
	q.Set("origin", origin)
	q.Set("destination", destination)
	q.Set("mode", "driving")
	q.Set("departure_time", strconv.FormatInt(s.now().Unix(), 10))
	q.Set("key", key)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}

	var dr directionsResponse
	if err := json.Unmarshal(body, &dr); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	switch dr.Status {
	case "OK":
	case "ZERO_RESULTS", "NOT_FOUND":
		return nil, nil
	default:
		if dr.ErrorMessage != "" {
			return nil, fmt.Errorf("%s: %s", dr.Status, dr.ErrorMessage)
		}
		return nil, fmt.Errorf("directions API status %s", dr.Status)
	}
	if len(dr.Routes) == 0 || len(dr.Routes[0].Legs) == 0 {
		return nil, nil
	}

	r := dr.Routes[0]
	leg := r.Legs[0]
	route := &Route{
		Origin:      origin,
		Destination: destination,
		Start:       leg.StartAddress,
		End:         leg.EndAddress,
		Duration:    leg.Duration.Text,
		Distance:    leg.Distance.Text,
		Summary:     r.Summary,
	}
	if route.Summary == "" {
		route.Summary = "the best route"
	}
	if leg.DurationInTraffic != nil {
		route.Traffic = leg.DurationInTraffic.Text
	}
	for i, st := range leg.Steps {
		if i == 3 {
			break
		}
		route.Steps = append(route.Steps, fmt.Sprintf("- %s (%s)", tagRe.ReplaceAllString(st.HTMLInstructions, ""), st.Distance.Text))
	}
	return route, nil
}
