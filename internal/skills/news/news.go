// Package news searches recent news through the Brave Search API.
package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/soyeahso/collig/internal/config"
	"github.com/soyeahso/collig/internal/skill"
)

const (
	// DefaultSearchURL is Brave's news endpoint.
	DefaultSearchURL = "https://api.search.brave.com/res/v1/news/search"
	// KeyAPIKey is the config key holding the Brave subscription token.
	KeyAPIKey = "BRAVE_API_KEY"

	maxResults  = 10
	stateCached = "news.results"
)

// Item is one cached search result.
type Item struct {
	Title   string
	Source  string
	Date    string
	Summary string
	URL     string
}

type searchResponse struct {
	Results []struct {
		Title       string `json:"title"`
		URL         string `json:"url"`
		Description string `json:"description"`
		Age         string `json:"age"`
		MetaURL     struct {
			Hostname string `json:"hostname"`
		} `json:"meta_url"`
	} `json:"results"`
}

// Skill is the NewsSkill.
type Skill struct {
	skill.Base
	cfg        config.Getter
	httpClient *http.Client
	searchURL  string
}

// New creates the skill. The API key is read from cfg on every search so
// `collig config set` takes effect without a restart.
func New(cfg config.Getter, httpClient *http.Client) *Skill {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Skill{
		Base: skill.Base{
			SkillName:        "NewsSkill",
			SkillDescription: "Searches recent news articles and reads individual items from the results.",
			SkillTriggers:    []string{"news", "headlines", "latest on", "read article"},
			SkillConfig:      []string{KeyAPIKey},
		},
		cfg:        cfg,
		httpClient: httpClient,
		searchURL:  DefaultSearchURL,
	}
}

// WithSearchURL overrides the Brave endpoint.
func (s *Skill) WithSearchURL(u string) *Skill {
	s.searchURL = u
	return s
}

func (s *Skill) Tools() []skill.Tool {
	return []skill.Tool{
		{
			Name:        "search_news",
			Description: "Search for news articles based on a query, e.g. \"local news in Sydney today\". Returns a numbered list of news items.",
			Schema:      `{"type":"object","properties":{"query":{"type":"string"}},"required":["query"]}`,
			Fn:          s.searchNews,
		},
		{
			Name: "read_news_item",
			Description: "Read the title and summary of a news item from the last search. " +
				"Use this when the user asks to \"read\" a news item by number (e.g. \"read 1\", \"read article 2\").",
			Schema: `{"type":"object","properties":{"index":{"type":"integer","description":"1-based item number"}},"required":["index"]}`,
			Fn:     s.readNewsItem,
		},
	}
}

func (s *Skill) searchNews(ctx context.Context, raw json.RawMessage) (string, error) {
	var in struct {
		Query string `json:"query"`
	}
	if err := skill.DecodeArgs(raw, &in); err != nil {
		return "", err
	}
	items, err := s.Search(ctx, in.Query)
	if err != nil {
		return fmt.Sprintf("Error searching news: %v", err), nil
	}
	if len(items) == 0 {
		return fmt.Sprintf("No news found for '%s'.", in.Query), nil
	}
	skill.StateFrom(ctx).Set(stateCached, items)

	out := []string{fmt.Sprintf("Found %d news items for '%s':\n", len(items), in.Query)}
	for i, it := range items {
		out = append(out, fmt.Sprintf("%d. [%s] %s (%s)", i+1, it.Source, it.Title, it.Date))
	}
	out = append(out, "\nTo read a specific item, use the 'read_news_item' tool with the item number (e.g., 'read_news_item 1').")
	return strings.Join(out, "\n"), nil
}

func (s *Skill) readNewsItem(ctx context.Context, raw json.RawMessage) (string, error) {
	var in struct {
		Index int `json:"index"`
	}
	if err := skill.DecodeArgs(raw, &in); err != nil {
		return "", err
	}
	v, _ := skill.StateFrom(ctx).Get(stateCached)
	items, _ := v.([]Item)
	if len(items) == 0 {
		return "No news items available. Please search for news first.", nil
	}
	if in.Index < 1 || in.Index > len(items) {
		return fmt.Sprintf("Invalid index. Please choose a number between 1 and %d.", len(items)), nil
	}
	it := items[in.Index-1]
	return fmt.Sprintf("**Title:** %s\n**Source:** %s (%s)\n**Summary:** %s\n**Link:** %s",
		it.Title, it.Source, it.Date, it.Summary, it.URL), nil
}

// Search queries Brave for news from the past week.
func (s *Skill) Search(ctx context.Context, query string) ([]Item, error) {
	key, ok := s.cfg.Get(KeyAPIKey)
	if !ok {
		return nil, fmt.Errorf("%s is not set. Please set it using 'collig config set %s <key>'", KeyAPIKey, KeyAPIKey)
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("count", strconv.Itoa(maxResults))
	params.Set("search_lang", "en")
	params.Set("freshness", "pw")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.searchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", key)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	items := make([]Item, 0, len(sr.Results))
	for _, r := range sr.Results {
		it := Item{
			Title:   r.Title,
			Source:  r.MetaURL.Hostname,
			Date:    r.Age,
			Summary: r.Description,
			URL:     r.URL,
		}
		if it.Title == "" {
			it.Title = "No Title"
		}
		if it.Source == "" {
			it.Source = "Unknown Source"
		}
		if it.Summary == "" {
			it.Summary = "No content summary available."
		}
		items = append(items, it)
	}
	if len(items) > maxResults {
		items = items[:maxResults]
	}
	return items, nil
}
