package news

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/soyeahso/collig/internal/skill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapGetter map[string]string

func (m mapGetter) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok && v != ""
}

const braveBody = `{"results":[
 {"title":"Harbour bridge closed","url":"https://news.example/1","description":"Traffic chaos.","age":"2 hours ago","meta_url":{"hostname":"news.example"}},
 {"title":"","url":"https://other.example/2","description":"","age":"1 day ago","meta_url":{"hostname":""}}
]}`

type captured struct {
	header http.Header
	query  url.Values
}

func braveServer(t *testing.T, status int, body string) (*httptest.Server, *captured) {
	t.Helper()
	got := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.header = r.Header.Clone()
		got.query = r.URL.Query()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func run(t *testing.T, ctx context.Context, s *Skill, name string, args any) string {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	for _, tl := range s.Tools() {
		if tl.Name == name {
			out, err := tl.Fn(ctx, raw)
			require.NoError(t, err)
			return out
		}
	}
	t.Fatalf("no tool %s", name)
	return ""
}

func TestSearchAndRead(t *testing.T) {
	srv, got := braveServer(t, http.StatusOK, braveBody)
	s := New(mapGetter{KeyAPIKey: "tok"}, srv.Client()).WithSearchURL(srv.URL)
	ctx := skill.WithState(context.Background(), skill.NewStateStore(1).For("s"))

	out := run(t, ctx, s, "search_news", map[string]string{"query": "sydney"})
	assert.Equal(t, "Found 2 news items for 'sydney':\n\n"+
		"1. [news.example] Harbour bridge closed (2 hours ago)\n"+
		"2. [Unknown Source] No Title (1 day ago)\n"+
		"\nTo read a specific item, use the 'read_news_item' tool with the item number (e.g., 'read_news_item 1').", out)

	assert.Equal(t, "tok", got.header.Get("X-Subscription-Token"))
	assert.Equal(t, "sydney", got.query.Get("q"))
	assert.Equal(t, "pw", got.query.Get("freshness"))

	out = run(t, ctx, s, "read_news_item", map[string]int{"index": 1})
	assert.Equal(t, "**Title:** Harbour bridge closed\n**Source:** news.example (2 hours ago)\n"+
		"**Summary:** Traffic chaos.\n**Link:** https://news.example/1", out)

	out = run(t, ctx, s, "read_news_item", map[string]int{"index": 2})
	assert.Contains(t, out, "**Summary:** No content summary available.")

	out = run(t, ctx, s, "read_news_item", map[string]int{"index": 3})
	assert.Equal(t, "Invalid index. Please choose a number between 1 and 2.", out)
}

func TestReadBeforeSearch(t *testing.T) {
	s := New(mapGetter{}, nil)
	ctx := skill.WithState(context.Background(), skill.NewStateStore(1).For("s"))
	assert.Equal(t, "No news items available. Please search for news first.", run(t, ctx, s, "read_news_item", map[string]int{"index": 1}))
}

func TestCacheIsPerSession(t *testing.T) {
	srv, _ := braveServer(t, http.StatusOK, braveBody)
	s := New(mapGetter{KeyAPIKey: "tok"}, srv.Client()).WithSearchURL(srv.URL)
	states := skill.NewStateStore(4)

	run(t, skill.WithState(context.Background(), states.For("a")), s, "search_news", map[string]string{"query": "x"})
	out := run(t, skill.WithState(context.Background(), states.For("b")), s, "read_news_item", map[string]int{"index": 1})
	assert.Equal(t, "No news items available. Please search for news first.", out)
}

func TestSearchErrors(t *testing.T) {
	ctx := context.Background()

	s := New(mapGetter{}, nil)
	out := run(t, ctx, s, "search_news", map[string]string{"query": "x"})
	assert.Contains(t, out, "Error searching news: BRAVE_API_KEY is not set")

	srv, _ := braveServer(t, http.StatusUnauthorized, `{"error":"bad token"}`)
	s = New(mapGetter{KeyAPIKey: "bad"}, srv.Client()).WithSearchURL(srv.URL)
	out = run(t, ctx, s, "search_news", map[string]string{"query": "x"})
	assert.Equal(t, `Error searching news: API error (status 401): {"error":"bad token"}`, out)

	srv, _ = braveServer(t, http.StatusOK, `{"results":[]}`)
	s = New(mapGetter{KeyAPIKey: "tok"}, srv.Client()).WithSearchURL(srv.URL)
	assert.Equal(t, "No news found for 'x'.", run(t, ctx, s, "search_news", map[string]string{"query": "x"}))
}

func TestRequiredConfig(t *testing.T) {
	assert.Equal(t, []string{KeyAPIKey}, New(mapGetter{}, nil).RequiredConfig())
}
