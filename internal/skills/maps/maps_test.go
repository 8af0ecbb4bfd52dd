package maps

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/soyeahso/collig/internal/skill"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapGetter map[string]string

func (m mapGetter) Get(key string) (string, bool) {
	v, ok := m[key]
	return v, ok && v != ""
}

const directionsOK = `{"status":"OK","routes":[{"summary":"M4","legs":[{
 "duration":{"text":"25 mins","value":1500},
 "duration_in_traffic":{"text":"41 mins","value":2460},
 "distance":{"text":"18.2 km","value":18200},
 "start_address":"Parramatta NSW, Australia","end_address":"Sydney NSW, Australia",
 "steps":[
  {"html_instructions":"Head <b>east</b> on Church St","distance":{"text":"200 m"}},
  {"html_instructions":"Merge onto <b>M4</b>","distance":{"text":"15 km"}},
  {"html_instructions":"Take exit","distance":{"text":"1 km"}},
  {"html_instructions":"Arrive","distance":{"text":"1 m"}}
 ]}]}]}`

func TestParseTrip(t *testing.T) {
	tests := []struct {
		msg, origin, dest string
	}{
		{"route from Parramatta to Sydney", "Parramatta", "Sydney"},
		{"What's the traffic like from Home Bush to the city?", "Home Bush", "the city"},
		{"how to get to the airport", "", "the airport"},
		{"directions to Bondi Beach.", "", "Bondi Beach"},
		{"show me a map", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			o, d := ParseTrip(tt.msg)
			assert.Equal(t, tt.origin, o)
			assert.Equal(t, tt.dest, d)
		})
	}
}

func newServer(t *testing.T, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newSkill(srv *httptest.Server, home func() string) *Skill {
	s := New(mapGetter{KeyAPIKey: "k"}, srv.Client(), home)
	s.url = srv.URL
	s.now = func() time.Time { return time.Unix(1700000000, 0) }
	return s
}

func TestExecuteRoute(t *testing.T) {
	srv := newServer(t, directionsOK, func(r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Parramatta", q.Get("origin"))
		assert.Equal(t, "Sydney", q.Get("destination"))
		assert.Equal(t, "driving", q.Get("mode"))
		assert.Equal(t, "1700000000", q.Get("departure_time"))
		assert.Equal(t, "k", q.Get("key"))
	})
	s := newSkill(srv, nil)

	res, err := s.Execute(context.Background(), skill.Context{skill.MessageKey: "route from Parramatta to Sydney"})
	require.NoError(t, err)
	assert.Equal(t, skill.ActionShowRoute, res.Action)
	assert.Equal(t, "🚗 **Route from Parramatta NSW, Australia to Sydney NSW, Australia**\n"+
		"**Time:** 25 mins\n"+
		"**Time in current traffic:** 41 mins\n"+
		"**Distance:** 18.2 km\n"+
		"**Via:** M4\n\n"+
		"**First few steps:**\n"+
		"- Head east on Church St (200 m)\n"+
		"- Merge onto M4 (15 km)\n"+
		"- Take exit (1 km)\n...", res.Response)
	route, ok := res.Data["route"].(*Route)
	require.True(t, ok)
	assert.Len(t, route.Steps, 3)
}

func TestExecuteUsesHomeLocation(t *testing.T) {
	var origin string
	srv := newServer(t, directionsOK, func(r *http.Request) { origin = r.URL.Query().Get("origin") })

	s := newSkill(srv, func() string { return "Oatlands NSW 2117" })
	res, err := s.Execute(context.Background(), skill.Context{skill.MessageKey: "how do I get to Sydney"})
	require.NoError(t, err)
	assert.Equal(t, skill.ActionShowRoute, res.Action)
	assert.Equal(t, "Oatlands NSW 2117", origin)

	s = newSkill(srv, nil)
	res, err = s.Execute(context.Background(), skill.Context{skill.MessageKey: "how do I get to Sydney"})
	require.NoError(t, err)
	assert.Equal(t, skill.ActionError, res.Action)
	assert.Contains(t, res.Response, "Where are you starting from?")
}

func TestExecuteMissingKey(t *testing.T) {
	s := New(mapGetter{}, nil, nil)
	res, err := s.Execute(context.Background(), skill.Context{skill.MessageKey: "route from a to b"})
	require.NoError(t, err)
	assert.Equal(t, skill.ActionMissingConfig, res.Action)
	assert.Contains(t, res.Response, "collig config set google_maps_api_key YOUR_KEY")
	assert.Equal(t, []string{KeyAPIKey}, s.RequiredConfig())
}

func TestExecuteFailures(t *testing.T) {
	res, err := newSkill(newServer(t, "", nil), nil).Execute(context.Background(), skill.Context{skill.MessageKey: "show me a map"})
	require.NoError(t, err)
	assert.Equal(t, "I couldn't figure out where you want to go. Please say something like 'route from New York to Boston'.", res.Response)

	s := newSkill(newServer(t, `{"status":"ZERO_RESULTS","routes":[]}`, nil), nil)
	res, _ = s.Execute(context.Background(), skill.Context{skill.MessageKey: "from Perth to Hobart"})
	assert.Equal(t, "I couldn't find a route from 'Perth' to 'Hobart'.", res.Response)

	s = newSkill(newServer(t, `{"status":"REQUEST_DENIED","error_message":"The provided API key is invalid."}`, nil), nil)
	res, _ = s.Execute(context.Background(), skill.Context{skill.MessageKey: "from a to b"})
	assert.Equal(t, skill.ActionError, res.Action)
	assert.Equal(t, "Error getting directions: REQUEST_DENIED: The provided API key is invalid.", res.Response)
}
