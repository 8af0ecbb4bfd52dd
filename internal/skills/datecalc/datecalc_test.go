package datecalc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday.
var base = time.Date(2025, 1, 15, 10, 0, 0, 0, time.Local)

func TestResolve(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{"today", "2025-01-15"},
		{"tomorrow", "2025-01-16"},
		{"what was yesterday", "2025-01-14"},
		{"next monday", "2025-01-20"},
		{"next wednesday", "2025-01-22"},
		{"this friday", "2025-01-17"},
		{"this wednesday", "2025-01-15"},
		{"this monday", "2025-01-20"},
		{"next week", "2025-01-22"},
		{"in 3 days", "2025-01-18"},
		{"in 2 weeks", "2025-01-29"},
		{"in 1 month", "2025-02-15"},
		{"10 days ago", "2025-01-05"},
		{"gibberish", "2025-01-15"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.query, base).Format(time.DateOnly))
		})
	}
}

func TestCalculateDateTool(t *testing.T) {
	s := New()
	s.now = func() time.Time { return base }
	fn := s.Tools()[0].Fn

	out, err := fn(context.Background(), []byte(`{"query":"Tomorrow"}`))
	require.NoError(t, err)
	assert.Equal(t, "Today is Wednesday, January 15, 2025. Date calculation for 'tomorrow': Thursday, January 16, 2025", out)

	out, err = fn(context.Background(), []byte(`{"query":"next friday","base_date":"2024-12-30"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "Today is Monday, December 30, 2024.")
	assert.Contains(t, out, "Friday, January 03, 2025")

	out, err = fn(context.Background(), []byte(`{"query":"today","base_date":"the 5th"}`))
	require.NoError(t, err)
	assert.Equal(t, "Error: Invalid base_date format 'the 5th'.", out)
}
