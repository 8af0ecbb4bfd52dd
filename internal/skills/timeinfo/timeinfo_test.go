package timeinfo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetCurrentTime(t *testing.T) {
	s := New()
	s.now = func() time.Time { return time.Date(2024, 2, 9, 7, 5, 3, 0, time.Local) }

	tools := s.Tools()
	require.Len(t, tools, 1)
	assert.Equal(t, "get_current_time", tools[0].Name)

	out, err := tools[0].Fn(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, "Friday, February 09, 2024 07:05:03", out)
}

func TestDescriptor(t *testing.T) {
	s := New()
	assert.Equal(t, "Time Teller", s.Name())
	assert.Contains(t, s.Triggers(), "what time")
	assert.Empty(t, s.RequiredConfig())
}
