package google

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
)

func TestEventWindow_TimedEvent(t *testing.T) {
	t.Parallel()

	start, end, ok := eventWindow(&calendar.Event{
		Start: &calendar.EventDateTime{DateTime: "2025-06-02T09:00:00Z"},
		End:   &calendar.EventDateTime{DateTime: "2025-06-02T10:30:00Z"},
	})

	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC), start.UTC())
	assert.Equal(t, time.Date(2025, 6, 2, 10, 30, 0, 0, time.UTC), end.UTC())
}

func TestEventWindow_AllDayEvent(t *testing.T) {
	t.Parallel()

	start, end, ok := eventWindow(&calendar.Event{
		Start: &calendar.EventDateTime{Date: "2025-06-02"},
		End:   &calendar.EventDateTime{Date: "2025-06-03"},
	})

	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC), end)
}

func TestEventWindow_MissingBounds(t *testing.T) {
	t.Parallel()

	_, _, ok := eventWindow(&calendar.Event{
		Start: &calendar.EventDateTime{DateTime: "2025-06-02T09:00:00Z"},
	})
	assert.False(t, ok)

	_, _, ok = eventWindow(&calendar.Event{
		Start: &calendar.EventDateTime{DateTime: "garbage"},
		End:   &calendar.EventDateTime{DateTime: "2025-06-02T10:00:00Z"},
	})
	assert.False(t, ok)
}

func TestNewAdapter_Defaults(t *testing.T) {
	t.Parallel()

	adapter := NewAdapter(Config{ClientID: "id", ClientSecret: "secret"}, nil)

	assert.Equal(t, "primary", adapter.calendarID)
	assert.Equal(t, defaultTimeout, adapter.timeout)
	require.NotNil(t, adapter.limiter)
}
