package countdown

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinzuo/storefront-services/internal/delivery/calendar"
)

func brisbaneCountdown(t *testing.T) (*Countdown, *time.Location) {
	t.Helper()
	loc, err := calendar.LoadLocation(calendar.DefaultTimezone)
	require.NoError(t, err)
	return New(calendar.DefaultCutoff, loc), loc
}

func TestNextTargetsTodayOrTomorrow(t *testing.T) {
	c, loc := brisbaneCountdown(t)

	morning := time.Date(2025, 10, 14, 9, 30, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 10, 14, 12, 0, 0, 0, loc), c.Next(morning))

	atNoon := time.Date(2025, 10, 14, 12, 0, 0, 0, loc)
	assert.Equal(t, time.Date(2025, 10, 15, 12, 0, 0, 0, loc), c.Next(atNoon))

	evening := time.Date(2025, 10, 14, 18, 0, 0, 0, loc)
	assert.Equal(t, 18*time.Hour, c.Remaining(evening))
}

func TestNextUsesHomeTimezone(t *testing.T) {
	c, loc := brisbaneCountdown(t)
	// 23:00 UTC on the 13th is 09:00 on the 14th in Brisbane.
	now := time.Date(2025, 10, 13, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 10, 14, 12, 0, 0, 0, loc), c.Next(now))
	assert.Equal(t, 3*time.Hour, c.Remaining(now))
}

func TestFormat(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{2*time.Hour + 5*time.Minute + 3*time.Second, "2 hrs, 5 mins, 3 secs"},
		{5*time.Minute + 3*time.Second + 900*time.Millisecond, "5 mins, 3 secs"},
		{59 * time.Second, "0 mins, 59 secs"},
		{24 * time.Hour, "24 hrs, 0 mins, 0 secs"},
		{-time.Second, "0 mins, 0 secs"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.d))
	}
}

func TestSnapshot(t *testing.T) {
	c, loc := brisbaneCountdown(t)
	snap := c.Snapshot(time.Date(2025, 10, 14, 11, 0, 30, 0, loc))
	assert.Equal(t, int64(59*60+30), snap.RemainingSeconds)
	assert.Equal(t, "59 mins, 30 secs", snap.Display)
}

func TestSnapshotHandler(t *testing.T) {
	c, loc := brisbaneCountdown(t)
	h := NewHandler(c, nil, nil)
	h.now = func() time.Time { return time.Date(2025, 10, 14, 9, 0, 0, 0, loc) }

	rec := httptest.NewRecorder()
	h.Snapshot(rec, httptest.NewRequest(http.MethodGet, "/api/v1/countdown", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "3 hrs, 0 mins, 0 secs", snap.Display)
	assert.Equal(t, int64(3*3600), snap.RemainingSeconds)
}

func TestStreamTicks(t *testing.T) {
	c, loc := brisbaneCountdown(t)
	h := NewHandler(c, nil, nil)
	h.interval = 10 * time.Millisecond
	now := time.Date(2025, 10, 14, 11, 59, 58, 0, loc)
	var ticks int
	h.now = func() time.Time {
		ticks++
		return now.Add(time.Duration(ticks-1) * time.Second)
	}

	srv := httptest.NewServer(http.HandlerFunc(h.Stream))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	var got []string
	for i := 0; i < 3; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var snap Snapshot
		require.NoError(t, conn.ReadJSON(&snap))
		got = append(got, snap.Display)
	}
	assert.Equal(t, []string{"0 mins, 2 secs", "0 mins, 1 secs", "24 hrs, 0 mins, 0 secs"}, got)
}

func TestStreamRejectsDisallowedOrigin(t *testing.T) {
	c, _ := brisbaneCountdown(t)
	h := NewHandler(c, func(origin string) bool { return origin == "https://shop.example" }, nil)

	srv := httptest.NewServer(http.HandlerFunc(h.Stream))
	defer srv.Close()

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
