package rental

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, 6, 2, 14, 0, 0, 0, time.Local)

	tests := []struct {
		name      string
		start     time.Time
		end       time.Time
		state     State
		remaining int64
	}{
		{"upcoming", now.Add(time.Hour), now.Add(2 * time.Hour), Upcoming, 3600},
		{"active", now.Add(-5 * time.Minute), now.Add(10 * time.Minute), Active, 600},
		{"active at start", now, now.Add(time.Hour), Active, 3600},
		{"active at end", now.Add(-time.Hour), now, Active, 0},
		{"finished", now.Add(-time.Hour), now.Add(-time.Minute), Finished, 0},
		{"inverted window", now.Add(time.Hour), now.Add(-time.Hour), Finished, 0},
		{"empty window", now, now, Finished, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Evaluate(now, tt.start, tt.end)
			assert.Equal(t, tt.state, res.State)
			assert.Equal(t, tt.remaining, res.RemainingSeconds)
		})
	}
}

func TestEvaluateBreakdownTruncates(t *testing.T) {
	now := time.Date(2025, 6, 2, 14, 0, 0, 0, time.Local)
	end := now.Add(2*time.Hour + 3*time.Minute + 4*time.Second + 900*time.Millisecond)

	res := Evaluate(now, now.Add(-time.Minute), end)
	assert.Equal(t, Active, res.State)
	assert.Equal(t, int64(2*3600+3*60+4), res.RemainingSeconds)
	assert.Equal(t, int64(2), res.Hours)
	assert.Equal(t, int64(3), res.Minutes)
	assert.Equal(t, int64(4), res.Seconds)
}

func TestEvaluateRemainingNeverNegativeAndMonotonic(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.Local)
	end := start.Add(90 * time.Minute)

	prev := int64(-1)
	for now := start.Add(-10 * time.Minute); now.Before(end.Add(10 * time.Minute)); now = now.Add(7 * time.Second) {
		res := Evaluate(now, start, end)
		assert.GreaterOrEqual(t, res.RemainingSeconds, int64(0))

		if res.State != Active {
			continue
		}
		if prev >= 0 {
			assert.LessOrEqual(t, res.RemainingSeconds, prev)
		}
		prev = res.RemainingSeconds
	}
	assert.Equal(t, int64(0), Evaluate(end, start, end).RemainingSeconds)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "upcoming", Upcoming.String())
	assert.Equal(t, "active", Active.String())
	assert.Equal(t, "finished", Finished.String())
	assert.Equal(t, "unknown", State(42).String())

	text, err := Active.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "active", string(text))
}

func TestParseState(t *testing.T) {
	for name, want := range map[string]State{"active": Active, " Upcoming ": Upcoming, "finish": Finished, "FINISHED": Finished} {
		got, ok := ParseState(name)
		assert.True(t, ok, name)
		assert.Equal(t, want, got, name)
	}
	_, ok := ParseState("soon")
	assert.False(t, ok)
}

func TestResultClock(t *testing.T) {
	now := time.Date(2025, 6, 2, 14, 0, 0, 0, time.Local)
	res := Evaluate(now, now.Add(-time.Hour), now.Add(2*time.Hour+3*time.Minute+4*time.Second))
	assert.Equal(t, "02:03:04", res.Clock())
	assert.Equal(t, "00:00:00", Result{State: Finished}.Clock())
}
