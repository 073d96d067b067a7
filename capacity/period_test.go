package capacity_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/capacity-engine/capacity"
)

func TestPeriod_Days_Inclusive(t *testing.T) {
	p := capacity.Period{
		Start: capacity.NewDate(2026, time.January, 5),
		End:   capacity.NewDate(2026, time.January, 16),
	}
	assert.Equal(t, 12, p.Days())

	single := capacity.Period{
		Start: capacity.NewDate(2026, time.January, 5),
		End:   capacity.NewDate(2026, time.January, 5),
	}
	assert.Equal(t, 1, single.Days(), "single-day period counts one day")
}

func TestPeriod_Clip(t *testing.T) {
	window := capacity.Period{
		Start: capacity.NewDate(2026, time.January, 5),
		End:   capacity.NewDate(2026, time.January, 16),
	}

	t.Run("partial overlap clips to window", func(t *testing.T) {
		leave := capacity.Period{
			Start: capacity.NewDate(2026, time.January, 14),
			End:   capacity.NewDate(2026, time.January, 20),
		}
		clipped, ok := window.Clip(leave)
		require.True(t, ok)
		assert.Equal(t, capacity.NewDate(2026, time.January, 14), clipped.Start)
		assert.Equal(t, capacity.NewDate(2026, time.January, 16), clipped.End)
		assert.Equal(t, 3, clipped.Days())
	})

	t.Run("no overlap", func(t *testing.T) {
		_, ok := window.Clip(capacity.Period{
			Start: capacity.NewDate(2026, time.February, 1),
			End:   capacity.NewDate(2026, time.February, 5),
		})
		assert.False(t, ok)
	})

	t.Run("touching endpoints overlap", func(t *testing.T) {
		clipped, ok := window.Clip(capacity.Period{
			Start: capacity.NewDate(2026, time.January, 16),
			End:   capacity.NewDate(2026, time.January, 25),
		})
		require.True(t, ok)
		assert.Equal(t, 1, clipped.Days())
	})
}

func TestPeriod_IsValid(t *testing.T) {
	assert.False(t, capacity.Period{
		Start: capacity.NewDate(2026, time.January, 16),
		End:   capacity.NewDate(2026, time.January, 5),
	}.IsValid())
	assert.True(t, capacity.Period{
		Start: capacity.NewDate(2026, time.January, 5),
		End:   capacity.NewDate(2026, time.January, 5),
	}.IsValid())
}

func TestParseDate(t *testing.T) {
	d, err := capacity.ParseDate("2026-01-05")
	require.NoError(t, err)
	assert.Equal(t, capacity.NewDate(2026, time.January, 5), d)
	assert.Equal(t, "2026-01-05", d.String())

	_, err = capacity.ParseDate("05/01/2026")
	assert.Error(t, err)
}

func TestDate_Arithmetic(t *testing.T) {
	d := capacity.NewDate(2026, time.January, 30)
	assert.Equal(t, capacity.NewDate(2026, time.February, 2), d.AddDays(3), "month rollover")
	assert.Equal(t, 3, capacity.DaysBetween(d, d.AddDays(3)))
	assert.Equal(t, -3, capacity.DaysBetween(d.AddDays(3), d))
}
