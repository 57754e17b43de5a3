package usage

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scorelib/internal/repository/memory"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestStreak(t *testing.T) {
	used := map[string]bool{
		"2024-02-27": true,
		"2024-02-28": true,
		"2024-02-29": true,
		"2024-03-01": true,
		"2024-03-05": true,
	}

	tests := []struct {
		name  string
		today string
		want  int
	}{
		{"across month and leap day", "2024-03-01", 4},
		{"today not yet logged", "2024-03-02", 4},
		{"broken streak", "2024-03-04", 0},
		{"single day", "2024-03-05", 1},
		{"no usage", "2023-01-01", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Streak(used, day(tt.today)))
		})
	}
}

func TestBuildMonth(t *testing.T) {
	// March 2024 starts on a Friday.
	cells := BuildMonth(2024, time.March, []int{1, 15}, day("2024-03-15"))

	require.Len(t, cells, 5+31)
	for i := 0; i < 5; i++ {
		assert.Zero(t, cells[i].Day)
	}
	assert.Equal(t, 1, cells[5].Day)
	assert.True(t, cells[5].Used)
	assert.False(t, cells[6].Used)

	fifteenth := cells[5+14]
	assert.Equal(t, 15, fifteenth.Day)
	assert.True(t, fifteenth.Used)
	assert.True(t, fifteenth.IsToday)

	other := BuildMonth(2024, time.April, nil, day("2024-03-15"))
	for _, c := range other {
		assert.False(t, c.IsToday)
	}
}

func TestDailyMessage(t *testing.T) {
	msgs := []string{"a", "b", "c"}
	assert.Equal(t, "b", DailyMessage(msgs, day("2024-03-01")))
	assert.Equal(t, "a", DailyMessage(msgs, day("2024-03-03")))
	assert.Empty(t, DailyMessage(nil, day("2024-03-03")))
	assert.NotEmpty(t, parseMessages(messagesFile))
}

func TestService(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	store := memory.NewStore(logger)
	svc := NewService(store, logger)
	ctx := context.Background()

	for _, d := range []string{"2024-03-01", "2024-03-02", "2024-03-02", "2024-02-28"} {
		require.NoError(t, svc.LogUsage(ctx, "u1", day(d)))
	}

	days, err := svc.UsedDays(ctx, "u1", 2024, time.March)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, days)

	streak, err := svc.CurrentStreak(ctx, "u1", day("2024-03-02"))
	require.NoError(t, err)
	assert.Equal(t, 2, streak)

	cal, err := svc.Calendar(ctx, "u1", 2024, time.March, day("2024-03-02"))
	require.NoError(t, err)
	assert.Equal(t, 2, cal.CurrentStreak)
	assert.NotEmpty(t, cal.DailyMessage)
	assert.True(t, cal.Days[5].Used)

	other, err := svc.UsedDays(ctx, "u2", 2024, time.March)
	require.NoError(t, err)
	assert.Empty(t, other)
}
