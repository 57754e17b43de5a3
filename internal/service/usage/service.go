// Package usage records the days a user practiced and derives streaks and
// month calendars from them.
package usage

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	models "scorelib/internal/domain/models/library"
	"scorelib/internal/domain/repositories"
	libsvc "scorelib/internal/domain/services/library"
	"scorelib/internal/repository/docstore"
)

//go:embed messages.txt
var messagesFile string

type service struct {
	store    repositories.DocumentStore
	messages []string
	logger   *slog.Logger
}

// NewService creates the usage service
func NewService(store repositories.DocumentStore, logger *slog.Logger) libsvc.UsageService {
	return &service{
		store:    store,
		messages: parseMessages(messagesFile),
		logger:   logger,
	}
}

func parseMessages(raw string) []string {
	var out []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func records(userID string) string {
	return docstore.Join("users", userID, "usageRecords")
}

// LogUsage marks day as used. Logging the same day twice keeps one record.
func (s *service) LogUsage(ctx context.Context, userID string, day time.Time) error {
	key := day.Format(models.DayLayout)
	rec := &models.UsageRecord{Date: key, LoggedAt: time.Now().UTC()}
	if err := s.store.Set(ctx, docstore.Join(records(userID), key), rec.Data()); err != nil {
		return fmt.Errorf("log usage: %w", err)
	}
	s.logger.Debug("usage logged", "user_id", userID, "date", key)
	return nil
}

func (s *service) usedSet(ctx context.Context, userID string) (map[string]bool, error) {
	docs, err := s.store.Query(ctx, records(userID))
	if err != nil {
		return nil, fmt.Errorf("load usage: %w", err)
	}
	used := make(map[string]bool, len(docs))
	for _, d := range docs {
		used[d.ID] = true
	}
	return used, nil
}

// UsedDays returns the used days of month in ascending order.
func (s *service) UsedDays(ctx context.Context, userID string, year int, month time.Month) ([]int, error) {
	used, err := s.usedSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	prefix := fmt.Sprintf("%04d-%02d-", year, int(month))
	var days []int
	for key := range used {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		t, err := time.Parse(models.DayLayout, key)
		if err != nil {
			continue
		}
		days = append(days, t.Day())
	}
	sort.Ints(days)
	return days, nil
}

// Calendar lays out month as a grid starting on Sunday. Leading cells before
// the first weekday have Day zero.
func (s *service) Calendar(ctx context.Context, userID string, year int, month time.Month, today time.Time) (*models.UsageCalendar, error) {
	days, err := s.UsedDays(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}
	streak, err := s.CurrentStreak(ctx, userID, today)
	if err != nil {
		return nil, err
	}
	return &models.UsageCalendar{
		Year:          year,
		Month:         month,
		Days:          BuildMonth(year, month, days, today),
		CurrentStreak: streak,
		DailyMessage:  DailyMessage(s.messages, today),
	}, nil
}

// BuildMonth is the pure grid construction behind Calendar.
func BuildMonth(year int, month time.Month, used []int, today time.Time) []models.CalendarDay {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()

	usedSet := make(map[int]bool, len(used))
	for _, d := range used {
		usedSet[d] = true
	}

	cells := make([]models.CalendarDay, 0, int(first.Weekday())+last)
	for i := 0; i < int(first.Weekday()); i++ {
		cells = append(cells, models.CalendarDay{})
	}
	for d := 1; d <= last; d++ {
		cells = append(cells, models.CalendarDay{
			Day:     d,
			Used:    usedSet[d],
			IsToday: today.Year() == year && today.Month() == month && today.Day() == d,
		})
	}
	return cells
}

// CurrentStreak counts consecutive used days ending today. A streak that ran
// through yesterday still counts while today is not logged yet.
func (s *service) CurrentStreak(ctx context.Context, userID string, today time.Time) (int, error) {
	used, err := s.usedSet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return Streak(used, today), nil
}

// Streak is the pure streak count over a set of used day keys.
func Streak(used map[string]bool, today time.Time) int {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	if !used[day.Format(models.DayLayout)] {
		day = day.AddDate(0, 0, -1)
	}
	n := 0
	for used[day.Format(models.DayLayout)] {
		n++
		day = day.AddDate(0, 0, -1)
	}
	return n
}

// DailyMessage picks the message for today's day of month.
func DailyMessage(messages []string, today time.Time) string {
	if len(messages) == 0 {
		return ""
	}
	return messages[today.Day()%len(messages)]
}
