package library

import "time"

// DayLayout is the key format of usage markers.
const DayLayout = "2006-01-02"

type UsageRecord struct {
	Date     string    `json:"date" doc:"date"`
	LoggedAt time.Time `json:"loggedAt" doc:"loggedAt"`
}

func (u *UsageRecord) Data() map[string]any {
	return map[string]any{
		"date":     u.Date,
		"loggedAt": u.LoggedAt.UnixMilli(),
	}
}

func DecodeUsageRecord(data map[string]any) (*UsageRecord, error) {
	var u UsageRecord
	if err := decode(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CalendarDay is one cell of a month grid. Day is zero for leading blanks.
type CalendarDay struct {
	Day     int  `json:"day,omitempty"`
	Used    bool `json:"used"`
	IsToday bool `json:"isToday,omitempty"`
}

type UsageCalendar struct {
	Year          int           `json:"year"`
	Month         time.Month    `json:"month"`
	Days          []CalendarDay `json:"days"`
	CurrentStreak int           `json:"currentStreak"`
	DailyMessage  string        `json:"dailyMessage,omitempty"`
}
