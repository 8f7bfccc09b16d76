package reminder

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ScheduleLayout формат даты и времени из формы: дата из datepicker, время из timepicker.
const ScheduleLayout = "2006-01-02 15:04"

var ErrInvalidSchedule = errors.New("invalid reminder schedule")

// ParseSchedule собирает время напоминания из даты (YYYY-MM-DD) и времени (HH:MM) в зоне loc.
func ParseSchedule(date, clock string, loc *time.Location) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return time.Time{}, fmt.Errorf("%w: date and time are required", ErrInvalidSchedule)
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(ScheduleLayout, date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrInvalidSchedule, date+" "+clock, err)
	}
	return t, nil
}
