package recalibrate

import (
	"fmt"
	"time"
)

// Schedule yields the next run strictly after t.
type Schedule interface {
	Next(t time.Time) time.Time
	String() string
}

type dailyAt struct {
	hour, minute int
	loc          *time.Location
}

// DailyAt fires once a day at hour:minute in loc (UTC when nil).
func DailyAt(hour, minute int, loc *time.Location) Schedule {
	if loc == nil {
		loc = time.UTC
	}
	return dailyAt{hour: hour, minute: minute, loc: loc}
}

func (d dailyAt) Next(t time.Time) time.Time {
	t = t.In(d.loc)
	next := time.Date(t.Year(), t.Month(), t.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (d dailyAt) String() string {
	return fmt.Sprintf("daily at %02d:%02d %s", d.hour, d.minute, d.loc)
}

type weeklyAt struct {
	day  time.Weekday
	hour int
	loc  *time.Location
}

// WeeklyAt fires once a week on day at hour:00 in loc (UTC when nil).
func WeeklyAt(day time.Weekday, hour int, loc *time.Location) Schedule {
	if loc == nil {
		loc = time.UTC
	}
	return weeklyAt{day: day, hour: hour, loc: loc}
}

func (w weeklyAt) Next(t time.Time) time.Time {
	t = t.In(w.loc)
	next := time.Date(t.Year(), t.Month(), t.Day(), w.hour, 0, 0, 0, w.loc)
	next = next.AddDate(0, 0, (int(w.day)-int(t.Weekday())+7)%7)
	if !next.After(t) {
		next = next.AddDate(0, 0, 7)
	}
	return next
}

func (w weeklyAt) String() string {
	return fmt.Sprintf("weekly on %s at %02d:00 %s", w.day, w.hour, w.loc)
}
