package engine

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granularity time point (OT claims are keyed by calendar day)
// =============================================================================

// Date is a calendar day in UTC. All engine computations are keyed by
// (employee, date); time-of-day lives in TimeOfDay.
type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time.Time to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.Time.Before(other.Time) }
func (d Date) After(other Date) bool         { return d.Time.After(other.Time) }
func (d Date) Equal(other Date) bool         { return d.Time.Equal(other.Time) }
func (d Date) BeforeOrEqual(other Date) bool { return d.Before(other) || d.Equal(other) }
func (d Date) AfterOrEqual(other Date) bool  { return d.After(other) || d.Equal(other) }
func (d Date) IsZero() bool                  { return d.Time.IsZero() }

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) ISOWeek() (int, int)   { return d.Time.ISOWeek() }

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// SameISOWeek reports whether two dates fall in the same ISO-8601 week
// (Monday through Sunday). Used for weekly threshold windows.
func (d Date) SameISOWeek(other Date) bool {
	y1, w1 := d.ISOWeek()
	y2, w2 := other.ISOWeek()
	return y1 == y2 && w1 == w2
}

// SameMonth reports whether two dates fall in the same calendar month.
// Used for monthly threshold windows.
func (d Date) SameMonth(other Date) bool {
	return d.Year() == other.Year() && d.Month() == other.Month()
}

func StartOfMonth(d Date) Date { return NewDate(d.Year(), d.Month(), 1) }
func EndOfMonth(d Date) Date   { return StartOfMonth(d).AddMonths(1).AddDays(-1) }

// StartOfISOWeek returns the Monday of d's ISO-8601 week.
func StartOfISOWeek(d Date) Date {
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// EndOfISOWeek returns the Sunday of d's ISO-8601 week.
func EndOfISOWeek(d Date) Date { return StartOfISOWeek(d).AddDays(6) }

// =============================================================================
// TIME OF DAY - Session start/end within one calendar day
// =============================================================================

// TimeOfDay is minutes since midnight. Sessions never cross midnight;
// end must be strictly after start.
type TimeOfDay struct {
	Minutes int
}

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay{Minutes: hour*60 + minute}
}

// ParseTimeOfDay parses "15:04".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q: %w", s, err)
	}
	return NewTimeOfDay(t.Hour(), t.Minute()), nil
}

func (t TimeOfDay) Before(other TimeOfDay) bool { return t.Minutes < other.Minutes }
func (t TimeOfDay) After(other TimeOfDay) bool  { return t.Minutes > other.Minutes }

// MinutesUntil returns the elapsed minutes from t to other.
func (t TimeOfDay) MinutesUntil(other TimeOfDay) int { return other.Minutes - t.Minutes }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Minutes/60, t.Minutes%60)
}

// =============================================================================
// DAY TYPE - Classification driving which rate formula applies
// =============================================================================

type DayType string

const (
	DayWeekday       DayType = "weekday"
	DaySaturday      DayType = "saturday"
	DaySunday        DayType = "sunday"
	DayPublicHoliday DayType = "public_holiday"
)

// ValidDayType reports whether s is one of the four known day types.
func ValidDayType(s string) bool {
	switch DayType(s) {
	case DayWeekday, DaySaturday, DaySunday, DayPublicHoliday:
		return true
	}
	return false
}

// =============================================================================
// HOLIDAY CALENDAR - Opaque external lookup
// =============================================================================

// HolidayCalendar answers whether a date is a gazetted public holiday.
// The engine treats the calendar as an opaque collaborator; where the
// holiday data comes from is the embedding application's concern.
type HolidayCalendar interface {
	IsPublicHoliday(date Date) bool
}

// Holiday is one gazetted public holiday entry.
type Holiday struct {
	Date Date
	Name string
}

// DefaultHolidayCalendar knows no holidays. Weekends still classify
// as saturday/sunday without it.
type DefaultHolidayCalendar struct{}

func (DefaultHolidayCalendar) IsPublicHoliday(Date) bool { return false }

// DayTypeOf classifies a date. Public holidays win over weekends: a
// holiday falling on a Sunday is priced as a public holiday.
func DayTypeOf(calendar HolidayCalendar, date Date) DayType {
	if calendar != nil && calendar.IsPublicHoliday(date) {
		return DayPublicHoliday
	}
	switch date.Weekday() {
	case time.Saturday:
		return DaySaturday
	case time.Sunday:
		return DaySunday
	default:
		return DayWeekday
	}
}
