// Package reachability decides whether an event can still be attended
package reachability

import (
	"fmt"
	"strings"
	"time"

	"github.com/randytsao24/gigsahead/internal/models"
)

const (
	// AttendanceBuffer is how long after its start an event is still worth
	// travelling to. Event durations are not known upstream.
	AttendanceBuffer = 180 * time.Minute

	// DefaultStartTime is used for events without a start time
	DefaultStartTime = "19:00"

	isoLocalLayout = "2006-01-02T15:04:05"
	dateLayout     = "2006-01-02"
)

var clockLayouts = []string{"15:04:05", "15:04"}

// IsReachable reports whether now is strictly before
// eventStart + travel time + AttendanceBuffer.
func IsReachable(eventStart, now time.Time, travelTimeMinutes float64) bool {
	deadline := eventStart.
		Add(time.Duration(travelTimeMinutes * float64(time.Minute))).
		Add(AttendanceBuffer)
	return now.Before(deadline)
}

// IsReachableISO is IsReachable over ISO-8601 timestamps. Timestamps
// without a zone are read in loc.
func IsReachableISO(eventStartISO, nowISO string, travelTimeMinutes float64, loc *time.Location) (bool, error) {
	start, err := ParseTimestamp(eventStartISO, loc)
	if err != nil {
		return false, fmt.Errorf("parsing event start: %w", err)
	}
	now, err := ParseTimestamp(nowISO, loc)
	if err != nil {
		return false, fmt.Errorf("parsing current time: %w", err)
	}
	return IsReachable(start, now, travelTimeMinutes), nil
}

// ParseTimestamp accepts RFC 3339 or a zone-less local timestamp
func ParseTimestamp(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(isoLocalLayout, s, loc)
	if err != nil {
		return time.Time{}, &models.InvalidInputError{Field: "timestamp", Value: s}
	}
	return t, nil
}

// EventStart combines an event's date and start time in loc, using
// DefaultStartTime when the start time is missing.
func EventStart(date, startTime string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(date), loc)
	if err != nil {
		return time.Time{}, &models.InvalidInputError{Field: "event date", Value: date}
	}

	t, err := ParseStartTime(startTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc), nil
}

// ParseStartTime reads a clock time such as "7:30", "19:00" or "19:00:00",
// using DefaultStartTime when empty. Only the time of day is meaningful.
func ParseStartTime(startTime string) (time.Time, error) {
	clock := NormalizeStartTime(startTime)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, clock); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &models.InvalidInputError{Field: "event start time", Value: startTime}
}

// HasStartTime reports whether the event supplies its own start time
func HasStartTime(event models.Event) bool {
	return strings.TrimSpace(event.StartTime) != ""
}

// NormalizeStartTime returns the start time or DefaultStartTime when empty
func NormalizeStartTime(startTime string) string {
	if s := strings.TrimSpace(startTime); s != "" {
		return s
	}
	return DefaultStartTime
}

// Evaluate is IsReachable for an event, defaulting its start time
func Evaluate(event models.Event, now time.Time, travelTimeMinutes float64, loc *time.Location) (bool, error) {
	start, err := EventStart(event.Date, event.StartTime, loc)
	if err != nil {
		return false, err
	}
	return IsReachable(start, now, travelTimeMinutes), nil
}
