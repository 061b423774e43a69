// Package planner turns scheduling parameters into a deterministic sequence
// of publish slots. It performs no I/O: the preview shown to the operator
// and the slots actually persisted come from the same computation.
package planner

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrInvalidTimeFormat is returned for time input the parser cannot read.
	ErrInvalidTimeFormat = errors.New("invalid time format")
	// ErrTimeOutOfRange is returned for hours outside 0-23 or minutes outside 0-59.
	ErrTimeOutOfRange = errors.New("time out of range")
	// ErrInvalidPeriod is returned for a period of less than one day.
	ErrInvalidPeriod = errors.New("period must be at least 1 day")
	// ErrInvalidDailyCount is returned for a daily post count of less than one.
	ErrInvalidDailyCount = errors.New("daily post count must be at least 1")
)

// timePattern accepts HH<sep>MM where the separator is any run of
// ':', ';', '.', ',', '-', '_' or whitespace.
var timePattern = regexp.MustCompile(`^(\d{1,2})[:;.,\-_\s]+(\d{1,2})$`)

// placeholderTheme fills slots when no themes were provided.
const placeholderTheme = "..."

// TimeOfDay is a wall-clock publication time.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// String formats the time as zero-padded HH:MM.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParsePublishTime parses operator time input. Accepted separators between
// hours and minutes: ":", ";", ".", ",", "-", "_" and whitespace.
func ParsePublishTime(input string) (TimeOfDay, error) {
	match := timePattern.FindStringSubmatch(strings.TrimSpace(input))
	if match == nil {
		return TimeOfDay{}, ErrInvalidTimeFormat
	}
	hour, _ := strconv.Atoi(match[1])
	minute, _ := strconv.Atoi(match[2])
	if hour > 23 || minute > 59 {
		return TimeOfDay{}, ErrTimeOutOfRange
	}
	return TimeOfDay{Hour: hour, Minute: minute}, nil
}

// Params describes one batch planning request.
type Params struct {
	PeriodDays  int
	DailyPosts  int
	StartDate   time.Time // calendar date; time-of-day part is ignored
	PublishTime TimeOfDay
	Themes      []string
}

// Slot is one planned publication: a fire time and an assigned theme.
type Slot struct {
	At         time.Time
	Theme      string
	ThemeIndex int
}

// Plan emits exactly PeriodDays*DailyPosts slots. Posts within one day share
// the configured publish time plus a minute offset per post index, so every
// slot has a distinct fire time. Themes rotate round-robin over the slot
// sequence; with no themes a placeholder is assigned.
func Plan(p Params) ([]Slot, error) {
	if p.PeriodDays < 1 {
		return nil, ErrInvalidPeriod
	}
	if p.DailyPosts < 1 {
		return nil, ErrInvalidDailyCount
	}

	year, month, day := p.StartDate.Date()
	base := time.Date(year, month, day, p.PublishTime.Hour, p.PublishTime.Minute, 0, 0, p.StartDate.Location())

	slots := make([]Slot, 0, p.PeriodDays*p.DailyPosts)
	for dayIdx := 0; dayIdx < p.PeriodDays; dayIdx++ {
		for postIdx := 0; postIdx < p.DailyPosts; postIdx++ {
			at := base.AddDate(0, 0, dayIdx).Add(time.Duration(postIdx) * time.Minute)
			slot := Slot{At: at, Theme: placeholderTheme, ThemeIndex: -1}
			if len(p.Themes) > 0 {
				slot.ThemeIndex = (dayIdx*p.DailyPosts + postIdx) % len(p.Themes)
				slot.Theme = p.Themes[slot.ThemeIndex]
			}
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

// DefaultStartDate returns tomorrow in the given location, the default for
// both the single-post and batch flows.
func DefaultStartDate(loc *time.Location) time.Time {
	return time.Now().In(loc).AddDate(0, 0, 1)
}
