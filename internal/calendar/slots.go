package calendar

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Working hours used when deriving free slots from busy intervals.
const (
	dayStartHour = 8
	dayEndHour   = 16
)

var danishWeekdays = [...]string{"søndag", "mandag", "tirsdag", "onsdag", "torsdag", "fredag", "lørdag"}

// FreeSlots inverts the busy intervals into open slots within working hours
// over the given number of days starting from the day after `from`. Slots
// shorter than minLength are dropped.
func FreeSlots(busy []Interval, from time.Time, days int, minLength time.Duration) []Interval {
	sorted := make([]Interval, len(busy))
	copy(sorted, busy)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	var free []Interval
	for day := 1; day <= days; day++ {
		date := from.AddDate(0, 0, day)
		if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		open := time.Date(date.Year(), date.Month(), date.Day(), dayStartHour, 0, 0, 0, date.Location())
		close := time.Date(date.Year(), date.Month(), date.Day(), dayEndHour, 0, 0, 0, date.Location())

		cursor := open
		for _, b := range sorted {
			if b.End.Before(open) || b.Start.After(close) {
				continue
			}
			if b.Start.After(cursor) {
				free = appendIfLong(free, Interval{Start: cursor, End: minTime(b.Start, close)}, minLength)
			}
			if b.End.After(cursor) {
				cursor = b.End
			}
		}
		if cursor.Before(close) {
			free = appendIfLong(free, Interval{Start: cursor, End: close}, minLength)
		}
	}
	return free
}

// FormatSlots renders free slots as Danish suggestions, e.g.
// "tirsdag d. 3/3 kl. 08:00-11:00". At most max slots are included.
func FormatSlots(slots []Interval, max int) string {
	if len(slots) == 0 {
		return ""
	}
	if max > 0 && len(slots) > max {
		slots = slots[:max]
	}

	parts := make([]string, 0, len(slots))
	for _, slot := range slots {
		parts = append(parts, fmt.Sprintf("%s d. %d/%d kl. %s-%s",
			danishWeekdays[slot.Start.Weekday()],
			slot.Start.Day(), int(slot.Start.Month()),
			slot.Start.Format("15:04"), slot.End.Format("15:04")))
	}
	return strings.Join(parts, ", ")
}

func appendIfLong(list []Interval, slot Interval, minLength time.Duration) []Interval {
	if slot.End.Sub(slot.Start) >= minLength {
		list = append(list, slot)
	}
	return list
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
