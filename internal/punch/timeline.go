package punch

import (
	"sort"
	"time"
)

// Timeline holds one employee's punches in chronological order together with
// the ascending set of distinct calendar dates they touch. The classifier
// depends on the date order: each day must be visited before its successor is
// consulted for night-shift checkouts.
type Timeline struct {
	Employee string
	Events   []Event

	dates []time.Time
}

// BuildTimelines partitions events by employee and sorts each partition by
// timestamp. Employees are returned in name order so output is deterministic.
// Employees with zero events never appear.
func BuildTimelines(events []Event) []Timeline {
	byEmployee := make(map[string][]Event)
	for _, ev := range events {
		byEmployee[ev.Employee] = append(byEmployee[ev.Employee], ev)
	}

	names := make([]string, 0, len(byEmployee))
	for name := range byEmployee {
		names = append(names, name)
	}
	sort.Strings(names)

	timelines := make([]Timeline, 0, len(names))
	for _, name := range names {
		evs := byEmployee[name]
		sort.Slice(evs, func(i, j int) bool { return evs[i].Time.Before(evs[j].Time) })
		timelines = append(timelines, Timeline{Employee: name, Events: evs, dates: distinctDates(evs)})
	}
	return timelines
}

// Dates returns the distinct calendar dates of the timeline, ascending.
func (t Timeline) Dates() []time.Time {
	return t.dates
}

// on returns the timeline's events falling on the given calendar date,
// preserving chronological order.
func (t Timeline) on(day time.Time) []Event {
	var out []Event
	for _, ev := range t.Events {
		if ev.Date().Equal(day) {
			out = append(out, ev)
		}
	}
	return out
}

func distinctDates(events []Event) []time.Time {
	var dates []time.Time
	for _, ev := range events {
		d := ev.Date()
		if len(dates) == 0 || !dates[len(dates)-1].Equal(d) {
			dates = append(dates, d)
		}
	}
	return dates
}
