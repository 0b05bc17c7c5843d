package punch

import "time"

// Event is one raw terminal scan: an employee identity and the instant the
// terminal recorded. Events are immutable once parsed; a given
// (employee, timestamp) pair is treated as one physical scan.
type Event struct {
	Employee string
	Time     time.Time
}

// Date returns the calendar date the scan happened on, at midnight.
func (e Event) Date() time.Time {
	y, m, d := e.Time.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, e.Time.Location())
}

// sinceMidnight is the event's time-of-day as an offset from midnight.
func (e Event) sinceMidnight() time.Duration {
	h, m, s := e.Time.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}
