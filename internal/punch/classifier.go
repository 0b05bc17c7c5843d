package punch

import (
	"fmt"
	"time"
)

// Status states the completeness of a reconciled employee-day.
type Status string

const (
	StatusCompleteNormal     Status = "Complete-Normal"
	StatusCompleteNightShift Status = "Complete-NightShift"
	StatusMissingCheckIn     Status = "Missing-CheckIn"
	StatusMissingCheckOut    Status = "Missing-CheckOut"
)

// Valid returns true when the status is a supported value.
func (s Status) Valid() bool {
	switch s {
	case StatusCompleteNormal, StatusCompleteNightShift, StatusMissingCheckIn, StatusMissingCheckOut:
		return true
	default:
		return false
	}
}

// Complete reports whether both check-in and check-out were resolved.
func (s Status) Complete() bool {
	return s == StatusCompleteNormal || s == StatusCompleteNightShift
}

// Band is one of the three time-of-day classification zones.
type Band int

const (
	// BandMorning: the first punch of the day is an arrival.
	BandMorning Band = iota
	// BandAmbiguous: a lone afternoon punch cannot be told apart from a
	// forgotten morning check-in without further signal.
	BandAmbiguous
	// BandNight: an evening punch starts a shift that may end the next day.
	BandNight
)

// Policy fixes the disambiguation bands and the night-shift gap. Both band
// boundaries are half-open on the lower bound: a punch at exactly NightStart
// is night, not ambiguous.
type Policy struct {
	AmbiguousStart  time.Duration
	NightStart      time.Duration
	NightSameDayGap time.Duration
}

// DefaultPolicy returns the terminal operators' agreed band constants:
// mornings end at 13:00, nights begin at 18:15, and a same-day pair more than
// three hours apart inside the night band counts as a completed shift.
func DefaultPolicy() Policy {
	return Policy{
		AmbiguousStart:  13 * time.Hour,
		NightStart:      18*time.Hour + 15*time.Minute,
		NightSameDayGap: 3 * time.Hour,
	}
}

func (p Policy) normalized() Policy {
	def := DefaultPolicy()
	if p.AmbiguousStart <= 0 {
		p.AmbiguousStart = def.AmbiguousStart
	}
	if p.NightStart <= p.AmbiguousStart {
		p.NightStart = def.NightStart
	}
	if p.NightSameDayGap <= 0 {
		p.NightSameDayGap = def.NightSameDayGap
	}
	return p
}

// BandOf assigns a punch to exactly one band; every valid time-of-day is
// covered.
func (p Policy) BandOf(ev Event) Band {
	tod := ev.sinceMidnight()
	switch {
	case tod < p.AmbiguousStart:
		return BandMorning
	case tod < p.NightStart:
		return BandAmbiguous
	default:
		return BandNight
	}
}

// dayOutcome is the tagged result of classifying one employee-day. The "-"
// sentinel exists only at the serialization boundary; internally absence is a
// nil pointer.
type dayOutcome struct {
	checkIn  *Event
	checkOut *Event
	status   Status
	// punches the outcome could not assign to either side, kept for the
	// discard audit trail
	dropped []Event
}

// classifyDay resolves the day's remaining punches into one outcome and marks
// any punch the outcome consumed. nextDay carries day+1's not-yet-consumed
// punches for the night-shift lookahead; it may be empty.
func classifyDay(remaining, nextDay []Event, p Policy, used consumedSet) (dayOutcome, error) {
	first := remaining[0]
	last := remaining[len(remaining)-1]
	lone := len(remaining) == 1

	switch p.BandOf(first) {
	case BandMorning:
		if !lone {
			used.mark(last)
			return dayOutcome{checkIn: &first, checkOut: &last, status: StatusCompleteNormal}, nil
		}
		return dayOutcome{checkIn: &first, status: StatusMissingCheckOut}, nil

	case BandAmbiguous:
		if lone {
			// A lone afternoon punch reads as the checkout of a
			// forgotten check-in, not an evening arrival.
			used.mark(first)
			return dayOutcome{checkOut: &first, status: StatusMissingCheckIn}, nil
		}
		used.mark(last)
		return dayOutcome{checkIn: &first, checkOut: &last, status: StatusCompleteNormal}, nil

	case BandNight:
		used.mark(first)
		var dropped []Event
		if !lone {
			if last.Time.Sub(first.Time) > p.NightSameDayGap {
				used.mark(last)
				return dayOutcome{checkIn: &first, checkOut: &last, status: StatusCompleteNormal}, nil
			}
			// too close to the shift start to be its checkout
			dropped = append(dropped, last)
		}
		if len(nextDay) > 0 {
			candidate := nextDay[0]
			if candidate.sinceMidnight() < p.AmbiguousStart {
				used.mark(candidate)
				return dayOutcome{checkIn: &first, checkOut: &candidate, status: StatusCompleteNightShift, dropped: dropped}, nil
			}
		}
		return dayOutcome{checkIn: &first, status: StatusMissingCheckOut, dropped: dropped}, nil
	}

	// Unreachable: the three bands cover every time-of-day. Reaching here is
	// a logic fault and must not turn into a guessed record.
	return dayOutcome{}, fmt.Errorf("punch %s %s fell outside every classification band", first.Employee, first.Time)
}
