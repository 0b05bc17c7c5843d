// Package punch reconciles raw biometric terminal punch logs into one
// attendance record per employee per calendar day. The whole computation is a
// pure in-memory transformation: no I/O, no clocks, no shared state. Given the
// same punch set it produces the same records, which keeps re-uploads of
// overlapping log files safe to merge.
package punch

import "time"

// TimeSentinel encodes an absent check-in or check-out at the serialization
// boundary. Downstream report rendering expects "-" rather than an empty
// field.
const TimeSentinel = "-"

// Record is one reconciled attendance row. A night-shift record's Date is the
// calendar date the shift started, never the date it ended.
type Record struct {
	Employee string
	Date     time.Time
	CheckIn  *time.Time
	CheckOut *time.Time
	Status   Status
}

// CheckInString renders the check-in time-of-day, or the sentinel.
func (r Record) CheckInString() string {
	return clockString(r.CheckIn)
}

// CheckOutString renders the check-out time-of-day, or the sentinel.
func (r Record) CheckOutString() string {
	return clockString(r.CheckOut)
}

// DateString renders the record date as an ISO-8601 calendar date.
func (r Record) DateString() string {
	return r.Date.Format("2006-01-02")
}

func clockString(t *time.Time) string {
	if t == nil {
		return TimeSentinel
	}
	return t.Format("15:04:05")
}

// Result carries the records of one reconciliation run plus every punch no
// record accounted for: interior punches under the first/last policy, and a
// trailing night punch too close to the shift start to be its checkout. They
// are surfaced so callers can audit them instead of losing them silently.
type Result struct {
	Records   []Record
	Discarded []Event
}

// Reconcile classifies every employee timeline in the event set. It is
// deterministic: employees are processed in name order and each timeline's
// dates in ascending order.
func Reconcile(events []Event, policy Policy) (Result, error) {
	policy = policy.normalized()

	var res Result
	for _, timeline := range BuildTimelines(events) {
		records, discarded, err := reconcileTimeline(timeline, policy)
		if err != nil {
			return Result{}, err
		}
		res.Records = append(res.Records, records...)
		res.Discarded = append(res.Discarded, discarded...)
	}
	return res, nil
}

// ReconcileTimeline classifies a single employee's timeline. Timelines are
// independent, so callers may fan these out across workers; the consumed set
// is created here and never shared.
func ReconcileTimeline(timeline Timeline, policy Policy) ([]Record, []Event, error) {
	return reconcileTimeline(timeline, policy.normalized())
}

func reconcileTimeline(timeline Timeline, policy Policy) ([]Record, []Event, error) {
	used := make(consumedSet)
	var records []Record
	var discarded []Event

	for _, day := range timeline.Dates() {
		remaining := notConsumed(timeline.on(day), used)
		if len(remaining) == 0 {
			// Every punch on this day already belongs to an earlier
			// record; the day carries no new information.
			continue
		}
		if len(remaining) > 2 {
			discarded = append(discarded, remaining[1:len(remaining)-1]...)
		}

		nextDay := notConsumed(timeline.on(day.AddDate(0, 0, 1)), used)
		outcome, err := classifyDay(remaining, nextDay, policy, used)
		if err != nil {
			return nil, nil, err
		}
		discarded = append(discarded, outcome.dropped...)

		records = append(records, Record{
			Employee: timeline.Employee,
			Date:     day,
			CheckIn:  eventTime(outcome.checkIn),
			CheckOut: eventTime(outcome.checkOut),
			Status:   outcome.status,
		})
	}
	return records, discarded, nil
}

func notConsumed(events []Event, used consumedSet) []Event {
	var out []Event
	for _, ev := range events {
		if !used.has(ev) {
			out = append(out, ev)
		}
	}
	return out
}

func eventTime(ev *Event) *time.Time {
	if ev == nil {
		return nil
	}
	t := ev.Time
	return &t
}

// Merge folds newer records into older ones under the (employee, date) dedup
// key, newer winning. This is the idempotent merge contract re-uploads rely
// on: merging a run into itself changes nothing.
func Merge(older, newer []Record) []Record {
	type key struct {
		employee string
		date     string
	}
	index := make(map[key]int, len(older))
	merged := make([]Record, 0, len(older)+len(newer))

	for _, rec := range older {
		index[key{rec.Employee, rec.DateString()}] = len(merged)
		merged = append(merged, rec)
	}
	for _, rec := range newer {
		k := key{rec.Employee, rec.DateString()}
		if i, ok := index[k]; ok {
			merged[i] = rec
			continue
		}
		index[k] = len(merged)
		merged = append(merged, rec)
	}
	return merged
}
