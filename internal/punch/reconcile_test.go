package punch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func ev(t *testing.T, employee, stamp string) Event {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", stamp)
	require.NoError(t, err)
	return Event{Employee: employee, Time: ts}
}

func reconcileOne(t *testing.T, events ...Event) Result {
	t.Helper()
	res, err := Reconcile(events, DefaultPolicy())
	require.NoError(t, err)
	return res
}

func findRecord(t *testing.T, res Result, employee, date string) Record {
	t.Helper()
	for _, rec := range res.Records {
		if rec.Employee == employee && rec.DateString() == date {
			return rec
		}
	}
	t.Fatalf("no record for %s on %s", employee, date)
	return Record{}
}

func TestReconcileNormalDay(t *testing.T) {
	res := reconcileOne(t,
		ev(t, "Prima", "2024-02-06 07:43:00"),
		ev(t, "Prima", "2024-02-06 17:30:00"),
	)
	require.Len(t, res.Records, 1)

	rec := findRecord(t, res, "Prima", "2024-02-06")
	require.Equal(t, StatusCompleteNormal, rec.Status)
	require.Equal(t, "07:43:00", rec.CheckInString())
	require.Equal(t, "17:30:00", rec.CheckOutString())
}

func TestReconcileForgottenCheckOut(t *testing.T) {
	res := reconcileOne(t, ev(t, "Andri", "2024-02-06 07:55:00"))
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	require.Equal(t, StatusMissingCheckOut, rec.Status)
	require.Equal(t, "07:55:00", rec.CheckInString())
	require.Equal(t, TimeSentinel, rec.CheckOutString())
}

func TestReconcileForgottenCheckIn(t *testing.T) {
	res := reconcileOne(t, ev(t, "Ivan", "2024-02-06 17:32:00"))
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	require.Equal(t, StatusMissingCheckIn, rec.Status)
	require.Equal(t, TimeSentinel, rec.CheckInString())
	require.Equal(t, "17:32:00", rec.CheckOutString())
}

func TestReconcileAmbiguousPairIsComplete(t *testing.T) {
	res := reconcileOne(t,
		ev(t, "Sari", "2024-02-06 13:05:00"),
		ev(t, "Sari", "2024-02-06 21:40:00"),
	)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	require.Equal(t, StatusCompleteNormal, rec.Status)
	require.Equal(t, "13:05:00", rec.CheckInString())
	require.Equal(t, "21:40:00", rec.CheckOutString())
}

func TestReconcileNightShiftCrossDay(t *testing.T) {
	res := reconcileOne(t,
		ev(t, "Kino", "2024-02-06 19:00:00"),
		ev(t, "Kino", "2024-02-07 06:00:00"),
	)
	require.Len(t, res.Records, 1, "checkout punch must not seed a second record")

	rec := findRecord(t, res, "Kino", "2024-02-06")
	require.Equal(t, StatusCompleteNightShift, rec.Status)
	require.Equal(t, "19:00:00", rec.CheckInString())
	require.Equal(t, "06:00:00", rec.CheckOutString())
}

func TestReconcileNightShiftLeavesIndependentNextDayPunch(t *testing.T) {
	res := reconcileOne(t,
		ev(t, "Kino", "2024-02-06 19:00:00"),
		ev(t, "Kino", "2024-02-07 06:00:00"),
		ev(t, "Kino", "2024-02-07 17:45:00"),
	)
	require.Len(t, res.Records, 2)

	night := findRecord(t, res, "Kino", "2024-02-06")
	require.Equal(t, StatusCompleteNightShift, night.Status)

	// The 17:45 punch is unconsumed, so day two gets its own record from
	// the ambiguous-band lone-punch rule.
	next := findRecord(t, res, "Kino", "2024-02-07")
	require.Equal(t, StatusMissingCheckIn, next.Status)
	require.Equal(t, "17:45:00", next.CheckOutString())
}

func TestReconcileNightShiftSameDayResolution(t *testing.T) {
	res := reconcileOne(t,
		ev(t, "Bayu", "2024-02-06 18:30:00"),
		ev(t, "Bayu", "2024-02-06 23:45:00"),
	)
	require.Len(t, res.Records, 1)

	rec := res.Records[0]
	require.Equal(t, StatusCompleteNormal, rec.Status)
	require.Equal(t, "18:30:00", rec.CheckInString())
	require.Equal(t, "23:45:00", rec.CheckOutString())
}

func TestReconcileNightShiftCloseSameDayPairIsDiscarded(t *testing.T) {
	res := reconcileOne(t,
		ev(t, "Bayu", "2024-02-06 19:00:00"),
		ev(t, "Bayu", "2024-02-06 20:30:00"),
	)
	require.Len(t, res.Records, 1)

	// 90 minutes is below the same-day gap, so the second punch closes
	// nothing; it must still show up in the discard trail.
	rec := res.Records[0]
	require.Equal(t, StatusMissingCheckOut, rec.Status)
	require.Equal(t, "19:00:00", rec.CheckInString())
	require.Equal(t, TimeSentinel, rec.CheckOutString())
	require.Len(t, res.Discarded, 1)
	require.Equal(t, "20:30:00", res.Discarded[0].Time.Format("15:04:05"))
}

func TestReconcileNightShiftUnresolved(t *testing.T) {
	res := reconcileOne(t,
		ev(t, "Bayu", "2024-02-06 19:10:00"),
		ev(t, "Bayu", "2024-02-07 15:00:00"),
	)

	night := findRecord(t, res, "Bayu", "2024-02-06")
	require.Equal(t, StatusMissingCheckOut, night.Status)
	require.Equal(t, TimeSentinel, night.CheckOutString())

	// The 15:00 punch is too late to close the night shift and instead
	// classifies day two on its own.
	next := findRecord(t, res, "Bayu", "2024-02-07")
	require.Equal(t, StatusMissingCheckIn, next.Status)
}

func TestReconcileBandBoundaries(t *testing.T) {
	cases := []struct {
		name  string
		stamp string
		want  Status
	}{
		{"lone punch at 18:15:00 is night", "2024-02-06 18:15:00", StatusMissingCheckOut},
		{"lone punch at 18:14:59 is ambiguous", "2024-02-06 18:14:59", StatusMissingCheckIn},
		{"lone punch at 12:59:59 is morning", "2024-02-06 12:59:59", StatusMissingCheckOut},
		{"lone punch at 13:00:00 is ambiguous", "2024-02-06 13:00:00", StatusMissingCheckIn},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := reconcileOne(t, ev(t, "Edge", tc.stamp))
			require.Len(t, res.Records, 1)
			require.Equal(t, tc.want, res.Records[0].Status)
		})
	}
}

func TestBandCoverage(t *testing.T) {
	policy := DefaultPolicy()
	day := time.Date(2024, 2, 6, 0, 0, 0, 0, time.UTC)
	for sec := 0; sec < 24*60*60; sec += 61 {
		e := Event{Employee: "X", Time: day.Add(time.Duration(sec) * time.Second)}
		band := policy.BandOf(e)
		require.Contains(t, []Band{BandMorning, BandAmbiguous, BandNight}, band)
	}
}

func TestReconcileDiscardsInteriorPunches(t *testing.T) {
	res := reconcileOne(t,
		ev(t, "Prima", "2024-02-06 07:43:00"),
		ev(t, "Prima", "2024-02-06 12:01:00"),
		ev(t, "Prima", "2024-02-06 12:02:00"),
		ev(t, "Prima", "2024-02-06 17:30:00"),
	)
	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	require.Equal(t, "07:43:00", rec.CheckInString())
	require.Equal(t, "17:30:00", rec.CheckOutString())

	require.Len(t, res.Discarded, 2)
	require.Equal(t, "12:01:00", res.Discarded[0].Time.Format("15:04:05"))
	require.Equal(t, "12:02:00", res.Discarded[1].Time.Format("15:04:05"))
}

func TestReconcileEmployeeIsolation(t *testing.T) {
	res := reconcileOne(t,
		ev(t, "Kino", "2024-02-06 19:00:00"),
		ev(t, "Rani", "2024-02-06 19:00:00"),
		ev(t, "Kino", "2024-02-07 06:00:00"),
		ev(t, "Rani", "2024-02-07 06:00:00"),
	)
	require.Len(t, res.Records, 2)
	for _, name := range []string{"Kino", "Rani"} {
		rec := findRecord(t, res, name, "2024-02-06")
		require.Equal(t, StatusCompleteNightShift, rec.Status)
	}
}

func TestReconcileIsDeterministic(t *testing.T) {
	events := []Event{
		ev(t, "Prima", "2024-02-06 07:43:00"),
		ev(t, "Prima", "2024-02-06 17:30:00"),
		ev(t, "Kino", "2024-02-06 18:34:00"),
		ev(t, "Kino", "2024-02-07 07:32:00"),
		ev(t, "Ivan", "2024-02-06 17:32:00"),
		ev(t, "Andri", "2024-02-06 07:55:00"),
	}
	first, err := Reconcile(events, DefaultPolicy())
	require.NoError(t, err)
	second, err := Reconcile(events, DefaultPolicy())
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestMergeIsIdempotent(t *testing.T) {
	events := []Event{
		ev(t, "Prima", "2024-02-06 07:43:00"),
		ev(t, "Prima", "2024-02-06 17:30:00"),
		ev(t, "Ivan", "2024-02-06 17:32:00"),
	}
	res, err := Reconcile(events, DefaultPolicy())
	require.NoError(t, err)

	merged := Merge(res.Records, res.Records)
	require.Equal(t, res.Records, merged)

	keys := make(map[string]struct{})
	for _, rec := range merged {
		key := rec.Employee + "|" + rec.DateString()
		_, dup := keys[key]
		require.False(t, dup, "duplicate key %s", key)
		keys[key] = struct{}{}
	}
}

func TestMergeLastWriteWins(t *testing.T) {
	older := []Record{{Employee: "Prima", Date: mustDate(t, "2024-02-06"), Status: StatusMissingCheckOut}}
	in := time.Date(2024, 2, 6, 7, 43, 0, 0, time.UTC)
	out := time.Date(2024, 2, 6, 17, 30, 0, 0, time.UTC)
	newer := []Record{{Employee: "Prima", Date: mustDate(t, "2024-02-06"), CheckIn: &in, CheckOut: &out, Status: StatusCompleteNormal}}

	merged := Merge(older, newer)
	require.Len(t, merged, 1)
	require.Equal(t, StatusCompleteNormal, merged[0].Status)
}

func mustDate(t *testing.T, raw string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", raw)
	require.NoError(t, err)
	return d
}
