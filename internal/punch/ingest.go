package punch

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

// Terminal export rows carry 8 positional fields:
// id, timestamp, terminal_id, terminal_code, employee_name, direction_code, extra1, extra2.
// Only timestamp and employee_name feed classification. The direction_code is
// deliberately ignored: terminals mislabel it under double-tapping, so
// direction is re-derived from time-of-day instead.
const rowFieldCount = 8

const (
	fieldTimestamp = 1
	fieldEmployee  = 4
)

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// RowError reports a rejected input row. Any RowError fails the whole batch:
// partial ingestion would corrupt per-employee chronological ordering.
type RowError struct {
	Row    int
	Reason string
	Err    error
}

func (e *RowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("row %d: %s: %v", e.Row, e.Reason, e.Err)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// ParseBatch reads a raw terminal export and returns normalized punch events.
// Rows may be tab- or comma-separated. Identical (employee, timestamp) pairs
// collapse to a single event so re-uploaded files stay idempotent.
func ParseBatch(r io.Reader) ([]Event, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	seen := make(map[string]struct{})
	var events []Event
	row := 0
	for scanner.Scan() {
		row++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := splitRow(line)
		if len(fields) < rowFieldCount {
			return nil, &RowError{Row: row, Reason: fmt.Sprintf("expected %d fields, got %d", rowFieldCount, len(fields))}
		}

		name := strings.TrimSpace(fields[fieldEmployee])
		if name == "" {
			return nil, &RowError{Row: row, Reason: "empty employee name"}
		}

		ts, err := parseTimestamp(strings.TrimSpace(fields[fieldTimestamp]))
		if err != nil {
			return nil, &RowError{Row: row, Reason: "invalid timestamp", Err: err}
		}

		key := name + "\x00" + ts.Format(time.RFC3339Nano)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		events = append(events, Event{Employee: name, Time: ts})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read punch log: %w", err)
	}

	sort.Slice(events, func(i, j int) bool {
		if events[i].Employee != events[j].Employee {
			return events[i].Employee < events[j].Employee
		}
		return events[i].Time.Before(events[j].Time)
	})
	return events, nil
}

func splitRow(line string) []string {
	if strings.Contains(line, "\t") {
		return strings.Split(line, "\t")
	}
	return strings.Split(line, ",")
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}
