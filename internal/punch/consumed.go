package punch

// consumedSet tracks punches already attributed to an earlier day's record so
// the forward sweep never counts one physical scan twice. One set lives per
// employee timeline and is discarded afterwards. The key keeps the employee
// dimension even so: a timestamp alone would collide if two employees ever
// shared a set.
type consumedSet map[consumedKey]struct{}

type consumedKey struct {
	employee string
	at       int64
}

func keyOf(ev Event) consumedKey {
	return consumedKey{employee: ev.Employee, at: ev.Time.UnixNano()}
}

// mark records the punch as consumed. Idempotent.
func (s consumedSet) mark(ev Event) {
	s[keyOf(ev)] = struct{}{}
}

// has reports whether the punch was already attributed to a record.
func (s consumedSet) has(ev Event) bool {
	_, ok := s[keyOf(ev)]
	return ok
}
