package plan

// Draft is the in-progress editing state of one plan. A Draft is owned by a
// single editing session; it is not safe for concurrent use.
type Draft struct {
	ID         string // empty for a plan that has not been persisted yet
	Name       string
	Days       Days
	CurrentDay int
}

// NewDraft returns an empty draft with a single empty day 1.
// POST: ID == "", Name == "", Days == {1: []}, CurrentDay == 1
func NewDraft() *Draft {
	return &Draft{
		Days:       Days{1: []Entry{}},
		CurrentDay: 1,
	}
}

// LoadForEdit hydrates a draft from a persisted plan.
// PRE: p.Days satisfies Days.Validate
// POST: Draft holds a deep copy of p.Days; mutating it never affects p
func LoadForEdit(p Plan) *Draft {
	days := p.Days.Clone()
	if len(days) == 0 {
		days = Days{1: []Entry{}}
	}
	return &Draft{
		ID:         p.ID,
		Name:       p.Name,
		Days:       days,
		CurrentDay: 1,
	}
}

// IsNew reports whether the draft has never been persisted.
func (d *Draft) IsNew() bool {
	return d.ID == ""
}

// AddDay appends an empty day after the last one and returns its number.
// The current day is left unchanged.
// PRE: none
// POST: on success Days has one more key; on ErrCapacityExceeded Days is unchanged
func (d *Draft) AddDay() (int, error) {
	if d.Days.Count() >= MaxDays {
		return 0, ErrCapacityExceeded
	}
	next := d.Days.Count() + 1
	d.Days[next] = []Entry{}
	return next, nil
}

// SwitchDay commits the entries being edited into the current day, then
// makes target the current day.
// PRE: target is an existing day
// POST: Days[old CurrentDay] == editing, CurrentDay == target; nothing changes on error
func (d *Draft) SwitchDay(target int, editing []Entry) error {
	if !d.Days.Has(target) {
		return ErrInvalidDay
	}
	d.CommitCurrentDayEntries(editing)
	d.CurrentDay = target
	return nil
}

// CommitCurrentDayEntries overwrites the current day's entries with a copy
// of entries, in order.
// POST: Days[CurrentDay] equals entries
func (d *Draft) CommitCurrentDayEntries(entries []Entry) {
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	d.Days[d.CurrentDay] = cp
}

// Entries returns a copy of a day's entries.
func (d *Draft) Entries(day int) ([]Entry, error) {
	entries, ok := d.Days[day]
	if !ok {
		return nil, ErrInvalidDay
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)
	return cp, nil
}

// MoveEntry swaps the entry at from with its neighbour at to.
// Moving the first entry up or the last entry down is a no-op.
// PRE: to == from-1 or to == from+1
// POST: entries at from and to are swapped, or nothing changes
func (d *Draft) MoveEntry(day, from, to int) error {
	entries, ok := d.Days[day]
	if !ok {
		return ErrInvalidDay
	}
	if to != from-1 && to != from+1 {
		return ErrNotAdjacent
	}
	if from < 0 || from >= len(entries) || to < 0 || to >= len(entries) {
		return nil
	}
	entries[from], entries[to] = entries[to], entries[from]
	return nil
}

// RemoveEntry deletes the entry at index from a day. A day may become empty;
// the one-row rule is enforced by Editor, not here.
// PRE: day exists, 0 <= index < len(Days[day])
// POST: Days[day] is one shorter, order of the rest preserved
func (d *Draft) RemoveEntry(day, index int) error {
	entries, ok := d.Days[day]
	if !ok {
		return ErrInvalidDay
	}
	if index < 0 || index >= len(entries) {
		return ErrEntryOutOfRange
	}
	out := make([]Entry, 0, len(entries)-1)
	out = append(out, entries[:index]...)
	out = append(out, entries[index+1:]...)
	d.Days[day] = out
	return nil
}

// ToPersistable returns the name and a deep copy of the days, without the
// editing cursor.
// INVARIANT: Draft fields are not mutated
func (d *Draft) ToPersistable() Content {
	return Content{Name: d.Name, Days: d.Days.Clone()}
}
