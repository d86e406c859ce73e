package plan

import "strings"

// Editor is the form-capture side of a draft: it holds the rows shown for
// the current day, which may include blank rows the trainer has not filled
// in yet. Rows are captured into the draft on day switch and on save.
type Editor struct {
	Draft *Draft
	Rows  []Entry
}

// NewEditor starts editing a fresh draft with one blank row.
func NewEditor() *Editor {
	return newEditor(NewDraft())
}

// EditPlan starts editing a copy of a persisted plan.
func EditPlan(p Plan) *Editor {
	return newEditor(LoadForEdit(p))
}

func newEditor(d *Draft) *Editor {
	e := &Editor{Draft: d}
	e.loadRows()
	return e
}

// BlankRow returns an empty row with the default rest period.
func BlankRow() Entry {
	return Entry{Rest: DefaultRestSeconds}
}

// loadRows fills Rows from the draft's current day, keeping at least one row.
func (e *Editor) loadRows() {
	entries, _ := e.Draft.Entries(e.Draft.CurrentDay)
	if len(entries) == 0 {
		entries = []Entry{BlankRow()}
	}
	e.Rows = entries
}

// Capture returns the rows that carry a name, trimmed, in order.
// INVARIANT: Rows is not mutated
func (e *Editor) Capture() []Entry {
	out := make([]Entry, 0, len(e.Rows))
	for _, r := range e.Rows {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		r.Name = name
		r.Notes = strings.TrimSpace(r.Notes)
		out = append(out, r)
	}
	return out
}

// SetRows replaces the editable rows; an empty list becomes a single blank row.
func (e *Editor) SetRows(rows []Entry) {
	if len(rows) == 0 {
		e.Rows = []Entry{BlankRow()}
		return
	}
	cp := make([]Entry, len(rows))
	copy(cp, rows)
	e.Rows = cp
}

// AddRow appends a blank row.
func (e *Editor) AddRow() {
	e.Rows = append(e.Rows, BlankRow())
}

// RemoveRow deletes an editable row.
// PRE: more than one row is present
// POST: Rows is one shorter; ErrMinimumOneEntry when only one row is left
func (e *Editor) RemoveRow(index int) error {
	if index < 0 || index >= len(e.Rows) {
		return ErrEntryOutOfRange
	}
	if len(e.Rows) == 1 {
		return ErrMinimumOneEntry
	}
	e.Rows = append(e.Rows[:index], e.Rows[index+1:]...)
	return nil
}

// MoveRow moves a row one position up or down.
func (e *Editor) MoveRow(from, to int) error {
	if to != from-1 && to != from+1 {
		return ErrNotAdjacent
	}
	if from < 0 || from >= len(e.Rows) || to < 0 || to >= len(e.Rows) {
		return nil
	}
	e.Rows[from], e.Rows[to] = e.Rows[to], e.Rows[from]
	return nil
}

// SwitchDay captures the current rows into the draft and loads the target day.
func (e *Editor) SwitchDay(target int) error {
	if err := e.Draft.SwitchDay(target, e.Capture()); err != nil {
		return err
	}
	e.loadRows()
	return nil
}

// AddDayAndSwitch adds a day and moves editing to it.
func (e *Editor) AddDayAndSwitch() (int, error) {
	day, err := e.Draft.AddDay()
	if err != nil {
		return 0, err
	}
	if err := e.SwitchDay(day); err != nil {
		return 0, err
	}
	return day, nil
}

// Commit captures the current rows into the draft and returns the content
// ready for persistence.
func (e *Editor) Commit() Content {
	e.Draft.CommitCurrentDayEntries(e.Capture())
	return e.Draft.ToPersistable()
}

// Reset discards the draft and starts over with a fresh one, as after a
// successful save.
func (e *Editor) Reset() {
	e.Draft = NewDraft()
	e.loadRows()
}
