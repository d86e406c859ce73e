package plan

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Limits for plan content.
const (
	MaxDays            = 5
	DefaultRestSeconds = 60
	MaxNameLength      = 200
)

// Domain errors
var (
	ErrEmptyName        = errors.New("plan name cannot be empty")
	ErrNameTooLong      = errors.New("plan name cannot exceed 200 characters")
	ErrNoDays           = errors.New("plan must have at least one day")
	ErrTooManyDays      = errors.New("plan cannot have more than 5 days")
	ErrNonContiguous    = errors.New("plan days must be numbered 1..n without gaps")
	ErrEmptyEntryName   = errors.New("exercise name cannot be empty")
	ErrInvalidSets      = errors.New("sets must be at least 1 when set")
	ErrInvalidReps      = errors.New("reps must be at least 1 when set")
	ErrNegativeRest     = errors.New("rest cannot be negative")
	ErrNegativeWeight   = errors.New("weight cannot be negative")
	ErrCapacityExceeded = errors.New("plan already has the maximum number of days")
	ErrInvalidDay       = errors.New("day does not exist in plan")
	ErrNotAdjacent      = errors.New("entries can only move one position up or down")
	ErrEntryOutOfRange  = errors.New("entry index out of range")
	ErrMinimumOneEntry  = errors.New("a day being edited must keep at least one exercise row")
)

// Entry is one exercise prescription within a day. It has no identity beyond
// its position in the day's list.
type Entry struct {
	Name   string  `json:"name"`
	Sets   int     `json:"sets,omitempty"` // 0 = unset
	Reps   int     `json:"reps,omitempty"` // 0 = unset
	Rest   int     `json:"rest"`           // seconds
	Weight float64 `json:"weight,omitempty"`
	Notes  string  `json:"notes,omitempty"`
	Image  string  `json:"image,omitempty"`
}

// Validate checks if the Entry has valid data.
// PRE: Entry struct is populated
// POST: Returns nil if valid, error otherwise
func (e Entry) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return ErrEmptyEntryName
	}
	if e.Sets < 0 {
		return ErrInvalidSets
	}
	if e.Reps < 0 {
		return ErrInvalidReps
	}
	if e.Rest < 0 {
		return ErrNegativeRest
	}
	if e.Weight < 0 {
		return ErrNegativeWeight
	}
	return nil
}

// EntryInput is an entry as written by a caller, before defaults apply.
// A nil Rest means the field was absent.
type EntryInput struct {
	Name   string  `json:"name"`
	Sets   int     `json:"sets"`
	Reps   int     `json:"reps"`
	Rest   *int    `json:"rest"`
	Weight float64 `json:"weight"`
	Notes  string  `json:"notes"`
	Image  string  `json:"image"`
}

// Entry applies the defaults: rest falls back to DefaultRestSeconds and a
// missing image is taken from the exercise catalog.
func (in EntryInput) Entry() Entry {
	e := Entry{
		Name:   in.Name,
		Sets:   in.Sets,
		Reps:   in.Reps,
		Rest:   DefaultRestSeconds,
		Weight: in.Weight,
		Notes:  in.Notes,
		Image:  in.Image,
	}
	if in.Rest != nil {
		e.Rest = *in.Rest
	}
	if e.Image == "" {
		e.Image, _ = LookupImage(e.Name)
	}
	return e
}

// DaysInput is Days as written by a caller.
type DaysInput map[int][]EntryInput

// Days converts every entry with EntryInput.Entry. Day keys are kept as
// given, empty days included, so Validate still sees gaps.
func (d DaysInput) Days() Days {
	out := make(Days, len(d))
	for day, inputs := range d {
		entries := make([]Entry, 0, len(inputs))
		for _, in := range inputs {
			entries = append(entries, in.Entry())
		}
		out[day] = entries
	}
	return out
}

// Days maps a day number (1..MaxDays) to its ordered exercise entries.
type Days map[int][]Entry

// Clone returns a deep copy; the result shares no slices with d.
func (d Days) Clone() Days {
	out := make(Days, len(d))
	for day, entries := range d {
		if entries == nil {
			out[day] = nil
			continue
		}
		cp := make([]Entry, len(entries))
		copy(cp, entries)
		out[day] = cp
	}
	return out
}

// Count returns the number of days.
func (d Days) Count() int {
	return len(d)
}

// Has reports whether day is an existing key.
func (d Days) Has(day int) bool {
	_, ok := d[day]
	return ok
}

// Validate checks the day keys are contiguous from 1 and every entry is valid.
// PRE: none
// POST: Returns nil if valid, error otherwise
func (d Days) Validate() error {
	if len(d) == 0 {
		return ErrNoDays
	}
	if len(d) > MaxDays {
		return ErrTooManyDays
	}
	for i := 1; i <= len(d); i++ {
		entries, ok := d[i]
		if !ok {
			return ErrNonContiguous
		}
		for idx, e := range entries {
			if err := e.Validate(); err != nil {
				return fmt.Errorf("day %d entry %d: %w", i, idx+1, err)
			}
		}
	}
	return nil
}

// Content is the persistable part of a plan: what a draft serialises to.
type Content struct {
	Name string
	Days Days
}

// Validate checks the content before it crosses the store boundary.
// PRE: Content is populated
// POST: Returns nil if valid, error otherwise
func (c Content) Validate() error {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxNameLength {
		return ErrNameTooLong
	}
	return c.Days.Validate()
}

// Plan is a persisted workout plan.
type Plan struct {
	ID        string
	Name      string
	Days      Days
	CreatedAt time.Time
	UpdatedAt time.Time // zero until the first update
	CreatedBy string    // account id of the creating trainer
}

// Content returns the name and a deep copy of the days.
// INVARIANT: Plan fields are not mutated
func (p Plan) Content() Content {
	return Content{Name: p.Name, Days: p.Days.Clone()}
}

// EntryCount returns the total number of entries across all days.
// INVARIANT: Plan fields are not mutated
func (p Plan) EntryCount() int {
	n := 0
	for _, entries := range p.Days {
		n += len(entries)
	}
	return n
}
