package core

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// LedgerOptions configures a review ledger.
type LedgerOptions struct {
	Validator ValidatorOptions
}

// Ledger is the staging area for the rows of one import under review.
// It is not safe for concurrent use; the owning import session serializes access.
//
// Field issues are cached per row and group issues per date. Every mutation
// recomputes the edited row's field issues and the groups of each date it
// touched, old and new, which is equivalent to revalidating the whole set.
type Ledger struct {
	v      *Validator
	order  []RowID
	rows   map[RowID]*ledgerEntry
	groups map[string]dateGroup
	nextID RowID
}

type ledgerEntry struct {
	row    UploadedSessionRow
	parsed parsedRow
	fields []Issue
}

// snapshot returns the row with its own copy of the issue list.
func (e *ledgerEntry) snapshot() UploadedSessionRow {
	row := e.row
	row.Issues = cloneIssues(e.row.Issues)
	return row
}

func cloneIssues(issues []Issue) []Issue {
	out := slices.Clone(issues)
	for i := range out {
		out[i].RowIDs = slices.Clone(out[i].RowIDs)
	}
	return out
}

type dateGroup struct {
	byRow  map[RowID][]Issue
	issues []Issue
}

// NewLedger returns an empty ledger.
func NewLedger(opts LedgerOptions) *Ledger {
	return &Ledger{
		v:      NewValidator(opts.Validator),
		rows:   make(map[RowID]*ledgerEntry),
		groups: make(map[string]dateGroup),
		nextID: 1,
	}
}

// Add inserts row, assigns it a fresh id and revalidates.
func (l *Ledger) Add(row UploadedSessionRow) RowID {
	id := l.insert(row)
	e := l.rows[id]
	e.fields = l.v.fieldIssues(e.parsed)
	l.refresh(e.parsed.dateKeyIfValid())
	l.settle(id)
	return id
}

// AddRaw normalizes decoder rows with defaults and appends them in order.
func (l *Ledger) AddRaw(raws []RawRow, defaults SessionDefaults) []RowID {
	ids := make([]RowID, 0, len(raws))
	for i, raw := range raws {
		line := i + 2 // header occupies line 1
		if n, ok := raw[ColLine].(int); ok && n > 0 {
			line = n
		}
		ids = append(ids, l.insert(Normalize(0, line, raw, defaults)))
	}
	l.Revalidate()
	return ids
}

func (l *Ledger) insert(row UploadedSessionRow) RowID {
	id := l.nextID
	l.nextID++
	row.ID = id
	row.Status = StatusValid
	row.Issues = nil
	l.rows[id] = &ledgerEntry{row: row, parsed: parseRow(row)}
	l.order = append(l.order, id)
	return id
}

// Edit applies patch to the row and revalidates every date the row was or
// is now scheduled on.
func (l *Ledger) Edit(id RowID, patch RowPatch) (UploadedSessionRow, error) {
	e, ok := l.rows[id]
	if !ok {
		return UploadedSessionRow{}, fmt.Errorf("%w: %d", ErrRowNotFound, id)
	}
	oldDate := e.parsed.dateKeyIfValid()

	patch.apply(&e.row)
	e.parsed = parseRow(e.row)
	e.fields = l.v.fieldIssues(e.parsed)

	newDate := e.parsed.dateKeyIfValid()
	l.refresh(oldDate, newDate)
	l.settle(id)
	return l.rows[id].snapshot(), nil
}

// Remove discards a row. Its former conflict partners are revalidated.
func (l *Ledger) Remove(id RowID) error {
	e, ok := l.rows[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrRowNotFound, id)
	}
	dk := e.parsed.dateKeyIfValid()
	delete(l.rows, id)
	for i, rid := range l.order {
		if rid == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.refresh(dk)
	return nil
}

// Revalidate recomputes every row from scratch.
func (l *Ledger) Revalidate() {
	l.groups = make(map[string]dateGroup)
	for _, id := range l.order {
		e := l.rows[id]
		e.fields = l.v.fieldIssues(e.parsed)
	}
	l.refresh(l.dateKeys()...)
	for _, id := range l.order {
		l.settle(id)
	}
}

// refresh recomputes the group issues of the given dates and resettles the
// rows on them. Empty keys are ignored.
func (l *Ledger) refresh(dateKeys ...string) {
	done := make(map[string]bool, len(dateKeys))
	for _, dk := range dateKeys {
		if dk == "" || done[dk] {
			continue
		}
		done[dk] = true

		var group []parsedRow
		for _, id := range l.order {
			if p := l.rows[id].parsed; p.dateOK && p.dateKey == dk {
				group = append(group, p)
			}
		}
		if len(group) == 0 {
			delete(l.groups, dk)
			continue
		}
		byRow, issues := l.v.groupIssues(group)
		l.groups[dk] = dateGroup{byRow: byRow, issues: issues}
		for _, p := range group {
			l.settle(p.row.ID)
		}
	}
}

// settle rebuilds the derived status and issue list of one row.
func (l *Ledger) settle(id RowID) {
	e, ok := l.rows[id]
	if !ok {
		return
	}
	var group []Issue
	if dk := e.parsed.dateKeyIfValid(); dk != "" {
		group = l.groups[dk].byRow[id]
	}
	res := composeResult(e.fields, group)
	e.row.Status = res.Status
	e.row.Issues = res.Issues
}

func (p parsedRow) dateKeyIfValid() string {
	if !p.dateOK {
		return ""
	}
	return p.dateKey
}

func (l *Ledger) dateKeys() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, id := range l.order {
		if dk := l.rows[id].parsed.dateKeyIfValid(); dk != "" && !seen[dk] {
			seen[dk] = true
			keys = append(keys, dk)
		}
	}
	sort.Strings(keys)
	return keys
}

// Get returns the row with id.
func (l *Ledger) Get(id RowID) (UploadedSessionRow, bool) {
	e, ok := l.rows[id]
	if !ok {
		return UploadedSessionRow{}, false
	}
	return e.snapshot(), true
}

// Len returns the number of rows.
func (l *Ledger) Len() int { return len(l.order) }

// Rows returns every row in insertion order.
func (l *Ledger) Rows() []UploadedSessionRow {
	return l.Filter(nil)
}

// Filter returns the rows matching f in insertion order. A nil filter matches all.
func (l *Ledger) Filter(f RowFilter) []UploadedSessionRow {
	out := make([]UploadedSessionRow, 0, len(l.order))
	for _, id := range l.order {
		row := l.rows[id].snapshot()
		if f == nil || f(row) {
			out = append(out, row)
		}
	}
	return out
}

// AcceptedRows returns every row that is not in error. Warnings are included.
func (l *Ledger) AcceptedRows() []UploadedSessionRow {
	return l.Filter(func(r UploadedSessionRow) bool { return r.Status != StatusError })
}

// BlockingRows returns the ids of rows with status error.
func (l *Ledger) BlockingRows() []RowID {
	var ids []RowID
	for _, id := range l.order {
		if l.rows[id].row.Status == StatusError {
			ids = append(ids, id)
		}
	}
	return ids
}

// Issues returns every distinct finding: field issues in row order, then
// group issues by date.
func (l *Ledger) Issues() []Issue {
	var out []Issue
	for _, id := range l.order {
		out = append(out, l.rows[id].fields...)
	}
	for _, dk := range l.dateKeys() {
		out = append(out, l.groups[dk].issues...)
	}
	return cloneIssues(out)
}

// LedgerSummary counts rows by status.
type LedgerSummary struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Warning int `json:"warning"`
	Error   int `json:"error"`
	Rooms   int `json:"rooms"`
}

// Summary returns row counts and the number of distinct room names.
func (l *Ledger) Summary() LedgerSummary {
	s := LedgerSummary{Total: len(l.order)}
	rooms := make(map[string]bool)
	for _, id := range l.order {
		e := l.rows[id]
		switch e.row.Status {
		case StatusValid:
			s.Valid++
		case StatusWarning:
			s.Warning++
		case StatusError:
			s.Error++
		}
		if e.parsed.roomKey != "" {
			rooms[e.parsed.roomKey] = true
		}
	}
	s.Rooms = len(rooms)
	return s
}

// RowFilter selects rows from a ledger view.
type RowFilter func(UploadedSessionRow) bool

// ByRoom matches rows whose room name equals name, ignoring case and spacing.
func ByRoom(name string) RowFilter {
	key := RoomKey(name)
	return func(r UploadedSessionRow) bool { return RoomKey(r.Room) == key }
}

// ByStatus matches rows in any of the given statuses.
func ByStatus(statuses ...RowStatus) RowFilter {
	return func(r UploadedSessionRow) bool {
		for _, s := range statuses {
			if r.Status == s {
				return true
			}
		}
		return false
	}
}

// Search matches rows whose title, presenter or room contains q, ignoring case.
// An empty query matches everything.
func Search(q string) RowFilter {
	needle := RoomKey(q)
	return func(r UploadedSessionRow) bool {
		if needle == "" {
			return true
		}
		for _, field := range []string{r.Title, r.Presenter, r.Room} {
			if strings.Contains(RoomKey(field), needle) {
				return true
			}
		}
		return false
	}
}

// All matches rows accepted by every non-nil filter.
func All(filters ...RowFilter) RowFilter {
	return func(r UploadedSessionRow) bool {
		for _, f := range filters {
			if f != nil && !f(r) {
				return false
			}
		}
		return true
	}
}
