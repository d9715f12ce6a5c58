package core

// validation.go checks session rows before they can be committed.
//
// Validation happens at two levels:
//  1. Field checks: one row at a time (required text, parseable date and times,
//     end after start, duration bounds, timezone)
//  2. Date-group checks: every row sharing a date is compared pairwise for room
//     double-booking and presenter double-booking, and against sessions already
//     committed to the event
//
// Both levels are pure functions of their input. The ledger caches field
// results per row and group results per date; recomputing the groups an edit
// touches gives the same answer as a full pass.

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// IssueKind classifies a validation finding.
type IssueKind string

const (
	IssueValidation       IssueKind = "validation"
	IssueConflict         IssueKind = "conflict"
	IssueConflictExisting IssueKind = "conflict_existing"
	IssueDuration         IssueKind = "duration"
	IssuePresenter        IssueKind = "presenter"
	IssueTimezone         IssueKind = "timezone"
)

// Severity decides whether an issue blocks commit.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding tied to one or two rows.
type Issue struct {
	Kind      IssueKind `json:"kind"`
	Severity  Severity  `json:"severity"`
	Field     string    `json:"field,omitempty"`
	Message   string    `json:"message"`
	RowIDs    []RowID   `json:"rowIds"`
	SessionID string    `json:"sessionId,omitempty"` // committed session involved, if any
}

// Error implements error so issues can be logged and wrapped.
func (i Issue) Error() string {
	if i.Field != "" {
		return fmt.Sprintf("%s: %s", i.Field, i.Message)
	}
	return i.Message
}

func (i Issue) status() RowStatus {
	if i.Severity == SeverityError {
		return StatusError
	}
	return StatusWarning
}

// Default soft duration bounds.
const (
	DefaultMinDuration = 5 * time.Minute
	DefaultMaxDuration = 8 * time.Hour
)

// ValidatorOptions tunes the validator.
type ValidatorOptions struct {
	// PresenterOverlapIsError turns cross-room presenter double-booking into a
	// blocking error. It is a warning by default because presenters co-present.
	PresenterOverlapIsError bool

	MinDuration time.Duration // default 5m
	MaxDuration time.Duration // default 8h

	// Existing holds the destination event's committed rooms. Rows overlapping a
	// committed session in the same room are errors.
	Existing []Room
}

// RowResult is the derived validation state of one row.
type RowResult struct {
	Status RowStatus `json:"status"`
	Issues []Issue   `json:"issues,omitempty"`
}

// Report is the outcome of validating a full row set.
type Report struct {
	Results map[RowID]RowResult `json:"results"`
	Issues  []Issue             `json:"issues"`
}

// ValidateRows validates every row against every other row.
func ValidateRows(rows []UploadedSessionRow, opts ValidatorOptions) Report {
	return NewValidator(opts).Validate(rows)
}

// Validator holds options and the committed-session index.
type Validator struct {
	opts     ValidatorOptions
	existing map[string][]committedSlot // dateKey -> slots
}

type committedSlot struct {
	roomKey   string
	roomName  string
	sessionID string
	title     string
	start     Clock
	end       Clock
}

// NewValidator builds a validator. The committed rooms are indexed once.
func NewValidator(opts ValidatorOptions) *Validator {
	if opts.MinDuration <= 0 {
		opts.MinDuration = DefaultMinDuration
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	v := &Validator{opts: opts, existing: make(map[string][]committedSlot)}
	for _, room := range opts.Existing {
		key := RoomKey(room.Name)
		for _, s := range room.Sessions {
			start, okStart := ParseClock(s.StartTime)
			end, okEnd := ParseClock(s.EndTime)
			if !okStart || !okEnd || s.Date.IsZero() {
				continue
			}
			dk := s.Date.Format(DateLayout)
			v.existing[dk] = append(v.existing[dk], committedSlot{
				roomKey:   key,
				roomName:  room.Name,
				sessionID: s.ID,
				title:     s.Title,
				start:     start,
				end:       end,
			})
		}
	}
	return v
}

// Validate runs field and group checks over rows, in row order.
func (v *Validator) Validate(rows []UploadedSessionRow) Report {
	parsed := make([]parsedRow, len(rows))
	fields := make(map[RowID][]Issue, len(rows))
	for i, row := range rows {
		parsed[i] = parseRow(row)
		fields[row.ID] = v.fieldIssues(parsed[i])
	}

	groupIssues := make(map[RowID][]Issue)
	var shared []Issue
	for _, dk := range dateKeysInOrder(parsed) {
		byRow, issues := v.groupIssues(rowsOnDate(parsed, dk))
		for id, list := range byRow {
			groupIssues[id] = append(groupIssues[id], list...)
		}
		shared = append(shared, issues...)
	}

	report := Report{Results: make(map[RowID]RowResult, len(rows))}
	for _, row := range rows {
		report.Issues = append(report.Issues, fields[row.ID]...)
		report.Results[row.ID] = composeResult(fields[row.ID], groupIssues[row.ID])
	}
	report.Issues = append(report.Issues, shared...)
	return report
}

// parsedRow is a row with its scheduling fields parsed once.
type parsedRow struct {
	row         UploadedSessionRow
	roomKey     string
	date        time.Time
	dateKey     string
	dateOK      bool
	start, end  Clock
	startOK     bool
	endOK       bool
	presenters  []string
	schedulable bool
}

func parseRow(row UploadedSessionRow) parsedRow {
	p := parsedRow{
		row:        row,
		roomKey:    RoomKey(row.Room),
		presenters: row.Presenters(),
	}
	p.date, p.dateOK = ParseDate(row.Date)
	if p.dateOK {
		p.dateKey = p.date.Format(DateLayout)
	}
	p.start, p.startOK = ParseClock(row.StartTime)
	p.end, p.endOK = ParseClock(row.EndTime)
	p.schedulable = p.roomKey != "" && p.dateOK && p.startOK && p.endOK && p.end > p.start
	return p
}

func (p parsedRow) overlaps(o parsedRow) bool {
	return p.start < o.end && o.start < p.end
}

func (p parsedRow) window() string {
	return p.start.String() + "-" + p.end.String()
}

// fieldIssues returns the single-row findings for p.
func (v *Validator) fieldIssues(p parsedRow) []Issue {
	var issues []Issue
	id := p.row.ID
	fieldErr := func(field, msg string) {
		issues = append(issues, Issue{
			Kind:     IssueValidation,
			Severity: SeverityError,
			Field:    field,
			Message:  msg,
			RowIDs:   []RowID{id},
		})
	}

	if p.roomKey == "" {
		fieldErr(ColRoom, "room name is required")
	}
	if strings.TrimSpace(p.row.Title) == "" {
		fieldErr(ColTitle, "title is required")
	}
	if len(p.presenters) == 0 {
		fieldErr(ColPresenter, "at least one presenter is required")
	}
	if !p.dateOK {
		if strings.TrimSpace(p.row.Date) == "" {
			fieldErr(ColDate, "date is required")
		} else {
			fieldErr(ColDate, fmt.Sprintf("invalid date %q (use YYYY-MM-DD or similar)", p.row.Date))
		}
	}
	if !p.startOK {
		fieldErr(ColStartTime, clockMessage("start time", p.row.StartTime))
	}
	if !p.endOK {
		fieldErr(ColEndTime, clockMessage("end time", p.row.EndTime))
	}
	if p.startOK && p.endOK && p.end <= p.start {
		fieldErr(ColEndTime, fmt.Sprintf("end time %s must be after start time %s on the same day", p.end, p.start))
	}

	if p.startOK && p.endOK && p.end > p.start {
		d := time.Duration(p.end-p.start) * time.Minute
		switch {
		case d < v.opts.MinDuration:
			issues = append(issues, Issue{
				Kind:     IssueDuration,
				Severity: SeverityWarning,
				Field:    ColEndTime,
				Message:  fmt.Sprintf("session is only %s long", formatDuration(d)),
				RowIDs:   []RowID{id},
			})
		case d > v.opts.MaxDuration:
			issues = append(issues, Issue{
				Kind:     IssueDuration,
				Severity: SeverityWarning,
				Field:    ColEndTime,
				Message:  fmt.Sprintf("session runs %s, longer than %s", formatDuration(d), formatDuration(v.opts.MaxDuration)),
				RowIDs:   []RowID{id},
			})
		}
	}

	if tz := strings.TrimSpace(p.row.Timezone); tz != "" && !knownTimezone(tz) {
		issues = append(issues, Issue{
			Kind:     IssueTimezone,
			Severity: SeverityWarning,
			Field:    ColTimezone,
			Message:  fmt.Sprintf("unknown timezone %q", tz),
			RowIDs:   []RowID{id},
		})
	}

	return issues
}

func clockMessage(label, value string) string {
	if strings.TrimSpace(value) == "" {
		return label + " is required"
	}
	return fmt.Sprintf("invalid %s %q (use HH:MM or 9:30 AM)", label, value)
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	switch {
	case h == 0:
		return fmt.Sprintf("%dm", m)
	case m == 0:
		return fmt.Sprintf("%dh", h)
	default:
		return fmt.Sprintf("%dh%02dm", h, m)
	}
}

// groupIssues compares every schedulable row of one date. It returns the
// issues attached to each row and the distinct issues in emission order.
func (v *Validator) groupIssues(group []parsedRow) (map[RowID][]Issue, []Issue) {
	byRow := make(map[RowID][]Issue)
	var all []Issue
	attach := func(issue Issue) {
		all = append(all, issue)
		for _, id := range issue.RowIDs {
			byRow[id] = append(byRow[id], issue)
		}
	}

	presenterSeverity := SeverityWarning
	if v.opts.PresenterOverlapIsError {
		presenterSeverity = SeverityError
	}

	for i := 0; i < len(group); i++ {
		a := group[i]
		if !a.schedulable {
			continue
		}
		for j := i + 1; j < len(group); j++ {
			b := group[j]
			if !b.schedulable || !a.overlaps(b) {
				continue
			}
			if a.roomKey == b.roomKey {
				attach(Issue{
					Kind:     IssueConflict,
					Severity: SeverityError,
					Field:    ColStartTime,
					Message: fmt.Sprintf("rows %d and %d overlap in %q on %s (%s and %s)",
						a.row.ID, b.row.ID, strings.TrimSpace(a.row.Room), a.dateKey, a.window(), b.window()),
					RowIDs: []RowID{a.row.ID, b.row.ID},
				})
				continue
			}
			for _, name := range sharedPresenters(a.presenters, b.presenters) {
				attach(Issue{
					Kind:     IssuePresenter,
					Severity: presenterSeverity,
					Field:    ColPresenter,
					Message: fmt.Sprintf("%s presents in %q (row %d) and %q (row %d) at overlapping times on %s",
						name, strings.TrimSpace(a.row.Room), a.row.ID, strings.TrimSpace(b.row.Room), b.row.ID, a.dateKey),
					RowIDs: []RowID{a.row.ID, b.row.ID},
				})
			}
		}

		for _, slot := range v.existing[a.dateKey] {
			if slot.roomKey != a.roomKey || !(a.start < slot.end && slot.start < a.end) {
				continue
			}
			attach(Issue{
				Kind:     IssueConflictExisting,
				Severity: SeverityError,
				Field:    ColStartTime,
				Message: fmt.Sprintf("row %d overlaps scheduled session %q in %q on %s (%s-%s)",
					a.row.ID, slot.title, slot.roomName, a.dateKey, slot.start, slot.end),
				RowIDs:    []RowID{a.row.ID},
				SessionID: slot.sessionID,
			})
		}
	}
	return byRow, all
}

// sharedPresenters returns the names present in both lists, in a's order.
// Matching is exact after trimming.
func sharedPresenters(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]bool, len(b))
	for _, name := range b {
		set[name] = true
	}
	var shared []string
	seen := make(map[string]bool)
	for _, name := range a {
		if set[name] && !seen[name] {
			shared = append(shared, name)
			seen[name] = true
		}
	}
	return shared
}

func composeResult(field, group []Issue) RowResult {
	res := RowResult{Status: StatusValid}
	if len(field)+len(group) == 0 {
		return res
	}
	res.Issues = make([]Issue, 0, len(field)+len(group))
	res.Issues = append(res.Issues, field...)
	res.Issues = append(res.Issues, group...)
	for _, issue := range res.Issues {
		res.Status = res.Status.Worse(issue.status())
	}
	return res
}

func dateKeysInOrder(rows []parsedRow) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, p := range rows {
		if p.dateOK && !seen[p.dateKey] {
			seen[p.dateKey] = true
			keys = append(keys, p.dateKey)
		}
	}
	sort.Strings(keys)
	return keys
}

func rowsOnDate(rows []parsedRow, dateKey string) []parsedRow {
	var group []parsedRow
	for _, p := range rows {
		if p.dateOK && p.dateKey == dateKey {
			group = append(group, p)
		}
	}
	return group
}

var tzCache sync.Map // zone name -> bool

func knownTimezone(name string) bool {
	if v, ok := tzCache.Load(name); ok {
		return v.(bool)
	}
	_, err := time.LoadLocation(name)
	known := err == nil && name != "Local"
	tzCache.Store(name, known)
	return known
}
