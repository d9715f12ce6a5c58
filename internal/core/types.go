// Package core provides the business logic for importing session schedules into events.
// This package has no UI dependencies and can be used by any frontend.
package core

import (
	"context"
	"io"
	"strings"
	"time"
)

// Canonical column keys produced by decoders.
const (
	ColRoom      = "room"
	ColTitle     = "title"
	ColPresenter = "presenter"
	ColDate      = "date"
	ColStartTime = "start_time"
	ColEndTime   = "end_time"
	ColTimezone  = "timezone"
	ColLanguage  = "language"
	ColGlossary  = "glossary"
	ColAccount   = "account"
	ColVoicePack = "voice_pack"

	// ColLine carries the 1-based source line of a row when the decoder knows it.
	ColLine = "_line"
)

// RawRow is one untyped row from a decoder, keyed by canonical column key.
// Values may be strings, numbers, time.Time or nil.
type RawRow map[string]any

// Decoder turns an uploaded spreadsheet into raw rows.
// timezoneHint is the IANA zone used to interpret timestamps that carry an offset.
type Decoder interface {
	Decode(ctx context.Context, r io.Reader, timezoneHint string) ([]RawRow, error)
}

// RowID identifies a row within one import. Ids are never reused.
type RowID int

// RowStatus is the derived validation state of a row.
type RowStatus string

const (
	StatusValid   RowStatus = "valid"
	StatusWarning RowStatus = "warning"
	StatusError   RowStatus = "error"
)

func (s RowStatus) rank() int {
	switch s {
	case StatusError:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// Worse returns the more severe of s and other.
func (s RowStatus) Worse(other RowStatus) RowStatus {
	if other.rank() > s.rank() {
		return other
	}
	if s == "" {
		return StatusValid
	}
	return s
}

// UploadedSessionRow is one prospective session in the review ledger.
// Scheduling fields are kept as text so the organizer can correct them; the
// validator parses them on every pass.
type UploadedSessionRow struct {
	ID        RowID     `json:"id"`
	Line      int       `json:"line,omitempty"` // source line in the uploaded file, 0 if added by hand
	Room      string    `json:"room"`
	Title     string    `json:"title"`
	Presenter string    `json:"presenter"`
	Date      string    `json:"date"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
	Timezone  string    `json:"timezone"`
	Language  string    `json:"language"`
	Glossary  string    `json:"glossary"`
	Account   string    `json:"account"`
	VoicePack string    `json:"voicePack"`
	Status    RowStatus `json:"status"`
	Issues    []Issue   `json:"issues,omitempty"`
}

// Presenters splits the comma-joined presenter text into trimmed, non-empty names.
func (r UploadedSessionRow) Presenters() []string {
	return splitPresenters(r.Presenter)
}

func splitPresenters(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// RowPatch carries an organizer edit. Nil fields are left unchanged.
type RowPatch struct {
	Room      *string `json:"room,omitempty"`
	Title     *string `json:"title,omitempty"`
	Presenter *string `json:"presenter,omitempty"`
	Date      *string `json:"date,omitempty"`
	StartTime *string `json:"startTime,omitempty"`
	EndTime   *string `json:"endTime,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
	Language  *string `json:"language,omitempty"`
	Glossary  *string `json:"glossary,omitempty"`
	Account   *string `json:"account,omitempty"`
	VoicePack *string `json:"voicePack,omitempty"`
}

// apply writes the patch onto row.
func (p RowPatch) apply(row *UploadedSessionRow) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = strings.TrimSpace(*src)
		}
	}
	set(&row.Room, p.Room)
	set(&row.Title, p.Title)
	set(&row.Presenter, p.Presenter)
	set(&row.Date, p.Date)
	set(&row.StartTime, p.StartTime)
	set(&row.EndTime, p.EndTime)
	set(&row.Timezone, p.Timezone)
	set(&row.Language, p.Language)
	set(&row.Glossary, p.Glossary)
	set(&row.Account, p.Account)
	set(&row.VoicePack, p.VoicePack)
}

// SessionStatus is the lifecycle state of a committed session.
type SessionStatus string

const SessionPending SessionStatus = "pending"

// Session is one committed presentation, owned by exactly one room.
type Session struct {
	ID         string        `json:"id"`
	Title      string        `json:"title"`
	Presenters []string      `json:"presenters"`
	Date       time.Time     `json:"date"`      // civil date at UTC midnight
	StartTime  string        `json:"startTime"` // "15:04"
	EndTime    string        `json:"endTime"`   // "15:04"
	Status     SessionStatus `json:"status"`
}

// Room is a named venue within an event.
type Room struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	RoomSessionID string    `json:"roomSessionId"`
	Passcode      string    `json:"passcode"`
	Sessions      []Session `json:"sessions"`
}

// Event is the top-level aggregate the merge transaction writes into.
type Event struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	StartDate    time.Time `json:"startDate"`
	EndDate      time.Time `json:"endDate"`
	Timezone     string    `json:"timezone"`
	Rooms        []Room    `json:"rooms"`
	RoomCount    int       `json:"roomCount"`
	SessionCount int       `json:"sessionCount"`
	DateRange    string    `json:"dateRange"`

	// Version counts saves. SaveEvent refuses an event whose Version is not
	// the stored one and stores it as Version+1.
	Version int64 `json:"version"`
}

// Clone returns a deep copy of the event.
func (e Event) Clone() Event {
	out := e
	out.Rooms = make([]Room, len(e.Rooms))
	for i, room := range e.Rooms {
		out.Rooms[i] = room.clone()
	}
	return out
}

func (r Room) clone() Room {
	out := r
	out.Sessions = make([]Session, len(r.Sessions))
	for i, s := range r.Sessions {
		s.Presenters = append([]string(nil), s.Presenters...)
		out.Sessions[i] = s
	}
	return out
}

// RoomMergePlan describes what the merge transaction does for one distinct room name.
type RoomMergePlan struct {
	ExistingRoomID string    `json:"existingRoomId,omitempty"`
	NewRoomID      string    `json:"newRoomId,omitempty"`
	Name           string    `json:"name"`
	RoomSessionID  string    `json:"roomSessionId,omitempty"`
	Passcode       string    `json:"passcode,omitempty"`
	Sessions       []Session `json:"sessions"`
}

// IsNew reports whether the plan creates a room instead of extending one.
func (p RoomMergePlan) IsNew() bool {
	return p.ExistingRoomID == ""
}

// ImportRecord is the history entry written after a successful commit.
type ImportRecord struct {
	ID            string    `json:"id"`
	EventID       string    `json:"eventId"`
	FileName      string    `json:"fileName"`
	RowsCommitted int       `json:"rowsCommitted"`
	RoomsCreated  int       `json:"roomsCreated"`
	RoomsExtended int       `json:"roomsExtended"`
	WarningRows   int       `json:"warningRows"`
	ClientIP      string    `json:"clientIp,omitempty"`
	CommittedAt   time.Time `json:"committedAt"`
}

// EventStore persists events and import history.
// SaveEvent fails with ErrStaleEvent when event.Version does not match the
// stored version; a new event may carry any version.
type EventStore interface {
	GetEvent(ctx context.Context, id string) (Event, error)
	SaveEvent(ctx context.Context, event Event) error
	RecordImport(ctx context.Context, rec ImportRecord) error
	ListImports(ctx context.Context, eventID string) ([]ImportRecord, error)
}
