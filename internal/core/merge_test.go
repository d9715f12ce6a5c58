package core

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func baseEvent() Event {
	return Event{
		ID:        "evt-1",
		Name:      "Summit",
		StartDate: day(2025, 1, 10),
		EndDate:   day(2025, 1, 11),
		Timezone:  "UTC",
		Rooms: []Room{{
			ID:            "room-1",
			Name:          "Main Hall",
			RoomSessionID: "MAIN-1000",
			Passcode:      "111111",
			Sessions: []Session{{
				ID: "s-1", Title: "Opening", Presenters: []string{"Ada"},
				Date: day(2025, 1, 10), StartTime: "09:00", EndTime: "10:00", Status: SessionPending,
			}},
		}},
		RoomCount:    1,
		SessionCount: 1,
		DateRange:    "Jan 10 - 11, 2025",
	}
}

func planSession(id string, date time.Time, start, end string) Session {
	return Session{ID: id, Title: "Talk " + id, Presenters: []string{"Grace"}, Date: date, StartTime: start, EndTime: end, Status: SessionPending}
}

func TestMerge_ExtendsExistingAndAddsNewRooms(t *testing.T) {
	event := baseEvent()
	before := event.Clone()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	plans := []RoomMergePlan{
		{ExistingRoomID: "room-1", Name: "Main Hall", Sessions: []Session{planSession("s-2", day(2025, 1, 10), "10:00", "11:00")}},
		{NewRoomID: "room-2", Name: "Studio", RoomSessionID: "STUD-2000", Passcode: "222222", Sessions: []Session{
			planSession("s-3", day(2025, 1, 12), "09:00", "10:00"),
			planSession("s-4", day(2025, 1, 12), "10:00", "11:00"),
		}},
	}

	got, err := Merge(event, plans, now)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}

	if got.RoomCount != 2 || got.RoomCount != len(got.Rooms) {
		t.Errorf("RoomCount = %d, rooms = %d, want 2", got.RoomCount, len(got.Rooms))
	}
	total := 0
	for _, r := range got.Rooms {
		total += len(r.Sessions)
	}
	if got.SessionCount != 4 || got.SessionCount != total {
		t.Errorf("SessionCount = %d, live total = %d, want 4", got.SessionCount, total)
	}
	if n := len(got.Rooms[0].Sessions); n != 2 {
		t.Errorf("Main Hall sessions = %d, want 2", n)
	}
	studio := got.Rooms[1]
	if studio.ID != "room-2" || studio.RoomSessionID != "STUD-2000" || studio.Passcode != "222222" {
		t.Errorf("new room = %+v", studio)
	}
	if !got.StartDate.Equal(day(2025, 1, 10)) || !got.EndDate.Equal(day(2025, 1, 12)) {
		t.Errorf("range = %v - %v, want Jan 10 - Jan 12", got.StartDate, got.EndDate)
	}
	if got.DateRange != "Jan 10 - 12, 2025" {
		t.Errorf("DateRange = %q", got.DateRange)
	}

	if !reflect.DeepEqual(event, before) {
		t.Error("Merge mutated its input event")
	}
}

func TestMerge_EndDateNeverBeforeToday(t *testing.T) {
	now := time.Date(2025, 3, 15, 8, 0, 0, 0, time.UTC)
	yesterday := day(2025, 3, 14)
	event := Event{ID: "e", StartDate: day(2025, 3, 10), EndDate: yesterday, Timezone: "UTC"}

	plans := []RoomMergePlan{{NewRoomID: "r", Name: "Brand New", RoomSessionID: "NEWR-1234", Passcode: "654321",
		Sessions: []Session{planSession("s", yesterday, "09:00", "10:00")}}}

	got, err := Merge(event, plans, now)
	if err != nil {
		t.Fatalf("Merge() error = %v", err)
	}
	if got.EndDate.Before(day(2025, 3, 15)) {
		t.Errorf("EndDate = %v, want no earlier than today", got.EndDate)
	}
	if got.DateRange != "Mar 10 - 15, 2025" {
		t.Errorf("DateRange = %q, want %q", got.DateRange, "Mar 10 - 15, 2025")
	}
}

func TestMerge_TodayUsesEventTimezone(t *testing.T) {
	// 03:00 UTC on Jan 10 is still Jan 9 in Los Angeles.
	now := time.Date(2025, 1, 10, 3, 0, 0, 0, time.UTC)
	event := Event{ID: "e", StartDate: day(2025, 1, 1), EndDate: day(2025, 1, 2), Timezone: "America/Los_Angeles"}
	plans := []RoomMergePlan{{NewRoomID: "r", Name: "R", RoomSessionID: "ROOM-1000", Passcode: "000001",
		Sessions: []Session{planSession("s", day(2025, 1, 3), "09:00", "10:00")}}}

	got, err := Merge(event, plans, now)
	if err != nil {
		t.Fatal(err)
	}
	if !got.EndDate.Equal(day(2025, 1, 9)) {
		t.Errorf("EndDate = %v, want Jan 9 (today in Los Angeles)", got.EndDate)
	}
}

func TestMerge_BoundsNeverMoveInward(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	event := Event{ID: "e", StartDate: day(2025, 1, 1), EndDate: day(2025, 12, 31)}
	plans := []RoomMergePlan{{NewRoomID: "r", Name: "R", RoomSessionID: "ROOM-1000", Passcode: "000001",
		Sessions: []Session{planSession("s", day(2025, 6, 10), "09:00", "10:00")}}}

	got, err := Merge(event, plans, now)
	if err != nil {
		t.Fatal(err)
	}
	if !got.StartDate.Equal(event.StartDate) || !got.EndDate.Equal(event.EndDate) {
		t.Errorf("range = %v - %v, want unchanged", got.StartDate, got.EndDate)
	}
	if got.StartDate.After(got.EndDate) {
		t.Error("StartDate after EndDate")
	}
}

func TestMerge_StructuralFailures(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name   string
		plans  []RoomMergePlan
		reason MergeReason
	}{
		{
			name:   "unknown room",
			plans:  []RoomMergePlan{{ExistingRoomID: "nope", Name: "Ghost", Sessions: []Session{planSession("s", day(2025, 1, 10), "11:00", "12:00")}}},
			reason: MergeUnknownRoom,
		},
		{
			name:   "empty plan",
			plans:  []RoomMergePlan{{ExistingRoomID: "room-1", Name: "Main Hall"}},
			reason: MergeEmptyPlan,
		},
		{
			name: "room code clash",
			plans: []RoomMergePlan{{NewRoomID: "room-9", Name: "Clone", RoomSessionID: "main-1000", Passcode: "999999",
				Sessions: []Session{planSession("s", day(2025, 1, 10), "11:00", "12:00")}}},
			reason: MergeIdentifierClash,
		},
		{
			name: "passcode clash",
			plans: []RoomMergePlan{{NewRoomID: "room-9", Name: "Clone", RoomSessionID: "CLON-1000", Passcode: "111111",
				Sessions: []Session{planSession("s", day(2025, 1, 10), "11:00", "12:00")}}},
			reason: MergeIdentifierClash,
		},
		{
			name: "room id clash",
			plans: []RoomMergePlan{{NewRoomID: "room-1", Name: "Clone", RoomSessionID: "CLON-1000", Passcode: "999999",
				Sessions: []Session{planSession("s", day(2025, 1, 10), "11:00", "12:00")}}},
			reason: MergeIdentifierClash,
		},
		{
			name: "overlap with committed session",
			plans: []RoomMergePlan{{ExistingRoomID: "room-1", Name: "Main Hall",
				Sessions: []Session{planSession("s", day(2025, 1, 10), "09:30", "10:30")}}},
			reason: MergeOverlap,
		},
		{
			name: "second plan fails after first succeeds",
			plans: []RoomMergePlan{
				{ExistingRoomID: "room-1", Name: "Main Hall", Sessions: []Session{planSession("ok", day(2025, 1, 10), "10:00", "11:00")}},
				{ExistingRoomID: "missing", Name: "Ghost", Sessions: []Session{planSession("s", day(2025, 1, 10), "11:00", "12:00")}},
			},
			reason: MergeUnknownRoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := baseEvent()
			before := event.Clone()

			got, err := Merge(event, tt.plans, now)

			var mergeErr *MergeError
			if !errors.As(err, &mergeErr) {
				t.Fatalf("Merge() error = %v, want *MergeError", err)
			}
			if mergeErr.Reason != tt.reason {
				t.Errorf("Reason = %q, want %q", mergeErr.Reason, tt.reason)
			}
			if !reflect.DeepEqual(event, before) {
				t.Error("failed merge modified the input event")
			}
			if !reflect.DeepEqual(got, before) {
				t.Errorf("failed merge returned %+v, want the unchanged event", got)
			}
		})
	}
}

func TestFormatDateRange(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       string
	}{
		{name: "single day", start: day(2025, 1, 10), end: day(2025, 1, 10), want: "Jan 10, 2025"},
		{name: "same month", start: day(2025, 1, 10), end: day(2025, 1, 12), want: "Jan 10 - 12, 2025"},
		{name: "same year", start: day(2025, 1, 10), end: day(2025, 2, 2), want: "Jan 10 - Feb 2, 2025"},
		{name: "across years", start: day(2024, 12, 30), end: day(2025, 1, 2), want: "Dec 30, 2024 - Jan 2, 2025"},
		{name: "zero end", start: day(2025, 1, 10), want: "Jan 10, 2025"},
		{name: "zero start", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDateRange(tt.start, tt.end); got != tt.want {
				t.Errorf("FormatDateRange() = %q, want %q", got, tt.want)
			}
		})
	}
}
