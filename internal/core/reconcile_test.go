package core

import (
	"errors"
	"fmt"
	"regexp"
	"testing"
	"time"
)

var (
	roomCodePattern = regexp.MustCompile(`^[A-Z]{4}-[1-9][0-9]{3}$`)
	passcodePattern = regexp.MustCompile(`^[0-9]{6}$`)
)

// sequentialIDs returns an id generator yielding prefix-1, prefix-2, ...
func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

// constantSource always draws v.
func constantSource(v int) func(int) int {
	return func(n int) int { return v % n }
}

func accepted(rows ...UploadedSessionRow) []UploadedSessionRow {
	for i := range rows {
		rows[i].ID = RowID(i + 1)
		rows[i].Status = StatusValid
	}
	return rows
}

func TestReconcile_MatchesExistingRoomIgnoringCase(t *testing.T) {
	existing := []Room{{ID: "room-1", Name: "main hall", RoomSessionID: "ABCD-1234", Passcode: "123456"}}
	rows := accepted(session(0, "Main Hall", "2025-01-10", "09:00", "10:00"))

	plans, err := Reconciler{NewID: sequentialIDs("id")}.Reconcile(rows, existing)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("plans = %d, want 1", len(plans))
	}
	p := plans[0]
	if p.IsNew() || p.ExistingRoomID != "room-1" {
		t.Errorf("plan = %+v, want match on room-1", p)
	}
	if p.RoomSessionID != "" || p.Passcode != "" || p.NewRoomID != "" {
		t.Errorf("matched plan must not carry new identifiers: %+v", p)
	}
	if p.Name != "main hall" {
		t.Errorf("Name = %q, want existing room's name", p.Name)
	}
}

func TestReconcile_NewRoomsInFirstAppearanceOrder(t *testing.T) {
	rows := accepted(
		session(0, "Studio B", "2025-01-10", "09:00", "10:00"),
		session(0, "Studio A", "2025-01-10", "09:00", "10:00"),
		session(0, "studio  b", "2025-01-10", "10:00", "11:00"),
	)

	r := Reconciler{Codes: NewCodeGenerator(16), NewID: sequentialIDs("id")}
	plans, err := r.Reconcile(rows, nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("plans = %d, want 2", len(plans))
	}
	if plans[0].Name != "Studio B" || plans[1].Name != "Studio A" {
		t.Errorf("plan order = %q, %q, want Studio B, Studio A", plans[0].Name, plans[1].Name)
	}
	if got := len(plans[0].Sessions); got != 2 {
		t.Errorf("Studio B sessions = %d, want 2", got)
	}

	for _, p := range plans {
		if !p.IsNew() || p.NewRoomID == "" {
			t.Errorf("plan %q should create a room: %+v", p.Name, p)
		}
		if !roomCodePattern.MatchString(p.RoomSessionID) {
			t.Errorf("RoomSessionID %q does not match ABCD-1234", p.RoomSessionID)
		}
		if !passcodePattern.MatchString(p.Passcode) {
			t.Errorf("Passcode %q is not six digits", p.Passcode)
		}
		for _, s := range p.Sessions {
			if s.Status != SessionPending || s.ID == "" {
				t.Errorf("session %+v should be pending with an id", s)
			}
		}
	}
	if plans[0].RoomSessionID == plans[1].RoomSessionID {
		t.Error("new rooms share a room-session-id")
	}
}

func TestReconcile_SessionFromRow(t *testing.T) {
	row := session(0, "Room A", "Jan 10, 2025", "9:00 AM", "10:15 AM")
	row.Title = "  Keynote "
	row.Presenter = "Ada, Grace"

	plans, err := Reconciler{NewID: sequentialIDs("s")}.Reconcile(accepted(row), nil)
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	s := plans[0].Sessions[0]
	if s.Title != "Keynote" {
		t.Errorf("Title = %q", s.Title)
	}
	if !s.Date.Equal(time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Date = %v", s.Date)
	}
	if s.StartTime != "09:00" || s.EndTime != "10:15" {
		t.Errorf("times = %s-%s, want 09:00-10:15", s.StartTime, s.EndTime)
	}
	if len(s.Presenters) != 2 || s.Presenters[1] != "Grace" {
		t.Errorf("Presenters = %v", s.Presenters)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	existing := []Room{
		{ID: "r1", Name: "Main Hall"},
		{ID: "r2", Name: "Workshop"},
	}
	rows := accepted(
		session(0, "WORKSHOP", "2025-01-10", "09:00", "10:00"),
		session(0, "New Room", "2025-01-10", "09:00", "10:00"),
		session(0, "main hall", "2025-01-10", "09:00", "10:00"),
	)

	r := Reconciler{}
	first, err := r.Reconcile(rows, existing)
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Reconcile(rows, existing)
	if err != nil {
		t.Fatal(err)
	}

	if len(first) != len(second) {
		t.Fatalf("plan counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ExistingRoomID != second[i].ExistingRoomID || first[i].IsNew() != second[i].IsNew() ||
			first[i].Name != second[i].Name || len(first[i].Sessions) != len(second[i].Sessions) {
			t.Errorf("plan %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestReconcile_SkipsErrorRows(t *testing.T) {
	rows := accepted(session(0, "Room A", "2025-01-10", "09:00", "10:00"))
	rows[0].Status = StatusError

	plans, err := Reconciler{}.Reconcile(rows, nil)
	if err != nil || len(plans) != 0 {
		t.Errorf("Reconcile() = %v, %v, want no plans", plans, err)
	}
}

// ----------------------------------------------------------------------------
// CodeGenerator
// ----------------------------------------------------------------------------

func TestCodeGenerator_RegeneratesOnCollision(t *testing.T) {
	calls := 0
	source := func(n int) int {
		calls++
		if calls <= 11 { // first attempt: four letters, one number, six digits
			return 0
		}
		return 1 % n
	}
	used := NewCodeSet([]Room{{RoomSessionID: "AAAA-1000", Passcode: "999999"}})

	sid, pass, err := NewCodeGeneratorWithSource(4, source).Next(used, "Room")
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if sid != "BBBB-1001" || pass != "111111" {
		t.Errorf("Next() = %s/%s, want BBBB-1001/111111", sid, pass)
	}
	if !used.Taken(sid, "") {
		t.Error("issued code was not reserved")
	}
}

func TestCodeGenerator_PasscodeCollisionAlsoRetries(t *testing.T) {
	used := NewCodeSet([]Room{{RoomSessionID: "ZZZZ-9999", Passcode: "000000"}})

	_, _, err := NewCodeGeneratorWithSource(3, constantSource(0)).Next(used, "Room")

	var mergeErr *MergeError
	if !errors.As(err, &mergeErr) || mergeErr.Reason != MergeCodeExhausted {
		t.Fatalf("Next() error = %v, want code exhausted", err)
	}
}

func TestReconcile_CodesExhaustedAcrossNewRooms(t *testing.T) {
	rows := accepted(
		session(0, "Room A", "2025-01-10", "09:00", "10:00"),
		session(0, "Room B", "2025-01-10", "09:00", "10:00"),
	)

	r := Reconciler{Codes: NewCodeGeneratorWithSource(3, constantSource(0)), NewID: sequentialIDs("id")}
	_, err := r.Reconcile(rows, nil)

	var mergeErr *MergeError
	if !errors.As(err, &mergeErr) {
		t.Fatalf("Reconcile() error = %v, want *MergeError", err)
	}
	if mergeErr.Reason != MergeCodeExhausted || mergeErr.Room != "Room B" {
		t.Errorf("MergeError = %+v, want code exhausted on Room B", mergeErr)
	}
}

func TestCodeSet_CaseInsensitiveRoomCodes(t *testing.T) {
	cs := NewCodeSet([]Room{{RoomSessionID: "abcd-1234"}})
	if !cs.Taken("ABCD-1234", "") {
		t.Error("room codes should compare case-insensitively")
	}
	if cs.Taken("ABCD-1235", "") {
		t.Error("unrelated code reported as taken")
	}
}
