package core

import (
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"
)

func strp(s string) *string { return &s }

func newTestLedger(rows ...UploadedSessionRow) *Ledger {
	l := NewLedger(LedgerOptions{})
	for _, r := range rows {
		l.Add(r)
	}
	return l
}

func mustGet(t *testing.T, l *Ledger, id RowID) UploadedSessionRow {
	t.Helper()
	row, ok := l.Get(id)
	if !ok {
		t.Fatalf("row %d not found", id)
	}
	return row
}

func TestLedger_ResolvingConflictClearsBothRows(t *testing.T) {
	l := newTestLedger(
		session(0, "Room X", "2025-01-10", "09:00", "10:00"),
		session(0, "Room X", "2025-01-10", "09:30", "10:30"),
	)

	for _, id := range []RowID{1, 2} {
		if row := mustGet(t, l, id); row.Status != StatusError {
			t.Fatalf("row %d status = %q before edit, want error", id, row.Status)
		}
	}

	edited, err := l.Edit(2, RowPatch{StartTime: strp("10:00"), EndTime: strp("11:00")})
	if err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if edited.Status != StatusValid {
		t.Errorf("edited row status = %q, want valid", edited.Status)
	}
	if partner := mustGet(t, l, 1); partner.Status != StatusValid || len(partner.Issues) != 0 {
		t.Errorf("partner = %+v, want valid with no issues", partner)
	}
}

func TestLedger_MovingDateRevalidatesOldGroup(t *testing.T) {
	l := newTestLedger(
		session(0, "Room X", "2025-01-10", "09:00", "10:00"),
		session(0, "Room X", "2025-01-10", "09:30", "10:30"),
	)

	if _, err := l.Edit(1, RowPatch{Date: strp("2025-01-11")}); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	if row := mustGet(t, l, 2); row.Status != StatusValid {
		t.Errorf("row left behind on old date = %q, want valid", row.Status)
	}

	// Moving it back restores the conflict on both rows.
	if _, err := l.Edit(1, RowPatch{Date: strp("Jan 10, 2025")}); err != nil {
		t.Fatalf("Edit() error = %v", err)
	}
	for _, id := range []RowID{1, 2} {
		if row := mustGet(t, l, id); row.Status != StatusError {
			t.Errorf("row %d = %q, want error after moving back", id, row.Status)
		}
	}
}

func TestLedger_RemoveRevalidatesPartner(t *testing.T) {
	l := newTestLedger(
		session(0, "Room X", "2025-01-10", "09:00", "10:00"),
		session(0, "room x", "2025-01-10", "09:30", "10:30"),
	)

	if err := l.Remove(1); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if row := mustGet(t, l, 2); row.Status != StatusValid {
		t.Errorf("partner status = %q, want valid", row.Status)
	}
	if _, ok := l.Get(1); ok {
		t.Error("removed row is still present")
	}
	if got := len(l.Issues()); got != 0 {
		t.Errorf("Issues() = %d, want 0", got)
	}
}

func TestLedger_UnknownRow(t *testing.T) {
	l := newTestLedger(session(0, "Room A", "2025-01-10", "09:00", "10:00"))

	if _, err := l.Edit(99, RowPatch{Title: strp("x")}); !errors.Is(err, ErrRowNotFound) {
		t.Errorf("Edit() error = %v, want ErrRowNotFound", err)
	}
	if err := l.Remove(99); !errors.Is(err, ErrRowNotFound) {
		t.Errorf("Remove() error = %v, want ErrRowNotFound", err)
	}
}

func TestLedger_IDsAreNeverReused(t *testing.T) {
	l := NewLedger(LedgerOptions{})
	first := l.Add(session(0, "Room A", "2025-01-10", "09:00", "10:00"))
	second := l.Add(session(0, "Room A", "2025-01-10", "10:00", "11:00"))
	if err := l.Remove(second); err != nil {
		t.Fatal(err)
	}
	third := l.Add(session(0, "Room A", "2025-01-10", "11:00", "12:00"))

	if first != 1 || second != 2 || third != 3 {
		t.Errorf("ids = %d, %d, %d, want 1, 2, 3", first, second, third)
	}
}

func TestLedger_AddRaw(t *testing.T) {
	l := NewLedger(LedgerOptions{})
	ids := l.AddRaw([]RawRow{
		{ColRoom: "Room A", ColTitle: "One", ColPresenter: "Ada", ColDate: "2025-01-10",
			ColStartTime: "09:00", ColEndTime: "10:00", ColLine: 5},
		{ColRoom: "Room A", ColTitle: "Two", ColPresenter: "Bob", ColDate: "2025-01-10",
			ColStartTime: "09:30", ColEndTime: "10:30"},
	}, SessionDefaults{Timezone: "UTC"})

	if len(ids) != 2 {
		t.Fatalf("AddRaw returned %d ids, want 2", len(ids))
	}
	first := mustGet(t, l, ids[0])
	if first.Line != 5 {
		t.Errorf("Line = %d, want 5 from the decoder", first.Line)
	}
	if first.Timezone != "UTC" {
		t.Errorf("Timezone = %q, want default UTC", first.Timezone)
	}
	if second := mustGet(t, l, ids[1]); second.Line != 3 || second.Status != StatusError {
		t.Errorf("second row = line %d status %q, want line 3 status error", second.Line, second.Status)
	}
}

func TestLedger_FilterAndSummary(t *testing.T) {
	l := newTestLedger(
		session(0, "Main Hall", "2025-01-10", "09:00", "10:00"),
		session(0, "main hall", "2025-01-10", "09:30", "10:30"),
		session(0, "Studio", "2025-01-10", "09:00", "09:02"),
		session(0, "Studio", "2025-01-11", "09:00", "10:00"),
	)
	if _, err := l.Edit(4, RowPatch{Title: strp("Closing Keynote")}); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter RowFilter
		want   []RowID
	}{
		{name: "nil matches all", filter: nil, want: []RowID{1, 2, 3, 4}},
		{name: "by room ignores case", filter: ByRoom("MAIN HALL"), want: []RowID{1, 2}},
		{name: "by status error", filter: ByStatus(StatusError), want: []RowID{1, 2}},
		{name: "by status warning or valid", filter: ByStatus(StatusWarning, StatusValid), want: []RowID{3, 4}},
		{name: "search title", filter: Search("keynote"), want: []RowID{4}},
		{name: "search room", filter: Search("studio"), want: []RowID{3, 4}},
		{name: "empty search", filter: Search(""), want: []RowID{1, 2, 3, 4}},
		{name: "all combined", filter: All(ByRoom("studio"), ByStatus(StatusValid)), want: []RowID{4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []RowID
			for _, r := range l.Filter(tt.filter) {
				got = append(got, r.ID)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter() ids = %v, want %v", got, tt.want)
			}
		})
	}

	sum := l.Summary()
	want := LedgerSummary{Total: 4, Valid: 1, Warning: 1, Error: 2, Rooms: 2}
	if sum != want {
		t.Errorf("Summary() = %+v, want %+v", sum, want)
	}

	var accepted []RowID
	for _, r := range l.AcceptedRows() {
		accepted = append(accepted, r.ID)
	}
	if !reflect.DeepEqual(accepted, []RowID{3, 4}) {
		t.Errorf("AcceptedRows() = %v, want [3 4]", accepted)
	}
	if got := l.BlockingRows(); !reflect.DeepEqual(got, []RowID{1, 2}) {
		t.Errorf("BlockingRows() = %v, want [1 2]", got)
	}
}

// Incremental revalidation must agree with a full pass after any edit sequence.
func TestLedger_IncrementalMatchesFullValidation(t *testing.T) {
	rooms := []string{"Room A", "room a", "Room B", "Hall"}
	dates := []string{"2025-01-10", "2025-01-11", "Jan 10, 2025", "bad date"}
	times := []string{"09:00", "09:30", "10:00", "10:30", "11:00", "9:45 AM", ""}
	people := []string{"Ada", "Grace", "Ada, Grace", "Linus"}

	rng := rand.New(rand.NewPCG(7, 11))
	pick := func(opts []string) string { return opts[rng.IntN(len(opts))] }

	opts := ValidatorOptions{}
	l := NewLedger(LedgerOptions{Validator: opts})
	for i := 0; i < 12; i++ {
		l.Add(UploadedSessionRow{
			Room: pick(rooms), Title: "T", Presenter: pick(people),
			Date: pick(dates), StartTime: pick(times), EndTime: pick(times),
		})
	}

	for step := 0; step < 200; step++ {
		rows := l.Rows()
		switch op := rng.IntN(10); {
		case op < 6 && len(rows) > 0:
			id := rows[rng.IntN(len(rows))].ID
			patch := RowPatch{}
			switch rng.IntN(4) {
			case 0:
				patch.Room = strp(pick(rooms))
			case 1:
				patch.Date = strp(pick(dates))
			case 2:
				patch.StartTime = strp(pick(times))
				patch.EndTime = strp(pick(times))
			default:
				patch.Presenter = strp(pick(people))
			}
			if _, err := l.Edit(id, patch); err != nil {
				t.Fatal(err)
			}
		case op < 8 && len(rows) > 0:
			if err := l.Remove(rows[rng.IntN(len(rows))].ID); err != nil {
				t.Fatal(err)
			}
		default:
			l.Add(UploadedSessionRow{
				Room: pick(rooms), Title: "T", Presenter: pick(people),
				Date: pick(dates), StartTime: pick(times), EndTime: pick(times),
			})
		}

		rows = l.Rows()
		full := ValidateRows(rows, opts)
		for _, row := range rows {
			want := full.Results[row.ID]
			if row.Status != want.Status || !reflect.DeepEqual(row.Issues, want.Issues) {
				t.Fatalf("step %d row %d: incremental %q %v, full %q %v",
					step, row.ID, row.Status, row.Issues, want.Status, want.Issues)
			}
		}
		if !reflect.DeepEqual(l.Issues(), full.Issues) {
			t.Fatalf("step %d: ledger issues differ from full pass", step)
		}
	}
}

func TestLedger_ReadsDoNotShareIssues(t *testing.T) {
	l := newTestLedger(
		session(0, "Room X", "2025-01-10", "09:00", "10:00"),
		session(0, "Room X", "2025-01-10", "09:30", "10:30"),
	)

	got := mustGet(t, l, 1)
	if len(got.Issues) == 0 {
		t.Fatal("row 1 has no issues, want a conflict")
	}
	want := got.Issues[0].Message
	got.Issues[0].Message = "tampered"
	got.Issues[0].RowIDs[0] = 99

	listed := l.Filter(nil)
	listed[0].Issues[0].Message = "tampered"

	all := l.Issues()
	all[0].RowIDs[0] = 99

	again := mustGet(t, l, 1)
	if again.Issues[0].Message != want {
		t.Errorf("issue message = %q after caller writes, want %q", again.Issues[0].Message, want)
	}
	if again.Issues[0].RowIDs[0] == 99 {
		t.Errorf("issue rows = %v after caller writes, want the ledger's own ids", again.Issues[0].RowIDs)
	}
}
