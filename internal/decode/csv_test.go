package decode

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/eventimport/internal/core"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func decodeString(t *testing.T, d CSVDecoder, input, tz string) []core.RawRow {
	t.Helper()
	rows, err := d.Decode(context.Background(), strings.NewReader(input), tz)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return rows
}

func TestDecode_AliasesAndDelimiters(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{
			name:  "comma with canonical headers",
			input: "Room,Title,Presenter,Date,Start Time,End Time\nMain Hall,Keynote,Ada,2025-01-10,09:00,10:00\n",
		},
		{
			name:  "semicolon with aliases",
			input: "Venue;Session Title;Speaker;Day;From;To\nMain Hall;Keynote;Ada;2025-01-10;09:00;10:00\n",
		},
		{
			name:  "tab separated",
			input: "room\ttitle\tspeaker\tdate\tstart_time\tend_time\nMain Hall\tKeynote\tAda\t2025-01-10\t09:00\t10:00\n",
		},
		{
			name:  "header below a title block",
			input: "Summit 2025 schedule\n\nRoom,Title,Presenter,Date,Start,End\nMain Hall,Keynote,Ada,2025-01-10,09:00,10:00\n",
		},
		{
			name:  "quoted commas",
			input: "Room,Title,Presenter,Date,Start,End\n\"Main Hall\",Keynote,\"Ada\",2025-01-10,09:00,10:00\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := decodeString(t, CSVDecoder{}, tt.input, "")
			if len(rows) != 1 {
				t.Fatalf("rows = %d, want 1", len(rows))
			}
			row := rows[0]
			want := map[string]string{
				core.ColRoom: "Main Hall", core.ColTitle: "Keynote", core.ColPresenter: "Ada",
				core.ColDate: "2025-01-10", core.ColStartTime: "09:00", core.ColEndTime: "10:00",
			}
			for key, v := range want {
				if row[key] != v {
					t.Errorf("%s = %v, want %q", key, row[key], v)
				}
			}
		})
	}
}

func TestDecode_LineNumbersAndEmptyRows(t *testing.T) {
	input := "Room,Title,Date\n\nA,One,2025-01-10\n,,\nB,Two,2025-01-11\n"
	rows := decodeString(t, CSVDecoder{}, input, "")

	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0][core.ColLine] != 3 || rows[1][core.ColLine] != 5 {
		t.Errorf("lines = %v, %v, want 3, 5", rows[0][core.ColLine], rows[1][core.ColLine])
	}
}

func TestDecode_MultiplePresenterColumns(t *testing.T) {
	input := "Room,Title,Date,Speaker 1,Speaker 2,Speaker 3\nA,Panel,2025-01-10,Ada,Grace,\n"
	rows := decodeString(t, CSVDecoder{}, input, "")

	if got := rows[0][core.ColPresenter]; got != "Ada, Grace" {
		t.Errorf("presenter = %v, want %q", got, "Ada, Grace")
	}
}

func TestDecode_TimestampsUseHintZone(t *testing.T) {
	input := "Room,Title,Date,Start,End\nA,Talk,,2025-01-10T14:00:00Z,2025-01-10T15:00:00Z\n"

	rows := decodeString(t, CSVDecoder{}, input, "America/New_York")
	start, ok := rows[0][core.ColStartTime].(time.Time)
	if !ok {
		t.Fatalf("start = %T, want time.Time", rows[0][core.ColStartTime])
	}
	if start.Hour() != 9 {
		t.Errorf("start hour = %d, want 9 in New York", start.Hour())
	}
	if _, ok := rows[0][core.ColDate].(time.Time); !ok {
		t.Errorf("date should be filled from the start timestamp, got %v", rows[0][core.ColDate])
	}

	normalized := core.Normalize(1, 2, rows[0], core.SessionDefaults{})
	if normalized.Date != "2025-01-10" || normalized.StartTime != "09:00" || normalized.EndTime != "10:00" {
		t.Errorf("normalized = %s %s-%s", normalized.Date, normalized.StartTime, normalized.EndTime)
	}
}

func TestDecode_Encodings(t *testing.T) {
	csvText := "Room,Title,Date\nSalle Étoile,Café,2025-01-10\n"

	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String(csvText)
	if err != nil {
		t.Fatal(err)
	}
	win1252, err := charmap.Windows1252.NewEncoder().String(csvText)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input string
	}{
		{name: "utf-8", input: csvText},
		{name: "utf-8 bom", input: "\xEF\xBB\xBF" + csvText},
		{name: "utf-16le bom", input: utf16},
		{name: "windows-1252", input: win1252},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := decodeString(t, CSVDecoder{}, tt.input, "")
			if len(rows) != 1 {
				t.Fatalf("rows = %d, want 1", len(rows))
			}
			if rows[0][core.ColRoom] != "Salle Étoile" || rows[0][core.ColTitle] != "Café" {
				t.Errorf("row = %v", rows[0])
			}
		})
	}
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name    string
		decoder CSVDecoder
		input   string
		wantErr error
	}{
		{
			name:    "no recognizable header",
			input:   "foo,bar,baz\n1,2,3\n",
			wantErr: ErrNoHeader,
		},
		{
			name:    "header beyond scan window",
			decoder: CSVDecoder{HeaderScanRows: 2},
			input:   "x\ny\nRoom,Title,Date\nA,B,2025-01-10\n",
			wantErr: ErrNoHeader,
		},
		{
			name:    "too many rows",
			decoder: CSVDecoder{MaxRows: 1},
			input:   "Room,Title,Date\nA,1,2025-01-10\nB,2,2025-01-10\n",
			wantErr: ErrTooManyRows,
		},
		{
			name:    "too large",
			decoder: CSVDecoder{MaxBytes: 10},
			input:   "Room,Title,Date\nA,1,2025-01-10\n",
			wantErr: ErrFileTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.decoder.Decode(context.Background(), strings.NewReader(tt.input), "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Decode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecode_EmptyInputs(t *testing.T) {
	for _, input := range []string{"", "   \n", "Room,Title,Date\n"} {
		rows, err := CSVDecoder{}.Decode(context.Background(), strings.NewReader(input), "")
		if err != nil {
			t.Errorf("Decode(%q) error = %v", input, err)
		}
		if len(rows) != 0 {
			t.Errorf("Decode(%q) rows = %d, want 0", input, len(rows))
		}
	}
}

func TestSniffDelimiter(t *testing.T) {
	tests := []struct {
		input string
		want  rune
	}{
		{"a,b,c\n1,2,3", ','},
		{"a;b;c\n1;2;3", ';'},
		{"a\tb\tc", '\t'},
		{"a|b|c", '|'},
		{`"x;y;z",b` + "\n1,2", ','},
	}
	for _, tt := range tests {
		if got := sniffDelimiter([]byte(tt.input)); got != tt.want {
			t.Errorf("sniffDelimiter(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
