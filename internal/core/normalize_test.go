package core

import "testing"

func testDefaults() SessionDefaults {
	return SessionDefaults{
		Timezone:         "America/New_York",
		AccountID:        "acct-1",
		StartingLanguage: "en",
		GlossaryID:       "gloss-1",
		VoicePack:        "voice-1",
	}
}

func TestNormalize_FillsEmptyOptionalFields(t *testing.T) {
	raw := RawRow{
		ColRoom:      "Main Hall",
		ColTitle:     "Keynote",
		ColPresenter: "Ada Lovelace",
		ColDate:      "2025-01-10",
		ColStartTime: "09:00",
		ColEndTime:   "10:00",
	}

	row := Normalize(1, 2, raw, testDefaults())

	tests := []struct {
		field string
		got   string
		want  string
	}{
		{"timezone", row.Timezone, "America/New_York"},
		{"account", row.Account, "acct-1"},
		{"language", row.Language, "en"},
		{"glossary", row.Glossary, "gloss-1"},
		{"voice_pack", row.VoicePack, "voice-1"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.field, tt.got, tt.want)
		}
	}
	if row.ID != 1 || row.Line != 2 {
		t.Errorf("ID/Line = %d/%d, want 1/2", row.ID, row.Line)
	}
	if row.Status != StatusValid {
		t.Errorf("Status = %q, want valid", row.Status)
	}
}

func TestNormalize_NeverOverwritesValues(t *testing.T) {
	raw := RawRow{
		ColRoom:      "Room B",
		ColTitle:     "Panel",
		ColPresenter: "Grace Hopper",
		ColTimezone:  "Europe/Paris",
		ColAccount:   "acct-9",
		ColLanguage:  "fr",
		ColGlossary:  "gloss-9",
		ColVoicePack: "voice-9",
	}

	row := Normalize(1, 2, raw, testDefaults())

	if row.Timezone != "Europe/Paris" || row.Account != "acct-9" || row.Language != "fr" ||
		row.Glossary != "gloss-9" || row.VoicePack != "voice-9" {
		t.Errorf("defaults overwrote row values: %+v", row)
	}
}

func TestNormalize_PassesRequiredFieldsThrough(t *testing.T) {
	row := Normalize(3, 4, RawRow{ColTitle: "  Orphan  "}, testDefaults())

	if row.Room != "" || row.Presenter != "" || row.Date != "" || row.StartTime != "" || row.EndTime != "" {
		t.Errorf("normalizer invented required data: %+v", row)
	}
	if row.Title != "Orphan" {
		t.Errorf("Title = %q, want trimmed %q", row.Title, "Orphan")
	}
}

func TestNormalize_CoercesLooseValues(t *testing.T) {
	raw := RawRow{
		ColRoom:      101,
		ColTitle:     "Lab",
		ColPresenter: []byte("Linus"),
		ColStartTime: 0.375,
		ColEndTime:   0.4375,
		ColDate:      nil,
	}

	row := Normalize(1, 2, raw, SessionDefaults{})

	if row.Room != "101" {
		t.Errorf("Room = %q, want %q", row.Room, "101")
	}
	if row.Presenter != "Linus" {
		t.Errorf("Presenter = %q, want %q", row.Presenter, "Linus")
	}
	if row.StartTime != "09:00" || row.EndTime != "10:30" {
		t.Errorf("times = %q-%q, want 09:00-10:30", row.StartTime, row.EndTime)
	}
	if row.Date != "" {
		t.Errorf("Date = %q, want empty", row.Date)
	}
}

func TestPresenters(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Ada", []string{"Ada"}},
		{"Ada, Grace ,Linus", []string{"Ada", "Grace", "Linus"}},
		{" , ,", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got := UploadedSessionRow{Presenter: tt.input}.Presenters()
		if len(got) != len(tt.want) {
			t.Errorf("Presenters(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Presenters(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}
}
