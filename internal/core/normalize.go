package core

// Normalize coerces one untyped decoder row into the strict row shape and fills
// empty optional fields from defaults. Required fields are passed through as
// text; the normalizer never invents room, title, presenter, date or times.
// It never fails: malformed values surface later as validation issues.
func Normalize(id RowID, line int, raw RawRow, defaults SessionDefaults) UploadedSessionRow {
	row := UploadedSessionRow{
		ID:        id,
		Line:      line,
		Room:      cellText(raw[ColRoom], cellPlain),
		Title:     cellText(raw[ColTitle], cellPlain),
		Presenter: cellText(raw[ColPresenter], cellPlain),
		Date:      cellText(raw[ColDate], cellDate),
		StartTime: cellText(raw[ColStartTime], cellClock),
		EndTime:   cellText(raw[ColEndTime], cellClock),
		Timezone:  cellText(raw[ColTimezone], cellPlain),
		Language:  cellText(raw[ColLanguage], cellPlain),
		Glossary:  cellText(raw[ColGlossary], cellPlain),
		Account:   cellText(raw[ColAccount], cellPlain),
		VoicePack: cellText(raw[ColVoicePack], cellPlain),
		Status:    StatusValid,
	}
	ApplyDefaults(&row, defaults)
	return row
}

// ApplyDefaults fills every empty optional field of row from defaults and
// leaves non-empty fields untouched.
func ApplyDefaults(row *UploadedSessionRow, defaults SessionDefaults) {
	fill := func(dst *string, fallback string) {
		if *dst == "" {
			*dst = fallback
		}
	}
	fill(&row.Timezone, defaults.Timezone)
	fill(&row.Glossary, defaults.GlossaryID)
	fill(&row.Account, defaults.AccountID)
	fill(&row.VoicePack, defaults.VoicePack)
	fill(&row.Language, defaults.StartingLanguage)
}
