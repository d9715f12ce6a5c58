package decode

import (
	"strings"
	"unicode"

	"github.com/JonMunkholm/eventimport/internal/core"
)

// headerAliases maps normalized header text to canonical column keys.
// Normalization lowercases and drops everything but letters and digits, so
// "Start Time", "start_time" and "START-TIME" all read as "starttime".
var headerAliases = map[string]string{
	// Room
	"room":     core.ColRoom,
	"roomname": core.ColRoom,
	"location": core.ColRoom,
	"venue":    core.ColRoom,
	"track":    core.ColRoom,
	"stage":    core.ColRoom,

	// Title
	"title":        core.ColTitle,
	"session":      core.ColTitle,
	"sessiontitle": core.ColTitle,
	"sessionname":  core.ColTitle,
	"talk":         core.ColTitle,
	"name":         core.ColTitle,

	// Presenter
	"presenter":  core.ColPresenter,
	"presenters": core.ColPresenter,
	"speaker":    core.ColPresenter,
	"speakers":   core.ColPresenter,
	"speaker1":   core.ColPresenter,
	"speaker2":   core.ColPresenter,
	"speaker3":   core.ColPresenter,
	"host":       core.ColPresenter,
	"moderator":  core.ColPresenter,

	// Date
	"date":        core.ColDate,
	"day":         core.ColDate,
	"sessiondate": core.ColDate,

	// Times
	"start":     core.ColStartTime,
	"starttime": core.ColStartTime,
	"starts":    core.ColStartTime,
	"from":      core.ColStartTime,
	"begin":     core.ColStartTime,
	"end":       core.ColEndTime,
	"endtime":   core.ColEndTime,
	"ends":      core.ColEndTime,
	"to":        core.ColEndTime,
	"finish":    core.ColEndTime,

	// Optional
	"timezone":       core.ColTimezone,
	"tz":             core.ColTimezone,
	"zone":           core.ColTimezone,
	"language":       core.ColLanguage,
	"lang":           core.ColLanguage,
	"sourcelanguage": core.ColLanguage,
	"glossary":       core.ColGlossary,
	"glossaryid":     core.ColGlossary,
	"account":        core.ColAccount,
	"accountid":      core.ColAccount,
	"voicepack":      core.ColVoicePack,
	"voice":          core.ColVoicePack,
}

// requiredHeaders must all be present for a row to count as the header.
var requiredHeaders = []string{core.ColRoom, core.ColTitle, core.ColDate}

func normalizeHeader(h string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(h) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// columnMap maps column indexes of a header row to canonical keys.
// Unknown headers are skipped.
func columnMap(header []string) map[int]string {
	cols := make(map[int]string)
	for i, h := range header {
		if key, ok := headerAliases[normalizeHeader(h)]; ok {
			cols[i] = key
		}
	}
	return cols
}

func isHeader(cols map[int]string) bool {
	found := make(map[string]bool, len(cols))
	for _, key := range cols {
		found[key] = true
	}
	for _, key := range requiredHeaders {
		if !found[key] {
			return false
		}
	}
	return true
}
