// Package templates holds the HTML components of the review UI.
//
// Components are written in .templ files; the _templ.go files are generated
// with `templ generate` and committed.
package templates

import (
	"fmt"
	"strings"

	"github.com/JonMunkholm/eventimport/internal/core"
)

// ReviewFilters echoes the query a review page was rendered with.
type ReviewFilters struct {
	Room   string
	Status string
	Query  string
}

var tableColumns = []string{"#", "Line", "Room", "Title", "Presenters", "Date", "Start", "End", "Timezone", "Status", "Issues"}

// statusOptions lists the status filter choices; "" means any.
var statusOptions = []string{"", string(core.StatusValid), string(core.StatusWarning), string(core.StatusError)}

func statusLabel(opt string) string {
	if opt == "" {
		return "any status"
	}
	return opt
}

func reviewTitle(event core.Event, view core.ImportView) string {
	return fmt.Sprintf("Review %s for %s", view.FileName, event.Name)
}

func issueText(issues []core.Issue) string {
	msgs := make([]string, len(issues))
	for i, is := range issues {
		msgs[i] = is.Message
	}
	return strings.Join(msgs, "; ")
}
