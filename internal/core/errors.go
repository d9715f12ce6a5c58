package core

// errors.go defines the import error taxonomy.
//
// Row-level problems (field validation, conflicts, soft warnings) are not Go
// errors: they live on the rows as Issues and are resolved by editing the
// ledger. The types here cover failures that abort an operation:
//
//   - ParseError: the decode step failed or produced no usable rows
//   - MergeError: reconciliation or the merge transaction could not be applied
//   - sentinels for lookups and blocked commits

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrImportNotFound  = errors.New("import not found")
	ErrRowNotFound     = errors.New("row not found")
	ErrEventNotFound   = errors.New("event not found")
	ErrInvalidDefaults = errors.New("invalid session defaults")
	ErrNoRows          = errors.New("no usable rows in file")
	ErrFileTooLarge    = errors.New("file too large")

	// ErrStaleEvent is returned by EventStore.SaveEvent when the stored event
	// is no longer at the version the caller loaded.
	ErrStaleEvent = errors.New("event changed since it was loaded")
)

// ParseError reports that the uploaded file could not be turned into rows.
// The ledger is never populated when a ParseError is returned.
type ParseError struct {
	FileName string
	Err      error
}

func (e *ParseError) Error() string {
	if e.FileName != "" {
		return fmt.Sprintf("parse %s: %v", e.FileName, e.Err)
	}
	return fmt.Sprintf("parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MergeReason classifies a MergeError.
type MergeReason string

const (
	MergeCodeExhausted   MergeReason = "code_exhausted"
	MergeUnknownRoom     MergeReason = "unknown_room"
	MergeIdentifierClash MergeReason = "identifier_clash"
	MergeEmptyPlan       MergeReason = "empty_plan"
	MergeOverlap         MergeReason = "room_overlap"
)

// MergeError aborts an entire commit. The event is left unchanged.
type MergeError struct {
	Reason MergeReason
	Room   string
	Detail string
	Err    error
}

func (e *MergeError) Error() string {
	var b strings.Builder
	b.WriteString("merge failed: ")
	b.WriteString(string(e.Reason))
	if e.Room != "" {
		fmt.Fprintf(&b, " (room %q)", e.Room)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *MergeError) Unwrap() error { return e.Err }

// CommitBlockedError is returned when rows with errors remain in the ledger.
type CommitBlockedError struct {
	RowIDs []RowID
}

// ErrCommitBlocked matches any *CommitBlockedError via errors.Is.
var ErrCommitBlocked = errors.New("commit blocked by rows with errors")

func (e *CommitBlockedError) Error() string {
	ids := make([]string, len(e.RowIDs))
	for i, id := range e.RowIDs {
		ids[i] = fmt.Sprintf("%d", id)
	}
	return fmt.Sprintf("commit blocked by rows with errors: %s", strings.Join(ids, ", "))
}

func (e *CommitBlockedError) Is(target error) bool { return target == ErrCommitBlocked }
