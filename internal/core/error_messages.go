package core

// error_messages.go maps technical errors to user-friendly messages with codes
// for support reference.
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Unreadable file: the spreadsheet could not be decoded
//	IMP002 - No rows: the file has a header but no usable session rows
//	IMP003 - Import expired: the review session is gone (cancelled, committed or timed out)
//	IMP004 - System busy: too many imports are decoding right now
//
// # Validation and Conflict Errors (VAL, CNF)
//
//	VAL001 - Invalid defaults: the workspace session defaults are malformed
//	VAL002 - Row not found: the edited row no longer exists
//	VAL003 - Invalid event: name missing or timezone unknown
//	CNF001 - Commit blocked: rows with errors must be fixed or removed first
//	CNF002 - Event changed: another commit landed between load and save
//
// # Merge Errors (MRG001-MRG099)
//
//	MRG001 - Code generation exhausted retries
//	MRG002 - Plan targets a room that no longer exists
//	MRG003 - Identifier clash with an existing room
//	MRG004 - Merge would double-book a room
//	MRG005 - Nothing to merge
//
// # Event and File Errors (EVT, FILE)
//
//	EVT001 - Event not found
//	FILE001 - File too large
//	FILE002 - No file provided
//	REQ001 - Malformed request body or form
//
// Typed errors are matched first with errors.Is/As. Anything else falls back
// to case-insensitive substring patterns; the first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

var (
	msgUnreadable = UserMessage{
		Message: "The file could not be read as a session spreadsheet",
		Action:  "Export the sheet as CSV with a header row and try again",
		Code:    "IMP001",
	}
	msgNoRows = UserMessage{
		Message: "The file contains no session rows",
		Action:  "Add at least one session below the header row",
		Code:    "IMP002",
	}
	msgImportExpired = UserMessage{
		Message: "This import session is no longer available",
		Action:  "Upload the file again to start a new review",
		Code:    "IMP003",
	}
	msgBusy = UserMessage{
		Message: "Too many imports are being processed",
		Action:  "Please wait a moment and try again",
		Code:    "IMP004",
	}
	msgInvalidDefaults = UserMessage{
		Message: "The session defaults are invalid",
		Action:  "Check the timezone, languages (max 8, unique) and access settings",
		Code:    "VAL001",
	}
	msgRowNotFound = UserMessage{
		Message: "That row no longer exists",
		Action:  "Refresh the review table",
		Code:    "VAL002",
	}
	msgInvalidEvent = UserMessage{
		Message: "The event details are invalid",
		Action:  "Give the event a name and a valid IANA timezone",
		Code:    "VAL003",
	}
	msgCommitBlocked = UserMessage{
		Message: "Some rows still have errors",
		Action:  "Fix or remove the highlighted rows before committing",
		Code:    "CNF001",
	}
	msgStaleEvent = UserMessage{
		Message: "The event was changed by another import while this one was committing",
		Action:  "Commit again to merge against the latest schedule",
		Code:    "CNF002",
	}
	msgEventNotFound = UserMessage{
		Message: "The event does not exist",
		Action:  "Verify the event link and try again",
		Code:    "EVT001",
	}
	defaultMessage = UserMessage{
		Message: "An unexpected error occurred",
		Action:  "Please try again or contact support",
		Code:    "ERR000",
	}
)

var mergeMessages = map[MergeReason]UserMessage{
	MergeCodeExhausted: {
		Message: "Could not generate unique room codes",
		Action:  "Please commit again",
		Code:    "MRG001",
	},
	MergeUnknownRoom: {
		Message: "A target room no longer exists in the event",
		Action:  "Upload the file again to refresh room matching",
		Code:    "MRG002",
	},
	MergeIdentifierClash: {
		Message: "A new room clashes with an existing room's identifiers",
		Action:  "Please commit again",
		Code:    "MRG003",
	},
	MergeEmptyPlan: {
		Message: "The import has nothing to merge",
		Action:  "Add at least one valid row",
		Code:    "MRG005",
	},
	MergeOverlap: {
		Message: "The import would double-book a room",
		Action:  "Upload the file again to re-check conflicts",
		Code:    "MRG004",
	},
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns covers errors that arrive without a typed wrapper, mostly
// from the HTTP layer and the database driver.
var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds maximum size limit",
			Action:  "Split the schedule into smaller files",
			Code:    "FILE001",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE002",
		},
	},
	{
		pattern: "invalid request",
		msg: UserMessage{
			Message: "The request could not be understood",
			Action:  "Check the request body and try again",
			Code:    "REQ001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Request timed out",
			Action:  "Please try again",
			Code:    "DB006",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// MapError converts a technical error to a user-friendly message.
// If nothing matches, a generic fallback message with code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var mergeErr *MergeError
	var parseErr *ParseError
	switch {
	case errors.As(err, &mergeErr):
		if msg, ok := mergeMessages[mergeErr.Reason]; ok {
			return msg
		}
	case errors.As(err, &parseErr):
		if errors.Is(err, ErrNoRows) {
			return msgNoRows
		}
		if msg, ok := matchPattern(err); ok {
			return msg
		}
		return msgUnreadable
	case errors.Is(err, ErrCommitBlocked):
		return msgCommitBlocked
	case errors.Is(err, ErrStaleEvent):
		return msgStaleEvent
	case errors.Is(err, ErrImportNotFound):
		return msgImportExpired
	case errors.Is(err, ErrRowNotFound):
		return msgRowNotFound
	case errors.Is(err, ErrEventNotFound):
		return msgEventNotFound
	case errors.Is(err, ErrInvalidDefaults):
		return msgInvalidDefaults
	case errors.Is(err, ErrInvalidEvent):
		return msgInvalidEvent
	case errors.Is(err, ErrTooManyImports):
		return msgBusy
	}

	if msg, ok := matchPattern(err); ok {
		return msg
	}
	return defaultMessage
}

func matchPattern(err error) (UserMessage, bool) {
	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg, true
		}
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
