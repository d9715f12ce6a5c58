// Package core imports session schedules into events.
//
// The package is independent of any transport or storage. Handlers, CLIs and
// tests all drive it through [Service] or the engine functions directly.
//
// # Pipeline
//
// An upload moves through five stages, each taking its input explicitly:
//
//  1. A [Decoder] turns the file into untyped [RawRow] values
//  2. [Normalize] coerces each raw row into an [UploadedSessionRow] and fills
//     empty optional fields from [SessionDefaults]
//  3. The [Ledger] holds the rows under review and keeps every row's status
//     current as the organizer edits, adds and removes rows
//  4. [Reconciler.Reconcile] matches the accepted rows to the event's rooms,
//     creating new rooms with fresh codes where nothing matches
//  5. [Merge] applies the plans to a copy of the event in one step
//
// # Validation
//
// Row status is derived, never stored by hand. Field problems and double-booked
// rooms are errors and block commit. Short or very long sessions, presenters
// booked in two rooms at once and unknown timezones are warnings.
//
// # Error Handling
//
// Aborting failures are typed: [ParseError], [MergeError] and
// [CommitBlockedError], plus sentinels such as [ErrImportNotFound].
// [MapError] turns any of them into a coded [UserMessage]:
//
//   - IMP001-IMP004: import lifecycle (unreadable file, no rows, expired, busy)
//   - VAL001-VAL003, CNF001-CNF002: defaults, rows, events, blocked and stale commits
//   - MRG001-MRG005: merge preconditions
//   - EVT001, FILE001-FILE002, REQ001: events, uploads and malformed requests
package core
