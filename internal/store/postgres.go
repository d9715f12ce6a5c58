// Package store persists events and import history.
//
// Postgres is the production store. Memory keeps everything in process and
// backs tests and STORE_DRIVER=memory.
package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/eventimport/internal/core"
)

//go:embed schema.sql
var schemaSQL string

// Postgres stores events in PostgreSQL through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an open pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates missing tables and indexes.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// GetEvent loads an event with its rooms and sessions in stored order.
func (p *Postgres) GetEvent(ctx context.Context, id string) (core.Event, error) {
	var (
		e          core.Event
		start, end pgtype.Date
	)
	err := p.pool.QueryRow(ctx,
		`SELECT id, name, timezone, start_date, end_date, date_range, version FROM events WHERE id = $1`, id,
	).Scan(&e.ID, &e.Name, &e.Timezone, &start, &end, &e.DateRange, &e.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Event{}, fmt.Errorf("%w: %s", core.ErrEventNotFound, id)
	}
	if err != nil {
		return core.Event{}, fmt.Errorf("query event: %w", err)
	}
	e.StartDate = fromPgDate(start)
	e.EndDate = fromPgDate(end)

	rows, err := p.pool.Query(ctx,
		`SELECT id, name, room_session_id, passcode FROM rooms WHERE event_id = $1 ORDER BY position`, id)
	if err != nil {
		return core.Event{}, fmt.Errorf("query rooms: %w", err)
	}
	e.Rooms, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Room, error) {
		var r core.Room
		err := row.Scan(&r.ID, &r.Name, &r.RoomSessionID, &r.Passcode)
		return r, err
	})
	if err != nil {
		return core.Event{}, fmt.Errorf("scan rooms: %w", err)
	}

	index := make(map[string]int, len(e.Rooms))
	for i, r := range e.Rooms {
		index[r.ID] = i
	}

	srows, err := p.pool.Query(ctx, `
		SELECT s.room_id, s.id, s.title, s.presenters, s.session_date, s.start_time, s.end_time, s.status
		FROM sessions s JOIN rooms r ON r.id = s.room_id
		WHERE r.event_id = $1
		ORDER BY r.position, s.position`, id)
	if err != nil {
		return core.Event{}, fmt.Errorf("query sessions: %w", err)
	}
	defer srows.Close()
	for srows.Next() {
		var (
			roomID string
			s      core.Session
			date   pgtype.Date
			status string
		)
		if err := srows.Scan(&roomID, &s.ID, &s.Title, &s.Presenters, &date, &s.StartTime, &s.EndTime, &status); err != nil {
			return core.Event{}, fmt.Errorf("scan session: %w", err)
		}
		s.Date = fromPgDate(date)
		s.Status = core.SessionStatus(status)
		if i, ok := index[roomID]; ok {
			e.Rooms[i].Sessions = append(e.Rooms[i].Sessions, s)
		}
	}
	if err := srows.Err(); err != nil {
		return core.Event{}, fmt.Errorf("iterate sessions: %w", err)
	}

	e.RoomCount = len(e.Rooms)
	for _, r := range e.Rooms {
		e.SessionCount += len(r.Sessions)
	}
	return e, nil
}

// SaveEvent writes the event row and inserts any rooms and sessions not yet
// stored, all in one transaction. Committed rooms and sessions are never
// rewritten.
//
// The event row update only applies while the stored version equals
// e.Version. The upsert locks the row, so of two concurrent saves from the
// same version the second sees the bumped version and gets ErrStaleEvent.
func (p *Postgres) SaveEvent(ctx context.Context, e core.Event) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	tag, err := tx.Exec(ctx, `
		INSERT INTO events (id, name, timezone, start_date, end_date, date_range, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7 + 1, now())
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			timezone = EXCLUDED.timezone,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			date_range = EXCLUDED.date_range,
			version = events.version + 1,
			updated_at = now()
		WHERE events.version = $7`,
		e.ID, e.Name, e.Timezone, toPgDate(e.StartDate), toPgDate(e.EndDate), e.DateRange, e.Version)
	if err != nil {
		return fmt.Errorf("upsert event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s is no longer at version %d", core.ErrStaleEvent, e.ID, e.Version)
	}

	batch := &pgx.Batch{}
	for ri, r := range e.Rooms {
		batch.Queue(`
			INSERT INTO rooms (id, event_id, name, room_session_id, passcode, position)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING`,
			r.ID, e.ID, r.Name, r.RoomSessionID, r.Passcode, ri)
		for si, s := range r.Sessions {
			presenters := s.Presenters
			if presenters == nil {
				presenters = []string{}
			}
			batch.Queue(`
				INSERT INTO sessions (id, room_id, title, presenters, session_date, start_time, end_time, status, position)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				ON CONFLICT (id) DO NOTHING`,
				s.ID, r.ID, s.Title, presenters, toPgDate(s.Date), s.StartTime, s.EndTime, string(s.Status), si)
		}
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert rooms and sessions: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RecordImport appends an import history entry.
func (p *Postgres) RecordImport(ctx context.Context, rec core.ImportRecord) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO event_imports
			(id, event_id, file_name, rows_committed, rooms_created, rooms_extended, warning_rows, client_ip, committed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.EventID, rec.FileName, rec.RowsCommitted, rec.RoomsCreated,
		rec.RoomsExtended, rec.WarningRows, rec.ClientIP, pgtype.Timestamptz{Time: rec.CommittedAt, Valid: true})
	if err != nil {
		return fmt.Errorf("insert import record: %w", err)
	}
	return nil
}

// ListImports returns an event's import history, newest first.
func (p *Postgres) ListImports(ctx context.Context, eventID string) ([]core.ImportRecord, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, event_id, file_name, rows_committed, rooms_created, rooms_extended, warning_rows, client_ip, committed_at
		FROM event_imports WHERE event_id = $1 ORDER BY committed_at DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query imports: %w", err)
	}
	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ImportRecord, error) {
		var (
			rec core.ImportRecord
			at  pgtype.Timestamptz
		)
		err := row.Scan(&rec.ID, &rec.EventID, &rec.FileName, &rec.RowsCommitted, &rec.RoomsCreated,
			&rec.RoomsExtended, &rec.WarningRows, &rec.ClientIP, &at)
		rec.CommittedAt = at.Time
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan imports: %w", err)
	}
	return records, nil
}

func toPgDate(t time.Time) pgtype.Date {
	if t.IsZero() {
		return pgtype.Date{Valid: false}
	}
	y, m, d := t.Date()
	return pgtype.Date{Time: time.Date(y, m, d, 0, 0, 0, 0, time.UTC), Valid: true}
}

func fromPgDate(d pgtype.Date) time.Time {
	if !d.Valid {
		return time.Time{}
	}
	y, m, day := d.Time.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}
