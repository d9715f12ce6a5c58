package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// DefaultSessionTTL is how long an idle import stays reviewable.
const DefaultSessionTTL = 2 * time.Hour

// ServiceOptions wires a Service. Decoder and Store are required.
type ServiceOptions struct {
	Decoder Decoder
	Store   EventStore
	Limiter *ImportLimiter

	// Workspace fills any field an import's own defaults leave empty.
	Workspace SessionDefaults
	Validator ValidatorOptions

	SessionTTL   time.Duration
	CodeAttempts int

	Logger *slog.Logger
	Now    func() time.Time
	NewID  func() string
}

// Service owns in-review imports and commits them into events.
type Service struct {
	decoder   Decoder
	store     EventStore
	limiter   *ImportLimiter
	workspace SessionDefaults
	vopts     ValidatorOptions
	codes     *CodeGenerator
	sessions  *cache.Cache
	commits   eventLocks
	logger    *slog.Logger
	now       func() time.Time
	newID     func() string
}

// NewService creates a Service.
func NewService(opts ServiceOptions) (*Service, error) {
	if opts.Decoder == nil {
		return nil, errors.New("core: decoder is required")
	}
	if opts.Store == nil {
		return nil, errors.New("core: event store is required")
	}
	if err := opts.Workspace.Validate(); err != nil {
		return nil, fmt.Errorf("workspace defaults: %w", err)
	}

	s := &Service{
		decoder:   opts.Decoder,
		store:     opts.Store,
		limiter:   opts.Limiter,
		workspace: opts.Workspace,
		vopts:     opts.Validator,
		codes:     NewCodeGenerator(opts.CodeAttempts),
		commits:   eventLocks{locks: make(map[string]*sync.Mutex)},
		logger:    opts.Logger,
		now:       opts.Now,
		newID:     opts.NewID,
	}
	if s.limiter == nil {
		s.limiter = NewImportLimiter(0, 0)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}

	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	s.sessions = cache.New(ttl, ttl/4)
	s.sessions.OnEvicted(func(id string, v interface{}) {
		if sess, ok := v.(*ImportSession); ok && !sess.isClosed() {
			s.logger.Info("import expired", "import_id", id, "event_id", sess.EventID)
		}
	})
	return s, nil
}

// eventLocks serializes commits to the same event within this process.
// Commits from other processes are caught by the store's version check.
type eventLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (l *eventLocks) lock(eventID string) (unlock func()) {
	l.mu.Lock()
	m, ok := l.locks[eventID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[eventID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// Limiter exposes the decode limiter for health checks and shutdown.
func (s *Service) Limiter() *ImportLimiter { return s.limiter }

// ImportSession is one import under review. Its ledger is guarded by mu.
type ImportSession struct {
	ID        string
	EventID   string
	FileName  string
	Defaults  SessionDefaults
	CreatedAt time.Time

	mu     sync.Mutex
	ledger *Ledger
	closed bool
}

func (sess *ImportSession) isClosed() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.closed
}

// ImportView is a read-only snapshot of an import session.
type ImportView struct {
	ID        string               `json:"id"`
	EventID   string               `json:"eventId"`
	FileName  string               `json:"fileName"`
	CreatedAt time.Time            `json:"createdAt"`
	Defaults  SessionDefaults      `json:"defaults"`
	Rows      []UploadedSessionRow `json:"rows"`
	Issues    []Issue              `json:"issues"`
	Summary   LedgerSummary        `json:"summary"`
}

// View snapshots the session. Rows are narrowed by filter; issues and the
// summary always cover the whole ledger.
func (sess *ImportSession) View(filter RowFilter) ImportView {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return ImportView{
		ID:        sess.ID,
		EventID:   sess.EventID,
		FileName:  sess.FileName,
		CreatedAt: sess.CreatedAt,
		Defaults:  sess.Defaults,
		Rows:      sess.ledger.Filter(filter),
		Issues:    sess.ledger.Issues(),
		Summary:   sess.ledger.Summary(),
	}
}

// StartImportParams describes an uploaded file.
type StartImportParams struct {
	EventID  string
	FileName string
	Reader   io.Reader
	Defaults SessionDefaults
}

// StartImport decodes a file into a new review ledger. Nothing is stored
// unless decoding succeeds with at least one row.
func (s *Service) StartImport(ctx context.Context, p StartImportParams) (*ImportSession, error) {
	defaults := p.Defaults.WithFallback(s.workspace)
	if err := defaults.Validate(); err != nil {
		return nil, err
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	event, err := s.store.GetEvent(ctx, p.EventID)
	if err != nil {
		return nil, fmt.Errorf("load event %s: %w", p.EventID, err)
	}

	hint := event.Timezone
	if hint == "" {
		hint = defaults.Timezone
	}
	raws, err := s.decoder.Decode(ctx, p.Reader, hint)
	if err != nil {
		return nil, &ParseError{FileName: p.FileName, Err: err}
	}
	if len(raws) == 0 {
		return nil, &ParseError{FileName: p.FileName, Err: ErrNoRows}
	}

	vopts := s.vopts
	vopts.Existing = event.Rooms
	ledger := NewLedger(LedgerOptions{Validator: vopts})
	ledger.AddRaw(raws, defaults)

	sess := &ImportSession{
		ID:        s.newID(),
		EventID:   event.ID,
		FileName:  p.FileName,
		Defaults:  defaults,
		CreatedAt: s.now(),
		ledger:    ledger,
	}
	s.sessions.Set(sess.ID, sess, cache.DefaultExpiration)

	sum := ledger.Summary()
	s.logger.Info("import started",
		"import_id", sess.ID,
		"event_id", sess.EventID,
		"file", p.FileName,
		"rows", sum.Total,
		"errors", sum.Error,
		"warnings", sum.Warning,
	)
	return sess, nil
}

// Session returns a live import session and refreshes its expiry.
func (s *Service) Session(importID string) (*ImportSession, error) {
	v, ok := s.sessions.Get(importID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrImportNotFound, importID)
	}
	sess := v.(*ImportSession)
	s.sessions.Set(importID, sess, cache.DefaultExpiration)
	return sess, nil
}

// withLedger runs fn under the session lock. Closed sessions are reported
// as not found.
func (s *Service) withLedger(importID string, fn func(sess *ImportSession) error) error {
	sess, err := s.Session(importID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return fmt.Errorf("%w: %s", ErrImportNotFound, importID)
	}
	return fn(sess)
}

// EditRow applies a patch to one row.
func (s *Service) EditRow(ctx context.Context, importID string, rowID RowID, patch RowPatch) (UploadedSessionRow, error) {
	var row UploadedSessionRow
	err := s.withLedger(importID, func(sess *ImportSession) error {
		var err error
		row, err = sess.ledger.Edit(rowID, patch)
		return err
	})
	if err != nil {
		return UploadedSessionRow{}, err
	}
	s.logger.Debug("row edited", "import_id", importID, "row_id", rowID, "status", row.Status)
	return row, nil
}

// AddRow appends a row built from patch. Empty optional fields take the
// session defaults.
func (s *Service) AddRow(ctx context.Context, importID string, patch RowPatch) (UploadedSessionRow, error) {
	var row UploadedSessionRow
	err := s.withLedger(importID, func(sess *ImportSession) error {
		var draft UploadedSessionRow
		patch.apply(&draft)
		ApplyDefaults(&draft, sess.Defaults)
		id := sess.ledger.Add(draft)
		row, _ = sess.ledger.Get(id)
		return nil
	})
	if err != nil {
		return UploadedSessionRow{}, err
	}
	s.logger.Debug("row added", "import_id", importID, "row_id", row.ID, "status", row.Status)
	return row, nil
}

// RemoveRow discards one row.
func (s *Service) RemoveRow(ctx context.Context, importID string, rowID RowID) error {
	err := s.withLedger(importID, func(sess *ImportSession) error {
		return sess.ledger.Remove(rowID)
	})
	if err == nil {
		s.logger.Debug("row removed", "import_id", importID, "row_id", rowID)
	}
	return err
}

// Cancel discards an import. Nothing has been written, so this is always safe.
func (s *Service) Cancel(ctx context.Context, importID string) error {
	err := s.withLedger(importID, func(sess *ImportSession) error {
		sess.closed = true
		return nil
	})
	if err != nil {
		return err
	}
	s.sessions.Delete(importID)
	s.logger.Info("import cancelled", "import_id", importID)
	return nil
}

// CommitResult describes a successful commit.
type CommitResult struct {
	Event  Event           `json:"event"`
	Plans  []RoomMergePlan `json:"plans"`
	Record ImportRecord    `json:"record"`
}

// Commit merges every accepted row into the event and closes the import.
// It fails with ErrCommitBlocked while any row is in error. A committed
// import cannot be committed again.
//
// Commits to one event run one at a time, from load through save, so each
// merge sees every session committed before it. If the store reports
// ErrStaleEvent the import stays open and can be committed again.
func (s *Service) Commit(ctx context.Context, importID string) (*CommitResult, error) {
	var result *CommitResult
	err := s.withLedger(importID, func(sess *ImportSession) error {
		if blocking := sess.ledger.BlockingRows(); len(blocking) > 0 {
			return &CommitBlockedError{RowIDs: blocking}
		}
		accepted := sess.ledger.AcceptedRows()
		if len(accepted) == 0 {
			return &MergeError{Reason: MergeEmptyPlan, Detail: "no accepted rows"}
		}

		unlock := s.commits.lock(sess.EventID)
		defer unlock()

		event, err := s.store.GetEvent(ctx, sess.EventID)
		if err != nil {
			return fmt.Errorf("load event %s: %w", sess.EventID, err)
		}

		rec := Reconciler{Codes: s.codes, NewID: s.newID}
		plans, err := rec.Reconcile(accepted, event.Rooms)
		if err != nil {
			return err
		}

		now := s.now()
		merged, err := Merge(event, plans, now)
		if err != nil {
			return err
		}
		if err := s.store.SaveEvent(ctx, merged); err != nil {
			return fmt.Errorf("save event %s: %w", event.ID, err)
		}
		merged.Version++

		record := ImportRecord{
			ID:            sess.ID,
			EventID:       event.ID,
			FileName:      sess.FileName,
			RowsCommitted: len(accepted),
			ClientIP:      ClientIPFromContext(ctx),
			CommittedAt:   now,
		}
		for _, p := range plans {
			if p.IsNew() {
				record.RoomsCreated++
			} else {
				record.RoomsExtended++
			}
		}
		for _, row := range accepted {
			if row.Status == StatusWarning {
				record.WarningRows++
			}
		}
		// The event is already saved; a missing history entry must not undo it.
		if err := s.store.RecordImport(ctx, record); err != nil {
			s.logger.Error("record import failed", "import_id", sess.ID, "error", err)
		}

		sess.closed = true
		result = &CommitResult{Event: merged, Plans: plans, Record: record}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.sessions.Delete(importID)
	s.logger.Info("import committed",
		"import_id", importID,
		"event_id", result.Event.ID,
		"rows", result.Record.RowsCommitted,
		"rooms_created", result.Record.RoomsCreated,
		"rooms_extended", result.Record.RoomsExtended,
	)
	return result, nil
}

// GetEvent returns an event from the store.
func (s *Service) GetEvent(ctx context.Context, eventID string) (Event, error) {
	return s.store.GetEvent(ctx, eventID)
}

// ListImports returns the commit history of an event.
func (s *Service) ListImports(ctx context.Context, eventID string) ([]ImportRecord, error) {
	if _, err := s.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListImports(ctx, eventID)
}
