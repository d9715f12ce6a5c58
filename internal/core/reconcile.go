package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Reconciler matches accepted rows to an event's rooms.
type Reconciler struct {
	Codes *CodeGenerator
	NewID func() string // defaults to uuid.NewString
}

// Reconcile returns one plan per distinct room name among accepted, ordered by
// first appearance. A name matching an existing room (ignoring case and
// spacing) extends that room; any other name creates a room with fresh codes.
// Matching is deterministic: the same input always yields the same targets.
func (r Reconciler) Reconcile(accepted []UploadedSessionRow, existing []Room) ([]RoomMergePlan, error) {
	newID := r.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	codes := r.Codes
	if codes == nil {
		codes = NewCodeGenerator(DefaultCodeAttempts)
	}

	byKey := make(map[string]Room, len(existing))
	for _, room := range existing {
		key := RoomKey(room.Name)
		if _, dup := byKey[key]; !dup {
			byKey[key] = room
		}
	}

	var plans []RoomMergePlan
	index := make(map[string]int)
	for _, row := range accepted {
		if row.Status == StatusError {
			continue
		}
		session, err := sessionFromRow(row, newID)
		if err != nil {
			return nil, err
		}

		key := RoomKey(row.Room)
		if i, ok := index[key]; ok {
			plans[i].Sessions = append(plans[i].Sessions, session)
			continue
		}

		plan := RoomMergePlan{Sessions: []Session{session}}
		if room, ok := byKey[key]; ok {
			plan.ExistingRoomID = room.ID
			plan.Name = room.Name
		} else {
			plan.NewRoomID = newID()
			plan.Name = strings.Join(strings.Fields(row.Room), " ")
		}
		index[key] = len(plans)
		plans = append(plans, plan)
	}

	// Codes are drawn after matching so that matched rooms never consume one.
	used := NewCodeSet(existing)
	for i := range plans {
		if !plans[i].IsNew() {
			continue
		}
		sid, pass, err := codes.Next(used, plans[i].Name)
		if err != nil {
			return nil, err
		}
		plans[i].RoomSessionID = sid
		plans[i].Passcode = pass
	}
	return plans, nil
}

func sessionFromRow(row UploadedSessionRow, newID func() string) (Session, error) {
	date, ok := ParseDate(row.Date)
	if !ok {
		return Session{}, fmt.Errorf("reconcile row %d: invalid date %q", row.ID, row.Date)
	}
	start, okStart := ParseClock(row.StartTime)
	end, okEnd := ParseClock(row.EndTime)
	if !okStart || !okEnd || end <= start {
		return Session{}, fmt.Errorf("reconcile row %d: invalid time range %q-%q", row.ID, row.StartTime, row.EndTime)
	}
	return Session{
		ID:         newID(),
		Title:      strings.TrimSpace(row.Title),
		Presenters: row.Presenters(),
		Date:       date,
		StartTime:  start.String(),
		EndTime:    end.String(),
		Status:     SessionPending,
	}, nil
}
