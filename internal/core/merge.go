package core

import (
	"fmt"
	"strings"
	"time"
)

// Merge applies plans to a copy of event and returns the result. Either every
// plan is applied or none is: on error the input event is returned unchanged.
//
// After a merge the room and session counts equal the live list totals, and
// the date range only ever widens. The end date is never earlier than today in
// the event's timezone.
func Merge(event Event, plans []RoomMergePlan, now time.Time) (Event, error) {
	out := event.Clone()

	roomIdx := make(map[string]int, len(out.Rooms))
	for i, room := range out.Rooms {
		roomIdx[room.ID] = i
	}
	used := NewCodeSet(out.Rooms)

	for _, plan := range plans {
		if len(plan.Sessions) == 0 {
			return event, &MergeError{Reason: MergeEmptyPlan, Room: plan.Name, Detail: "plan has no sessions"}
		}

		var room *Room
		if plan.IsNew() {
			if err := checkNewRoom(plan, roomIdx, used); err != nil {
				return event, err
			}
			used.Reserve(plan.RoomSessionID, plan.Passcode)
			out.Rooms = append(out.Rooms, Room{
				ID:            plan.NewRoomID,
				Name:          plan.Name,
				RoomSessionID: plan.RoomSessionID,
				Passcode:      plan.Passcode,
			})
			roomIdx[plan.NewRoomID] = len(out.Rooms) - 1
			room = &out.Rooms[len(out.Rooms)-1]
		} else {
			i, ok := roomIdx[plan.ExistingRoomID]
			if !ok {
				return event, &MergeError{
					Reason: MergeUnknownRoom,
					Room:   plan.Name,
					Detail: fmt.Sprintf("no room with id %s", plan.ExistingRoomID),
				}
			}
			room = &out.Rooms[i]
		}

		for _, s := range plan.Sessions {
			if other, clash := findOverlap(room.Sessions, s); clash {
				return event, &MergeError{
					Reason: MergeOverlap,
					Room:   room.Name,
					Detail: fmt.Sprintf("%q (%s %s-%s) overlaps %q",
						s.Title, s.Date.Format(DateLayout), s.StartTime, s.EndTime, other.Title),
				}
			}
			s.Presenters = append([]string(nil), s.Presenters...)
			room.Sessions = append(room.Sessions, s)
		}
	}

	out.RoomCount = len(out.Rooms)
	out.SessionCount = 0
	for _, room := range out.Rooms {
		out.SessionCount += len(room.Sessions)
	}

	out.StartDate, out.EndDate = expandRange(out, today(now, out.Timezone))
	out.DateRange = FormatDateRange(out.StartDate, out.EndDate)
	return out, nil
}

func checkNewRoom(plan RoomMergePlan, roomIdx map[string]int, used *CodeSet) error {
	clash := func(detail string) error {
		return &MergeError{Reason: MergeIdentifierClash, Room: plan.Name, Detail: detail}
	}
	switch {
	case strings.TrimSpace(plan.NewRoomID) == "":
		return clash("new room has no id")
	case strings.TrimSpace(plan.RoomSessionID) == "" || strings.TrimSpace(plan.Passcode) == "":
		return clash("new room has no room code or passcode")
	}
	if _, exists := roomIdx[plan.NewRoomID]; exists {
		return clash(fmt.Sprintf("room id %s already exists", plan.NewRoomID))
	}
	if used.Taken(plan.RoomSessionID, plan.Passcode) {
		return clash(fmt.Sprintf("room code %s or its passcode is already in use", plan.RoomSessionID))
	}
	return nil
}

// findOverlap reports the first session in sessions that overlaps s.
// Sessions with unparseable times are ignored.
func findOverlap(sessions []Session, s Session) (Session, bool) {
	start, ok1 := ParseClock(s.StartTime)
	end, ok2 := ParseClock(s.EndTime)
	if !ok1 || !ok2 {
		return Session{}, false
	}
	for _, other := range sessions {
		if !sameDay(other.Date, s.Date) {
			continue
		}
		oStart, ok1 := ParseClock(other.StartTime)
		oEnd, ok2 := ParseClock(other.EndTime)
		if ok1 && ok2 && start < oEnd && oStart < end {
			return other, true
		}
	}
	return Session{}, false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// today returns the civil date of now in tz, or in UTC when tz is unknown.
func today(now time.Time, tz string) time.Time {
	loc := time.UTC
	if tz != "" {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		}
	}
	return civilDate(now.In(loc))
}

// expandRange widens the event bounds over every session date and today.
func expandRange(e Event, today time.Time) (time.Time, time.Time) {
	start, end := e.StartDate, e.EndDate
	if !start.IsZero() {
		start = civilDate(start)
	}
	if !end.IsZero() {
		end = civilDate(end)
	}
	for _, room := range e.Rooms {
		for _, s := range room.Sessions {
			d := civilDate(s.Date)
			if start.IsZero() || d.Before(start) {
				start = d
			}
			if end.IsZero() || d.After(end) {
				end = d
			}
		}
	}
	if end.IsZero() || today.After(end) {
		end = today
	}
	if start.IsZero() {
		start = end
	}
	return start, end
}
