package core

import (
	"fmt"
	"math/rand/v2"
	"strings"
)

// DefaultCodeAttempts bounds code regeneration when no limit is configured.
const DefaultCodeAttempts = 16

const (
	codeLetters    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passcodeDigits = 6
)

// CodeGenerator issues room-session-ids ("ABCD-1234") and numeric passcodes.
// A candidate that collides with a code already in use is regenerated, up to
// MaxAttempts times.
type CodeGenerator struct {
	MaxAttempts int
	intN        func(n int) int
}

// NewCodeGenerator returns a generator backed by math/rand/v2.
func NewCodeGenerator(maxAttempts int) *CodeGenerator {
	return NewCodeGeneratorWithSource(maxAttempts, rand.IntN)
}

// NewCodeGeneratorWithSource uses intN to draw uniform values in [0, n).
func NewCodeGeneratorWithSource(maxAttempts int, intN func(n int) int) *CodeGenerator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeAttempts
	}
	return &CodeGenerator{MaxAttempts: maxAttempts, intN: intN}
}

// CodeSet tracks the codes already taken within one event.
type CodeSet struct {
	roomSessionIDs map[string]bool
	passcodes      map[string]bool
}

// NewCodeSet indexes the codes of rooms.
func NewCodeSet(rooms []Room) *CodeSet {
	cs := &CodeSet{
		roomSessionIDs: make(map[string]bool, len(rooms)),
		passcodes:      make(map[string]bool, len(rooms)),
	}
	for _, r := range rooms {
		cs.Reserve(r.RoomSessionID, r.Passcode)
	}
	return cs
}

// Reserve marks a code pair as taken. Empty values are ignored.
func (cs *CodeSet) Reserve(roomSessionID, passcode string) {
	if key := strings.ToUpper(strings.TrimSpace(roomSessionID)); key != "" {
		cs.roomSessionIDs[key] = true
	}
	if p := strings.TrimSpace(passcode); p != "" {
		cs.passcodes[p] = true
	}
}

// Taken reports whether either value is already in use.
func (cs *CodeSet) Taken(roomSessionID, passcode string) bool {
	return cs.roomSessionIDs[strings.ToUpper(strings.TrimSpace(roomSessionID))] ||
		cs.passcodes[strings.TrimSpace(passcode)]
}

// Next draws a fresh code pair that is not in used and reserves it.
func (g *CodeGenerator) Next(used *CodeSet, room string) (roomSessionID, passcode string, err error) {
	for attempt := 0; attempt < g.MaxAttempts; attempt++ {
		roomSessionID = g.roomSessionID()
		passcode = g.passcode()
		if used.Taken(roomSessionID, passcode) {
			continue
		}
		used.Reserve(roomSessionID, passcode)
		return roomSessionID, passcode, nil
	}
	return "", "", &MergeError{
		Reason: MergeCodeExhausted,
		Room:   room,
		Detail: fmt.Sprintf("no unique room code after %d attempts", g.MaxAttempts),
	}
}

func (g *CodeGenerator) roomSessionID() string {
	var b strings.Builder
	b.Grow(9)
	for i := 0; i < 4; i++ {
		b.WriteByte(codeLetters[g.intN(len(codeLetters))])
	}
	fmt.Fprintf(&b, "-%04d", 1000+g.intN(9000))
	return b.String()
}

func (g *CodeGenerator) passcode() string {
	b := make([]byte, passcodeDigits)
	for i := range b {
		b[i] = byte('0' + g.intN(10))
	}
	return string(b)
}
