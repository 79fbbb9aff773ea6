package protocol

import "strings"

// DefaultPort is the TCP port clients connect to.
const DefaultPort = 5000

// Message types.
const (
	TypeJoin     = "JOIN"
	TypeInput    = "INPUT"
	TypeRestart  = "RESTART"
	TypeJoinOK   = "JOIN_OK"
	TypeJoinFull = "JOIN_FULL"
	TypeState    = "STATE"
	TypeGameOver = "GAME_OVER"
)

// Arena phases as they appear on the wire.
const (
	PhasePlaying  = "PLAYING"
	PhaseGameOver = "GAME_OVER"
)

// Separators. Every message is a single line; fields are split by FieldSep,
// collection entries by RecordSep and record attributes by AttrSep.
const (
	FieldSep  = "|"
	RecordSep = ";"
	AttrSep   = ":"
)

// Record tags inside STATE collections.
const (
	TagPlayer   = "P"
	TagPickup   = "C"
	TagSegment  = "S"
	TagObstacle = "W"
)

// Input flags. A flag string holds any subset of these, in any order.
const (
	FlagUp    = 'U'
	FlagDown  = 'D'
	FlagLeft  = 'L'
	FlagRight = 'R'
)

const maxNameRunes = 16

// NormalizeName makes a client supplied display name safe to embed in STATE
// and GAME_OVER records.
func NormalizeName(name string) string {
	var b strings.Builder
	n := 0
	for _, r := range name {
		if n >= maxNameRunes {
			break
		}
		switch {
		case r == '|' || r == ':' || r == ';':
			continue
		case r < 0x20 || r == 0x7f:
			continue
		}
		b.WriteRune(r)
		n++
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "player"
	}
	return out
}

// trimLine strips the line terminator a transport may leave on a line.
func trimLine(line string) string {
	return strings.TrimRight(line, "\r\n")
}
