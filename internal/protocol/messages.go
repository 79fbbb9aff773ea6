package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// ClientMsg is one of JoinMsg, InputMsg or RestartMsg.
type ClientMsg interface {
	Type() string
	Encode() string
	clientMsg()
}

// JOIN (client -> server)
type JoinMsg struct {
	Name string
}

// INPUT (client -> server). Flags are kept verbatim; see ParseFlags.
type InputMsg struct {
	Flags string
}

// RESTART (client -> server)
type RestartMsg struct{}

func (JoinMsg) Type() string    { return TypeJoin }
func (InputMsg) Type() string   { return TypeInput }
func (RestartMsg) Type() string { return TypeRestart }

func (m JoinMsg) Encode() string  { return TypeJoin + FieldSep + m.Name }
func (m InputMsg) Encode() string { return TypeInput + FieldSep + m.Flags }
func (RestartMsg) Encode() string { return TypeRestart }

func (JoinMsg) clientMsg()    {}
func (InputMsg) clientMsg()   {}
func (RestartMsg) clientMsg() {}

// DecodeClient parses one line sent by a client. Extra trailing fields on
// JOIN and INPUT are ignored; RESTART takes no fields.
func DecodeClient(line string) (ClientMsg, error) {
	line = trimLine(line)
	if line == "" {
		return nil, ErrEmptyLine
	}
	fields := strings.Split(line, FieldSep)
	switch fields[0] {
	case TypeJoin:
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: %s", ErrArity, TypeJoin)
		}
		return JoinMsg{Name: fields[1]}, nil
	case TypeInput:
		if len(fields) < 2 {
			return nil, fmt.Errorf("%w: %s", ErrArity, TypeInput)
		}
		return InputMsg{Flags: fields[1]}, nil
	case TypeRestart:
		if len(fields) != 1 {
			return nil, fmt.Errorf("%w: %s", ErrArity, TypeRestart)
		}
		return RestartMsg{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, fields[0])
	}
}

// ParseFlags reports which directions a raw input flag string holds.
// Unknown characters are ignored.
func ParseFlags(flags string) (up, down, left, right bool) {
	for i := 0; i < len(flags); i++ {
		switch flags[i] {
		case FlagUp:
			up = true
		case FlagDown:
			down = true
		case FlagLeft:
			left = true
		case FlagRight:
			right = true
		}
	}
	return
}

// FormatFlags is the inverse of ParseFlags, in canonical UDLR order.
func FormatFlags(up, down, left, right bool) string {
	b := make([]byte, 0, 4)
	if up {
		b = append(b, FlagUp)
	}
	if down {
		b = append(b, FlagDown)
	}
	if left {
		b = append(b, FlagLeft)
	}
	if right {
		b = append(b, FlagRight)
	}
	return string(b)
}

// ServerMsg is one of JoinOKMsg, JoinFullMsg, StateMsg or GameOverMsg.
type ServerMsg interface {
	Type() string
	Encode() string
	serverMsg()
}

// JOIN_OK (server -> client)
type JoinOKMsg struct {
	ID    int
	Color string
}

// JOIN_FULL (server -> client)
type JoinFullMsg struct{}

// STATE (server -> client)
type StateMsg struct {
	Phase     string
	Players   []PlayerRec
	Pickups   []PointRec
	Segments  []PointRec
	Obstacles []RectRec
}

type PlayerRec struct {
	ID    int
	X     int
	Y     int
	Score int
	Name  string
	Color string
}

type PointRec struct {
	X int
	Y int
}

type RectRec struct {
	X int
	Y int
	W int
	H int
}

// GAME_OVER (server -> client). Ranking is ordered by descending score.
type GameOverMsg struct {
	WinnerID int
	Ranking  []RankEntry
}

type RankEntry struct {
	Name  string
	Score int
}

func (JoinOKMsg) Type() string   { return TypeJoinOK }
func (JoinFullMsg) Type() string { return TypeJoinFull }
func (StateMsg) Type() string    { return TypeState }
func (GameOverMsg) Type() string { return TypeGameOver }

func (JoinOKMsg) serverMsg()   {}
func (JoinFullMsg) serverMsg() {}
func (StateMsg) serverMsg()    {}
func (GameOverMsg) serverMsg() {}

func (m JoinOKMsg) Encode() string {
	return TypeJoinOK + FieldSep + strconv.Itoa(m.ID) + FieldSep + m.Color
}

func (JoinFullMsg) Encode() string { return TypeJoinFull }

func (m StateMsg) Encode() string {
	var b strings.Builder
	b.Grow(64 + 32*len(m.Players) + 12*(len(m.Pickups)+len(m.Segments)) + 20*len(m.Obstacles))
	b.WriteString(TypeState)
	b.WriteString(FieldSep)
	b.WriteString(m.Phase)

	b.WriteString(FieldSep)
	for i, p := range m.Players {
		if i > 0 {
			b.WriteString(RecordSep)
		}
		writeRecord(&b, TagPlayer, strconv.Itoa(p.ID), strconv.Itoa(p.X), strconv.Itoa(p.Y), strconv.Itoa(p.Score), p.Name, p.Color)
	}
	b.WriteString(FieldSep)
	writePoints(&b, TagPickup, m.Pickups)
	b.WriteString(FieldSep)
	writePoints(&b, TagSegment, m.Segments)
	b.WriteString(FieldSep)
	for i, r := range m.Obstacles {
		if i > 0 {
			b.WriteString(RecordSep)
		}
		writeRecord(&b, TagObstacle, strconv.Itoa(r.X), strconv.Itoa(r.Y), strconv.Itoa(r.W), strconv.Itoa(r.H))
	}
	return b.String()
}

func (m GameOverMsg) Encode() string {
	var b strings.Builder
	b.WriteString(TypeGameOver)
	b.WriteString(FieldSep)
	b.WriteString(strconv.Itoa(m.WinnerID))
	b.WriteString(FieldSep)
	for i, e := range m.Ranking {
		if i > 0 {
			b.WriteString(RecordSep)
		}
		b.WriteString(e.Name)
		b.WriteString(AttrSep)
		b.WriteString(strconv.Itoa(e.Score))
	}
	return b.String()
}

func writeRecord(b *strings.Builder, tag string, attrs ...string) {
	b.WriteString(tag)
	for _, a := range attrs {
		b.WriteString(AttrSep)
		b.WriteString(a)
	}
}

func writePoints(b *strings.Builder, tag string, pts []PointRec) {
	for i, p := range pts {
		if i > 0 {
			b.WriteString(RecordSep)
		}
		writeRecord(b, tag, strconv.Itoa(p.X), strconv.Itoa(p.Y))
	}
}

// DecodeServer parses one line sent by the server.
func DecodeServer(line string) (ServerMsg, error) {
	line = trimLine(line)
	if line == "" {
		return nil, ErrEmptyLine
	}
	fields := strings.Split(line, FieldSep)
	switch fields[0] {
	case TypeJoinOK:
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: %s", ErrArity, TypeJoinOK)
		}
		id, err := atoi(fields[1])
		if err != nil {
			return nil, err
		}
		return JoinOKMsg{ID: id, Color: fields[2]}, nil
	case TypeJoinFull:
		if len(fields) != 1 {
			return nil, fmt.Errorf("%w: %s", ErrArity, TypeJoinFull)
		}
		return JoinFullMsg{}, nil
	case TypeState:
		return decodeState(fields)
	case TypeGameOver:
		return decodeGameOver(fields)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, fields[0])
	}
}

func decodeState(fields []string) (StateMsg, error) {
	var m StateMsg
	if len(fields) != 6 {
		return m, fmt.Errorf("%w: %s", ErrArity, TypeState)
	}
	m.Phase = fields[1]
	if m.Phase != PhasePlaying && m.Phase != PhaseGameOver {
		return m, fmt.Errorf("%w: phase %q", ErrBadField, m.Phase)
	}

	for _, rec := range splitRecords(fields[2]) {
		a, err := attrs(rec, TagPlayer, 7)
		if err != nil {
			return m, err
		}
		n, err := atois(a[1], a[2], a[3], a[4])
		if err != nil {
			return m, err
		}
		m.Players = append(m.Players, PlayerRec{ID: n[0], X: n[1], Y: n[2], Score: n[3], Name: a[5], Color: a[6]})
	}

	var err error
	if m.Pickups, err = decodePoints(fields[3], TagPickup); err != nil {
		return m, err
	}
	if m.Segments, err = decodePoints(fields[4], TagSegment); err != nil {
		return m, err
	}

	for _, rec := range splitRecords(fields[5]) {
		a, err := attrs(rec, TagObstacle, 5)
		if err != nil {
			return m, err
		}
		n, err := atois(a[1], a[2], a[3], a[4])
		if err != nil {
			return m, err
		}
		m.Obstacles = append(m.Obstacles, RectRec{X: n[0], Y: n[1], W: n[2], H: n[3]})
	}
	return m, nil
}

func decodeGameOver(fields []string) (GameOverMsg, error) {
	var m GameOverMsg
	if len(fields) != 3 {
		return m, fmt.Errorf("%w: %s", ErrArity, TypeGameOver)
	}
	id, err := atoi(fields[1])
	if err != nil {
		return m, err
	}
	m.WinnerID = id
	for _, rec := range splitRecords(fields[2]) {
		a := strings.Split(rec, AttrSep)
		if len(a) != 2 {
			return m, fmt.Errorf("%w: ranking entry %q", ErrArity, rec)
		}
		score, err := atoi(a[1])
		if err != nil {
			return m, err
		}
		m.Ranking = append(m.Ranking, RankEntry{Name: a[0], Score: score})
	}
	return m, nil
}

func decodePoints(field, tag string) ([]PointRec, error) {
	var out []PointRec
	for _, rec := range splitRecords(field) {
		a, err := attrs(rec, tag, 3)
		if err != nil {
			return nil, err
		}
		n, err := atois(a[1], a[2])
		if err != nil {
			return nil, err
		}
		out = append(out, PointRec{X: n[0], Y: n[1]})
	}
	return out, nil
}

func splitRecords(field string) []string {
	if field == "" {
		return nil
	}
	return strings.Split(field, RecordSep)
}

func attrs(rec, tag string, n int) ([]string, error) {
	a := strings.Split(rec, AttrSep)
	if len(a) != n {
		return nil, fmt.Errorf("%w: record %q", ErrArity, rec)
	}
	if a[0] != tag {
		return nil, fmt.Errorf("%w: record tag %q, want %q", ErrBadField, a[0], tag)
	}
	return a, nil
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrBadField, s)
	}
	return n, nil
}

func atois(ss ...string) ([]int, error) {
	out := make([]int, len(ss))
	for i, s := range ss {
		n, err := atoi(s)
		if err != nil {
			return nil, err
		}
		out[i] = n
	}
	return out, nil
}
