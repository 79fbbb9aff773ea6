package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz      int `yaml:"tick_rate_hz"`
	BroadcastRateHz int `yaml:"broadcast_rate_hz"`

	ArenaWidth  int `yaml:"arena_width"`
	ArenaHeight int `yaml:"arena_height"`
	WinScore    int `yaml:"win_score"`

	// SnakePenalty is "decrement" (score-1, floored at 0) or "reset" (score=0).
	SnakePenalty string `yaml:"snake_penalty"`

	Players   Players   `yaml:"players"`
	Pickups   Pickups   `yaml:"pickups"`
	Obstacles Obstacles `yaml:"obstacles"`
	Pursuit   Pursuit   `yaml:"pursuit"`
	Session   Session   `yaml:"session"`
}

type Players struct {
	Size      int `yaml:"size"`
	MoveSpeed int `yaml:"move_speed"`
	// Colors and Spawns are indexed by player id; their common length is the
	// arena capacity.
	Colors []string `yaml:"colors"`
	Spawns [][2]int `yaml:"spawns"`

	// Respawn after a pursuit hit: (RespawnX + id*RespawnStepX, RespawnY).
	RespawnX     int `yaml:"respawn_x"`
	RespawnY     int `yaml:"respawn_y"`
	RespawnStepX int `yaml:"respawn_step_x"`
}

type Pickups struct {
	Size     int `yaml:"size"`
	Max      int `yaml:"max"`
	EveryMs  int `yaml:"every_ms"`
	Margin   int `yaml:"margin"`
	Attempts int `yaml:"attempts"`
}

type Obstacles struct {
	Min                 int `yaml:"min"`
	Max                 int `yaml:"max"`
	AttemptsPerObstacle int `yaml:"attempts_per_obstacle"`
	Margin              int `yaml:"margin"`
	MinW                int `yaml:"min_w"`
	MaxW                int `yaml:"max_w"`
	MinH                int `yaml:"min_h"`
	MaxH                int `yaml:"max_h"`
	RegenEveryMs        int `yaml:"regen_every_ms"`
}

type Pursuit struct {
	Length            int `yaml:"length"`
	SegmentSize       int `yaml:"segment_size"`
	MoveEveryTicks    int `yaml:"move_every_ticks"`
	ChaseRadius       int `yaml:"chase_radius"`
	WanderPercent     int `yaml:"wander_percent"`
	RelocateAttempts  int `yaml:"relocate_attempts"`
	RelocateMargin    int `yaml:"relocate_margin"`
	RelocateClearance int `yaml:"relocate_clearance"`
}

type Session struct {
	OutQueue      int `yaml:"out_queue"`
	JoinTimeoutMs int `yaml:"join_timeout_ms"`
}

// MaxPlayers caps the arena capacity.
const MaxPlayers = 4

const (
	PenaltyDecrement = "decrement"
	PenaltyReset     = "reset"
)

func Defaults() Tuning {
	return Tuning{
		TickRateHz:      60,
		BroadcastRateHz: 20,
		ArenaWidth:      1240,
		ArenaHeight:     660,
		WinScore:        15,
		SnakePenalty:    PenaltyDecrement,
		Players: Players{
			Size:         30,
			MoveSpeed:    5,
			Colors:       []string{"Red", "Blue", "Green", "Yellow"},
			Spawns:       [][2]int{{200, 200}, {1040, 200}, {200, 460}, {1040, 460}},
			RespawnX:     520,
			RespawnY:     330,
			RespawnStepX: 50,
		},
		Pickups: Pickups{
			Size:     20,
			Max:      6,
			EveryMs:  4000,
			Margin:   20,
			Attempts: 30,
		},
		Obstacles: Obstacles{
			Min:                 5,
			Max:                 9,
			AttemptsPerObstacle: 40,
			Margin:              40,
			MinW:                60,
			MaxW:                239,
			MinH:                60,
			MaxH:                179,
			RegenEveryMs:        4000,
		},
		Pursuit: Pursuit{
			Length:            20,
			SegmentSize:       20,
			MoveEveryTicks:    3,
			ChaseRadius:       400,
			WanderPercent:     30,
			RelocateAttempts:  50,
			RelocateMargin:    100,
			RelocateClearance: 200,
		},
		Session: Session{
			OutQueue:      16,
			JoinTimeoutMs: 0,
		},
	}
}

// Load reads a tuning file. Keys absent from the file keep their Defaults()
// value; unknown keys and wrong types are rejected by the schema.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := validateSchema(raw); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// LoadOrDefaults is Load, falling back to Defaults() when path does not exist.
func LoadOrDefaults(path string) (Tuning, bool, error) {
	if strings.TrimSpace(path) == "" {
		return Defaults(), false, nil
	}
	t, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Defaults(), false, nil
		}
		return t, false, err
	}
	return t, true, nil
}

func (t Tuning) Validate() error {
	if t.TickRateHz <= 0 || t.BroadcastRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz and broadcast_rate_hz must be > 0")
	}
	if t.BroadcastRateHz >= t.TickRateHz {
		return fmt.Errorf("broadcast_rate_hz (%d) must be below tick_rate_hz (%d)", t.BroadcastRateHz, t.TickRateHz)
	}
	if t.ArenaWidth <= 0 || t.ArenaHeight <= 0 {
		return fmt.Errorf("arena size must be > 0")
	}
	if t.WinScore <= 0 {
		return fmt.Errorf("win_score must be > 0")
	}
	switch t.SnakePenalty {
	case PenaltyDecrement, PenaltyReset:
	default:
		return fmt.Errorf("snake_penalty %q: want %s or %s", t.SnakePenalty, PenaltyDecrement, PenaltyReset)
	}

	p := t.Players
	if p.Size <= 0 || p.MoveSpeed <= 0 {
		return fmt.Errorf("players.size and players.move_speed must be > 0")
	}
	if len(p.Colors) == 0 || len(p.Colors) != len(p.Spawns) {
		return fmt.Errorf("players.colors (%d) and players.spawns (%d) must be non-empty and equal length", len(p.Colors), len(p.Spawns))
	}
	if len(p.Colors) > MaxPlayers {
		return fmt.Errorf("players.colors: %d entries, at most %d players are supported", len(p.Colors), MaxPlayers)
	}
	seen := make(map[string]bool, len(p.Colors))
	for _, c := range p.Colors {
		if c == "" || seen[c] {
			return fmt.Errorf("players.colors: empty or duplicate color %q", c)
		}
		seen[c] = true
	}

	if t.Pickups.Size <= 0 || t.Pickups.EveryMs <= 0 || t.Pickups.Attempts <= 0 {
		return fmt.Errorf("pickups.size, pickups.every_ms and pickups.attempts must be > 0")
	}

	o := t.Obstacles
	if o.Min < 1 || o.Max < o.Min {
		return fmt.Errorf("obstacles: need 1 <= min <= max")
	}
	if o.MinW <= 0 || o.MaxW < o.MinW || o.MinH <= 0 || o.MaxH < o.MinH {
		return fmt.Errorf("obstacles: bad size range")
	}
	if o.RegenEveryMs <= 0 {
		return fmt.Errorf("obstacles.regen_every_ms must be > 0")
	}

	s := t.Pursuit
	if s.Length <= 0 || s.SegmentSize <= 0 || s.MoveEveryTicks <= 0 {
		return fmt.Errorf("pursuit.length, pursuit.segment_size and pursuit.move_every_ticks must be > 0")
	}
	if s.WanderPercent < 0 || s.WanderPercent > 100 {
		return fmt.Errorf("pursuit.wander_percent must be within 0..100")
	}
	if 2*s.RelocateMargin >= t.ArenaWidth || 2*s.RelocateMargin >= t.ArenaHeight {
		return fmt.Errorf("pursuit.relocate_margin too large for the arena")
	}

	if t.Session.OutQueue <= 0 {
		return fmt.Errorf("session.out_queue must be > 0")
	}
	return nil
}

// Capacity is the maximum number of simultaneous players.
func (t Tuning) Capacity() int { return len(t.Players.Colors) }

func (t Tuning) TickInterval() time.Duration {
	return time.Second / time.Duration(t.TickRateHz)
}

func (t Tuning) BroadcastInterval() time.Duration {
	return time.Second / time.Duration(t.BroadcastRateHz)
}
