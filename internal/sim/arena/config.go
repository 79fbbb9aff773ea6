package arena

import (
	"time"

	"lanarena.io/internal/sim/layout"
	"lanarena.io/internal/sim/pursuit"
	"lanarena.io/internal/sim/tuning"
)

// Penalty is what a pursuit hit does to a player's score.
type Penalty int

const (
	// PenaltyDecrement subtracts one point, never going below zero.
	PenaltyDecrement Penalty = iota
	// PenaltyReset drops the score to zero.
	PenaltyReset
)

type Config struct {
	Width      int
	Height     int
	PlayerSize int
	MoveSpeed  int
	WinScore   int

	PickupSize  int
	MaxPickups  int
	PickupEvery time.Duration
	RegenEvery  time.Duration

	Penalty      Penalty
	RespawnX     int
	RespawnY     int
	RespawnStepX int

	Layout  layout.Config
	Pursuit pursuit.Config
}

func ConfigFromTuning(t tuning.Tuning) Config {
	penalty := PenaltyDecrement
	if t.SnakePenalty == tuning.PenaltyReset {
		penalty = PenaltyReset
	}
	return Config{
		Width:        t.ArenaWidth,
		Height:       t.ArenaHeight,
		PlayerSize:   t.Players.Size,
		MoveSpeed:    t.Players.MoveSpeed,
		WinScore:     t.WinScore,
		PickupSize:   t.Pickups.Size,
		MaxPickups:   t.Pickups.Max,
		PickupEvery:  time.Duration(t.Pickups.EveryMs) * time.Millisecond,
		RegenEvery:   time.Duration(t.Obstacles.RegenEveryMs) * time.Millisecond,
		Penalty:      penalty,
		RespawnX:     t.Players.RespawnX,
		RespawnY:     t.Players.RespawnY,
		RespawnStepX: t.Players.RespawnStepX,
		Layout: layout.Config{
			Width:               t.ArenaWidth,
			Height:              t.ArenaHeight,
			MinObstacles:        t.Obstacles.Min,
			MaxObstacles:        t.Obstacles.Max,
			AttemptsPerObstacle: t.Obstacles.AttemptsPerObstacle,
			ObstacleMargin:      t.Obstacles.Margin,
			ObstacleMinW:        t.Obstacles.MinW,
			ObstacleMaxW:        t.Obstacles.MaxW,
			ObstacleMinH:        t.Obstacles.MinH,
			ObstacleMaxH:        t.Obstacles.MaxH,
			PickupSize:          t.Pickups.Size,
			PickupMargin:        t.Pickups.Margin,
			PickupAttempts:      t.Pickups.Attempts,
			SegmentSize:         t.Pursuit.SegmentSize,
			RelocateAttempts:    t.Pursuit.RelocateAttempts,
			RelocateMargin:      t.Pursuit.RelocateMargin,
			RelocateClearance:   t.Pursuit.RelocateClearance,
		},
		Pursuit: pursuit.Config{
			Length:        t.Pursuit.Length,
			SegmentSize:   t.Pursuit.SegmentSize,
			MoveEvery:     t.Pursuit.MoveEveryTicks,
			ChaseRadius:   t.Pursuit.ChaseRadius,
			WanderPercent: t.Pursuit.WanderPercent,
		},
	}
}

// Clock is the time source for the pickup and obstacle timers.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
