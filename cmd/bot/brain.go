package main

import (
	"lanarena.io/internal/protocol"
)

const (
	// dangerRadius is the pursuit distance (px) at which the bot stops
	// chasing coins and runs.
	dangerRadius = 90
	deadZone     = 6
)

type brain struct {
	selfID int
	last   string
}

// next returns the flags for this state and whether they differ from the
// last ones sent.
func (b *brain) next(st protocol.StateMsg) (string, bool) {
	flags := b.steer(st)
	if flags == b.last {
		return flags, false
	}
	b.last = flags
	return flags, true
}

func (b *brain) steer(st protocol.StateMsg) string {
	var self *protocol.PlayerRec
	for i := range st.Players {
		if st.Players[i].ID == b.selfID {
			self = &st.Players[i]
			break
		}
	}
	if self == nil {
		return ""
	}

	if seg, d := nearest(self.X, self.Y, st.Segments); d >= 0 && d < dangerRadius*dangerRadius {
		return toward(self.X, self.Y, 2*self.X-seg.X, 2*self.Y-seg.Y)
	}
	if coin, d := nearest(self.X, self.Y, st.Pickups); d >= 0 {
		return toward(self.X, self.Y, coin.X, coin.Y)
	}
	return ""
}

// nearest returns the closest point and its squared distance, or -1 when
// pts is empty.
func nearest(x, y int, pts []protocol.PointRec) (protocol.PointRec, int) {
	best := -1
	var out protocol.PointRec
	for _, p := range pts {
		dx, dy := p.X-x, p.Y-y
		d := dx*dx + dy*dy
		if best < 0 || d < best {
			best = d
			out = p
		}
	}
	return out, best
}

func toward(x, y, tx, ty int) string {
	var up, down, left, right bool
	switch {
	case ty < y-deadZone:
		up = true
	case ty > y+deadZone:
		down = true
	}
	switch {
	case tx < x-deadZone:
		left = true
	case tx > x+deadZone:
		right = true
	}
	return protocol.FormatFlags(up, down, left, right)
}
