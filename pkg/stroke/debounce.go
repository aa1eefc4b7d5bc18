package stroke

import "time"

// Debouncer gates accepted edges on a single input channel with a fixed time
// window. The guard is time-since-last-accept over the sampled level: with
// requireRelease false a held input re-triggers each time the window elapses,
// matching the head unit's original level-polling behavior. With
// requireRelease true the level must return to idle between accepts.
type Debouncer struct {
	window         time.Duration
	requireRelease bool

	lastAccept time.Time
	pressed    bool
}

// Accept samples one poll pass. pressed is the already-translated active
// state (low level = pressed). It returns true when the edge qualifies.
func (d *Debouncer) Accept(pressed bool, now time.Time) bool {
	was := d.pressed
	d.pressed = pressed
	if !pressed {
		return false
	}
	if d.requireRelease && was {
		return false
	}
	if !d.lastAccept.IsZero() && now.Sub(d.lastAccept) < d.window {
		return false
	}
	d.lastAccept = now
	return true
}
