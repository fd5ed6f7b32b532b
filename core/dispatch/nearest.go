package dispatch

import (
	"math"

	"github.com/kilianp07/dronedispatch/core/geo"
	"github.com/kilianp07/dronedispatch/core/model"
)

// Nearest returns the eligible drone closest to pos. Ties go to the drone
// that appears first in agents. ok is false when no drone is eligible.
func Nearest(agents []model.Agent, pos geo.Point, minBattery float64) (best model.Agent, dist float64, ok bool) {
	dist = math.Inf(1)
	for _, a := range agents {
		if !a.Eligible(minBattery) {
			continue
		}
		d := geo.Distance(a.Position, pos)
		if d < dist {
			best, dist, ok = a, d, true
		}
	}
	return best, dist, ok
}
