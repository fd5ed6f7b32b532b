package model

import (
	"time"

	"github.com/kilianp07/dronedispatch/core/geo"
)

// MapPoint is a scan sample recorded near a drone during a tick.
type MapPoint struct {
	Position  geo.Point `json:"position"`
	Timestamp time.Time `json:"t"`
}
