package core

import (
	"github.com/signalsfoundry/ride-network-sim/kb"
	"github.com/signalsfoundry/ride-network-sim/model"
)

// MobilityModel moves passengers and drivers around the location set.
// There is no geometry: every move is a uniform draw.
type MobilityModel struct {
	Locations []model.Location
	rand      kb.Rand
}

// NewMobilityModel constructs a model over locations.
func NewMobilityModel(locations []model.Location, r kb.Rand) *MobilityModel {
	return &MobilityModel{
		Locations: append([]model.Location(nil), locations...),
		rand:      r,
	}
}

// RandomizePassengers places every passenger's device at a random location
// and then draws a destination from the remaining locations, so the
// destination never equals the new location. With a single location there
// is no valid destination and it is cleared.
func (m *MobilityModel) RandomizePassengers(store *kb.KnowledgeBase) {
	for _, p := range store.Passengers() {
		if p.Device == nil {
			continue
		}
		loc, ok := pickLocation(m.rand, m.Locations)
		if !ok {
			return
		}
		p.Device.Location = loc
		p.Destination = m.destinationFrom(loc)
	}
}

// RandomizeDrivers moves every available driver. Busy drivers stay where
// they were dispatched.
func (m *MobilityModel) RandomizeDrivers(store *kb.KnowledgeBase) {
	for _, d := range store.Drivers() {
		if !d.Available {
			continue
		}
		if loc, ok := pickLocation(m.rand, m.Locations); ok {
			d.Location = loc
		}
	}
}

// RandomLocation returns a uniform draw from the location set.
func (m *MobilityModel) RandomLocation() model.Location {
	loc, _ := pickLocation(m.rand, m.Locations)
	return loc
}

func (m *MobilityModel) destinationFrom(current model.Location) model.Location {
	others := make([]model.Location, 0, len(m.Locations))
	for _, l := range m.Locations {
		if l != current {
			others = append(others, l)
		}
	}
	loc, _ := pickLocation(m.rand, others)
	return loc
}
