package kb

import "github.com/signalsfoundry/ride-network-sim/model"

// Assignment records one driver/passenger match.
type Assignment struct {
	DriverID    string
	PassengerID string
}

// AssignDrivers walks the passengers in order and gives each one a driver
// picked uniformly at random from the drivers that are still available.
// Once the pool is empty the remaining passengers are skipped silently.
//
// Drivers are never returned to the pool here, so repeated calls exhaust
// it monotonically; see ReleaseDrivers. Passengers that already have a
// driver are not skipped.
func (kb *KnowledgeBase) AssignDrivers(r Rand) []Assignment {
	kb.mu.Lock()
	var (
		made   []Assignment
		events []Event
	)
	for _, p := range kb.passengers {
		pool := kb.availableLocked()
		if len(pool) == 0 {
			continue
		}
		d := pool[r.Intn(len(pool))]
		d.Assign(p.ID)
		made = append(made, Assignment{DriverID: d.ID, PassengerID: p.ID})
		events = append(events, Event{Type: EventDriverAssigned, DriverID: d.ID, PassengerID: p.ID})
	}
	kb.mu.Unlock()

	kb.notify(events)
	return made
}

// ReleaseDrivers returns every busy driver to the pool and reports how
// many were released.
func (kb *KnowledgeBase) ReleaseDrivers() int {
	kb.mu.Lock()
	var events []Event
	for _, d := range kb.drivers {
		if d.Available && !d.Busy() {
			continue
		}
		events = append(events, Event{Type: EventDriverReleased, DriverID: d.ID, PassengerID: d.PassengerID})
		d.Release()
	}
	kb.mu.Unlock()

	kb.notify(events)
	return len(events)
}

// AssignedPassengers returns the set of passenger IDs currently referenced
// by a driver.
func (kb *KnowledgeBase) AssignedPassengers() map[string]bool {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	res := make(map[string]bool)
	for _, d := range kb.drivers {
		if d.PassengerID != "" {
			res[d.PassengerID] = true
		}
	}
	return res
}

// UnassignedPassengers returns the passengers no driver references.
func (kb *KnowledgeBase) UnassignedPassengers() []*model.Passenger {
	assigned := kb.AssignedPassengers()

	kb.mu.RLock()
	defer kb.mu.RUnlock()
	var res []*model.Passenger
	for _, p := range kb.passengers {
		if !assigned[p.ID] {
			res = append(res, p)
		}
	}
	return res
}
