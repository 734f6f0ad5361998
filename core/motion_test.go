package core

import (
	"testing"

	"github.com/signalsfoundry/ride-network-sim/kb"
	"github.com/signalsfoundry/ride-network-sim/model"
)

func TestRandomizePassengersDestinationDiffersFromLocation(t *testing.T) {
	store := kb.NewKnowledgeBase()
	r := NewRand(1)
	DefaultScenario(store, r)
	m := NewMobilityModel(model.DefaultLocations, r)

	for tick := range 200 {
		m.RandomizePassengers(store)
		for _, p := range store.Passengers() {
			if !model.ContainsLocation(model.DefaultLocations, p.Location()) {
				t.Fatalf("tick %d: passenger %s at unknown location %q", tick, p.ID, p.Location())
			}
			if p.Destination == p.Location() {
				t.Fatalf("tick %d: passenger %s destination == location %q", tick, p.ID, p.Destination)
			}
			if !model.ContainsLocation(model.DefaultLocations, p.Destination) {
				t.Fatalf("tick %d: passenger %s destination %q unknown", tick, p.ID, p.Destination)
			}
		}
	}
}

func TestRandomizePassengersDrawsDestinationFromRemaining(t *testing.T) {
	store := kb.NewKnowledgeBase()
	addPassengers(store, 1, "")
	// location index 1 (B), then destination index 1 of [A C] (C).
	m := NewMobilityModel([]model.Location{"A", "B", "C"}, &seqRand{vals: []int{1, 1}})

	m.RandomizePassengers(store)

	p := store.Passengers()[0]
	if p.Location() != "B" || p.Destination != "C" {
		t.Fatalf("location=%q destination=%q, want B and C", p.Location(), p.Destination)
	}
}

func TestRandomizePassengersSingleLocation(t *testing.T) {
	store := kb.NewKnowledgeBase()
	addPassengers(store, 2, "")
	m := NewMobilityModel([]model.Location{"A"}, NewRand(1))

	m.RandomizePassengers(store)

	for _, p := range store.Passengers() {
		if p.Location() != "A" {
			t.Fatalf("passenger %s location = %q, want A", p.ID, p.Location())
		}
		if p.Destination != "" {
			t.Fatalf("passenger %s destination = %q, want empty", p.ID, p.Destination)
		}
	}
}

func TestRandomizePassengersNoLocationsIsNoop(t *testing.T) {
	store := kb.NewKnowledgeBase()
	devices := addPassengers(store, 1, "A")
	NewMobilityModel(nil, NewRand(1)).RandomizePassengers(store)
	if devices[0].Location != "A" {
		t.Fatalf("device moved with an empty location set: %q", devices[0].Location)
	}
}

func TestRandomizeDriversMovesOnlyAvailable(t *testing.T) {
	store := kb.NewKnowledgeBase()
	addDrivers(store, 2, "A")
	busy := store.Drivers()[0]
	busy.Assign("P-300")

	m := NewMobilityModel([]model.Location{"A", "B"}, lastRand{})
	m.RandomizeDrivers(store)

	if busy.Location != "A" {
		t.Fatalf("busy driver moved to %q, want A", busy.Location)
	}
	if free := store.Drivers()[1]; free.Location != "B" {
		t.Fatalf("available driver location = %q, want B", free.Location)
	}
}
