package core

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/signalsfoundry/ride-network-sim/kb"
	"github.com/signalsfoundry/ride-network-sim/model"
)

func TestDefaultScenario(t *testing.T) {
	store := kb.NewKnowledgeBase()
	sc := DefaultScenario(store, NewRand(3))

	want := kb.Counts{BaseStations: 5, Devices: 10, Passengers: 10, Drivers: 5}
	if diff := cmp.Diff(want, store.Counts()); diff != "" {
		t.Fatalf("counts mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(model.DefaultLocations, sc.Locations); diff != "" {
		t.Fatalf("locations mismatch (-want +got):\n%s", diff)
	}

	stations := store.BaseStations()
	for i, bs := range stations {
		if bs.Location != model.DefaultLocations[i] || bs.Capacity != model.DefaultCapacity {
			t.Fatalf("station %d = %+v", i, bs)
		}
	}
	if stations[0].ID != "BS-001" || stations[4].ID != "BS-005" {
		t.Fatalf("station IDs = %s..%s, want BS-001..BS-005", stations[0].ID, stations[4].ID)
	}

	passengers := store.Passengers()
	if passengers[0].ID != "P-300" || passengers[0].Device.ID != "D-1000" || passengers[9].ID != "P-309" {
		t.Fatalf("passenger seed mismatch: first=%s/%s last=%s", passengers[0].ID, passengers[0].Device.ID, passengers[9].ID)
	}
	for _, p := range passengers {
		if p.Device.HasLocation() {
			t.Fatalf("passenger %s device placed before first tick", p.ID)
		}
	}

	var names []string
	for _, d := range store.Drivers() {
		if !d.Available {
			t.Fatalf("driver %s starts unavailable", d.ID)
		}
		names = append(names, d.Name)
	}
	if diff := cmp.Diff(DefaultDriverNames, names); diff != "" {
		t.Fatalf("driver names mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadScenarioFromConfigFile(t *testing.T) {
	f, err := os.Open("../configs/default_scenario.json")
	if err != nil {
		t.Fatalf("open scenario: %v", err)
	}
	defer f.Close()

	store := kb.NewKnowledgeBase()
	sc, err := LoadScenario(store, f, NewRand(1))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if sc.BaseStations != 5 || sc.Devices != 10 || sc.Passengers != 10 || sc.Drivers != 5 {
		t.Fatalf("scenario = %+v", sc)
	}
	for _, p := range store.Passengers() {
		if p.Destination == "" {
			t.Fatalf("passenger %s has no destination", p.ID)
		}
	}
	for _, d := range store.Drivers() {
		if !model.ContainsLocation(sc.Locations, d.Location) {
			t.Fatalf("driver %s at %q outside location set", d.ID, d.Location)
		}
	}
}

func TestLoadScenarioCapacityOverride(t *testing.T) {
	const payload = `{
		"locations": ["A"],
		"base_stations": [{"id": "BS-1", "location": "A", "capacity": 0}, {"id": "BS-2", "location": "A"}]
	}`
	store := kb.NewKnowledgeBase()
	if _, err := LoadScenario(store, strings.NewReader(payload), NewRand(1)); err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	stations := store.BaseStations()
	if stations[0].Capacity != 0 || stations[1].Capacity != model.DefaultCapacity {
		t.Fatalf("capacities = [%d %d], want [0 %d]", stations[0].Capacity, stations[1].Capacity, model.DefaultCapacity)
	}
}

func TestLoadScenarioErrors(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantErr error
	}{
		{
			name:    "no locations",
			payload: `{"locations": []}`,
			wantErr: ErrEmptyLocations,
		},
		{
			name:    "station outside location set",
			payload: `{"locations": ["A"], "base_stations": [{"id": "BS-1", "location": "B"}]}`,
			wantErr: ErrUnknownLocation,
		},
		{
			name:    "passenger without device",
			payload: `{"locations": ["A"], "passengers": [{"id": "P-1", "device_id": "D-1"}]}`,
			wantErr: ErrUnknownDevice,
		},
		{
			name: "shared device",
			payload: `{"locations": ["A"], "devices": [{"id": "D-1"}],
				"passengers": [{"id": "P-1", "device_id": "D-1"}, {"id": "P-2", "device_id": "D-1"}]}`,
			wantErr: ErrDeviceOwned,
		},
		{
			name:    "driver outside location set",
			payload: `{"locations": ["A"], "drivers": [{"id": "DR-1", "name": "x", "location": "Q"}]}`,
			wantErr: ErrUnknownLocation,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := kb.NewKnowledgeBase()
			_, err := LoadScenario(store, strings.NewReader(tc.payload), NewRand(1))
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("LoadScenario error = %v, want %v", err, tc.wantErr)
			}
			if got := store.Counts(); got != (kb.Counts{}) {
				t.Fatalf("store modified on error: %+v", got)
			}
		})
	}
}

func TestLoadScenarioRejectsMalformedJSON(t *testing.T) {
	if _, err := LoadScenario(kb.NewKnowledgeBase(), strings.NewReader(`{"locations":`), NewRand(1)); err == nil {
		t.Fatalf("expected decode error")
	}
	if _, err := LoadScenario(kb.NewKnowledgeBase(), strings.NewReader(`{"locations":["A"],"bogus":1}`), NewRand(1)); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if _, err := LoadScenario(nil, strings.NewReader(`{}`), NewRand(1)); err == nil {
		t.Fatalf("expected error for nil kb")
	}
}
