// Package view projects the world state into the three read-only tables
// shown every tick.
package view

import (
	"strconv"
	"time"

	"github.com/signalsfoundry/ride-network-sim/kb"
)

// BaseStationRow is one row of the base-station table.
type BaseStationRow struct {
	ID               string `json:"base_station"`
	Location         string `json:"location"`
	ConnectedDevices int    `json:"connected_devices"`
}

// DriverRow is one row of the driver table.
type DriverRow struct {
	Name     string `json:"driver"`
	Location string `json:"location"`
	Status   string `json:"status"`
}

// PassengerRow is one row of the passenger table.
type PassengerRow struct {
	ID          string `json:"passenger"`
	Location    string `json:"location"`
	Destination string `json:"destination"`
}

// Snapshot holds the three tables for one tick, each in registry order.
type Snapshot struct {
	Tick         int              `json:"tick"`
	Time         time.Time        `json:"time"`
	BaseStations []BaseStationRow `json:"base_stations"`
	Drivers      []DriverRow      `json:"drivers"`
	Passengers   []PassengerRow   `json:"passengers"`
}

// Project builds a Snapshot from store. It must run on the goroutine that
// mutates store.
func Project(store *kb.KnowledgeBase, tick int, at time.Time) Snapshot {
	s := Snapshot{Tick: tick, Time: at}

	for _, bs := range store.BaseStations() {
		s.BaseStations = append(s.BaseStations, BaseStationRow{
			ID:               bs.ID,
			Location:         string(bs.Location),
			ConnectedDevices: bs.ConnectedCount(),
		})
	}
	for _, d := range store.Drivers() {
		s.Drivers = append(s.Drivers, DriverRow{
			Name:     d.Name,
			Location: string(d.Location),
			Status:   d.Status(),
		})
	}
	for _, p := range store.Passengers() {
		s.Passengers = append(s.Passengers, PassengerRow{
			ID:          p.ID,
			Location:    string(p.Location()),
			Destination: string(p.Destination),
		})
	}
	return s
}

// Table headers, shared by every renderer.
var (
	BaseStationHeader = []string{"BaseStation", "Location", "Connected Devices"}
	DriverHeader      = []string{"Driver", "Location", "Status"}
	PassengerHeader   = []string{"Passenger", "Location", "Destination"}
)

// BaseStationTable returns the base-station rows as strings, header first.
func (s Snapshot) BaseStationTable() [][]string {
	rows := [][]string{BaseStationHeader}
	for _, r := range s.BaseStations {
		rows = append(rows, []string{r.ID, r.Location, strconv.Itoa(r.ConnectedDevices)})
	}
	return rows
}

// DriverTable returns the driver rows as strings, header first.
func (s Snapshot) DriverTable() [][]string {
	rows := [][]string{DriverHeader}
	for _, r := range s.Drivers {
		rows = append(rows, []string{r.Name, r.Location, r.Status})
	}
	return rows
}

// PassengerTable returns the passenger rows as strings, header first.
func (s Snapshot) PassengerTable() [][]string {
	rows := [][]string{PassengerHeader}
	for _, r := range s.Passengers {
		rows = append(rows, []string{r.ID, r.Location, r.Destination})
	}
	return rows
}
