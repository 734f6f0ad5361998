package core

import (
	"fmt"

	"github.com/signalsfoundry/ride-network-sim/kb"
	"github.com/signalsfoundry/ride-network-sim/model"
)

// seqRand returns the queued values in order (modulo n) and 0 once drained.
type seqRand struct {
	vals []int
}

func (s *seqRand) Intn(n int) int {
	if len(s.vals) == 0 {
		return 0
	}
	v := s.vals[0]
	s.vals = s.vals[1:]
	return v % n
}

// lastRand always picks the last candidate.
type lastRand struct{}

func (lastRand) Intn(n int) int { return n - 1 }

func addPassengers(store *kb.KnowledgeBase, n int, at model.Location) []*model.Device {
	devices := make([]*model.Device, 0, n)
	for i := range n {
		dev := model.NewDevice(fmt.Sprintf("D-%d", 1000+i))
		dev.Location = at
		store.AddDevice(dev)
		store.AddPassenger(model.NewPassenger(fmt.Sprintf("P-%d", 300+i), dev, ""))
		devices = append(devices, dev)
	}
	return devices
}

func addDrivers(store *kb.KnowledgeBase, n int, at model.Location) {
	for i := range n {
		store.AddDriver(model.NewDriver(fmt.Sprintf("DR-%d", 200+i), fmt.Sprintf("driver-%d", i), at))
	}
}

func totalConnected(store *kb.KnowledgeBase) int {
	total := 0
	for _, bs := range store.BaseStations() {
		total += bs.ConnectedCount()
	}
	return total
}
