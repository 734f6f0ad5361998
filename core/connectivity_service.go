package core

import (
	"github.com/signalsfoundry/ride-network-sim/kb"
	"github.com/signalsfoundry/ride-network-sim/model"
)

// ConnectivityReport summarises one connectivity pass.
type ConnectivityReport struct {
	// Connected is the number of devices attached to a station.
	Connected int
	// Unconnected counts devices with no co-located station.
	Unconnected int
	// Rejected counts devices whose co-located stations were all full.
	// It is only non-zero when capacity is enforced.
	Rejected int
}

// ConnectivityService rebuilds device-to-station associations by location.
// Membership does not persist across passes: every station is cleared and
// every device reconnects from scratch.
type ConnectivityService struct {
	KB *kb.KnowledgeBase

	// EnforceCapacity makes full stations ineligible. Off by default, in
	// which case BaseStation.Capacity is informational only.
	EnforceCapacity bool

	rand kb.Rand
}

func NewConnectivityService(store *kb.KnowledgeBase, r kb.Rand) *ConnectivityService {
	return &ConnectivityService{
		KB:   store,
		rand: r,
	}
}

// Reset detaches every device from every station.
func (cs *ConnectivityService) Reset() {
	if cs == nil || cs.KB == nil {
		return
	}
	for _, bs := range cs.KB.BaseStations() {
		bs.ClearConnections()
	}
	// A device may still point at a station that is not in the KB.
	for _, d := range cs.KB.Devices() {
		d.Disconnect()
	}
}

// UpdateConnectivity clears all stations and connects each device to a
// station picked uniformly at random among those sharing its location.
// Devices without a candidate stay unconnected.
func (cs *ConnectivityService) UpdateConnectivity() ConnectivityReport {
	cs.Reset()

	var report ConnectivityReport
	for _, d := range cs.KB.Devices() {
		if !d.HasLocation() {
			report.Unconnected++
			continue
		}
		candidates := cs.KB.BaseStationsAt(d.Location)
		if len(candidates) == 0 {
			report.Unconnected++
			continue
		}
		if cs.EnforceCapacity {
			candidates = withCapacity(candidates)
			if len(candidates) == 0 {
				report.Rejected++
				continue
			}
		}
		d.Connect(candidates[cs.rand.Intn(len(candidates))])
		report.Connected++
	}
	return report
}

func withCapacity(stations []*model.BaseStation) []*model.BaseStation {
	res := stations[:0]
	for _, bs := range stations {
		if bs.HasCapacity() {
			res = append(res, bs)
		}
	}
	return res
}
