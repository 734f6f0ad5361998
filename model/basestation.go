package model

// DefaultCapacity is the capacity given to stations built with NewBaseStation.
const DefaultCapacity = 5

// BaseStation is a fixed-location node that co-located devices connect to.
type BaseStation struct {
	ID       string
	Location Location

	// Capacity is the maximum number of devices the station accepts per
	// tick. It is only enforced when the connectivity service is
	// configured to do so; zero or negative means unlimited.
	Capacity int

	// ConnectedDevices is rebuilt every tick; membership is not persistent.
	ConnectedDevices []*Device
}

// NewBaseStation returns a station with DefaultCapacity.
func NewBaseStation(id string, loc Location) *BaseStation {
	return &BaseStation{
		ID:       id,
		Location: loc,
		Capacity: DefaultCapacity,
	}
}

// ConnectedCount returns the number of devices currently attached.
func (bs *BaseStation) ConnectedCount() int {
	return len(bs.ConnectedDevices)
}

// HasCapacity reports whether another device fits under Capacity.
func (bs *BaseStation) HasCapacity() bool {
	if bs.Capacity <= 0 {
		return true
	}
	return len(bs.ConnectedDevices) < bs.Capacity
}

// ClearConnections detaches every device from the station.
func (bs *BaseStation) ClearConnections() {
	for _, d := range bs.ConnectedDevices {
		if d.Station == bs {
			d.Station = nil
		}
	}
	bs.ConnectedDevices = bs.ConnectedDevices[:0]
}

func (bs *BaseStation) remove(d *Device) {
	for i, cur := range bs.ConnectedDevices {
		if cur == d {
			bs.ConnectedDevices = append(bs.ConnectedDevices[:i], bs.ConnectedDevices[i+1:]...)
			return
		}
	}
}
