package model

// Device is a mobile endpoint (a smartphone) owned by one passenger.
type Device struct {
	ID string

	// Location is empty until the device is first placed.
	Location Location

	// Station is the base station the device is attached to for the
	// current tick, or nil.
	Station *BaseStation
}

// NewDevice returns an unplaced, unconnected device.
func NewDevice(id string) *Device {
	return &Device{ID: id}
}

// HasLocation reports whether the device has been placed.
func (d *Device) HasLocation() bool {
	return d.Location != ""
}

// Connect attaches the device to bs. A device holds at most one
// connection: connecting again to the same station is a no-op, and
// connecting elsewhere detaches it from the previous station first.
func (d *Device) Connect(bs *BaseStation) {
	if bs == nil || d.Station == bs {
		return
	}
	d.Disconnect()
	bs.ConnectedDevices = append(bs.ConnectedDevices, d)
	d.Station = bs
}

// Disconnect detaches the device from its current station, if any.
func (d *Device) Disconnect() {
	if d.Station == nil {
		return
	}
	d.Station.remove(d)
	d.Station = nil
}
