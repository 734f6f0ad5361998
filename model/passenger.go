package model

// Passenger owns exactly one device for its lifetime.
type Passenger struct {
	ID          string
	Device      *Device
	Destination Location
}

// NewPassenger binds device to a new passenger.
func NewPassenger(id string, device *Device, destination Location) *Passenger {
	return &Passenger{
		ID:          id,
		Device:      device,
		Destination: destination,
	}
}

// Location is the passenger's current location, i.e. its device's.
func (p *Passenger) Location() Location {
	if p.Device == nil {
		return ""
	}
	return p.Device.Location
}
