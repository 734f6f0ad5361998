package model

// Driver status strings as shown in the driver table.
const (
	DriverStatusAvailable = "Available"
	DriverStatusBusy      = "Busy"
)

// Driver is a mobile actor matched to at most one passenger. The passenger
// is referenced by ID only.
type Driver struct {
	ID        string
	Name      string
	Location  Location
	Available bool

	// PassengerID is empty while the driver is unassigned.
	PassengerID string
}

// NewDriver returns an available driver at loc.
func NewDriver(id, name string, loc Location) *Driver {
	return &Driver{
		ID:        id,
		Name:      name,
		Location:  loc,
		Available: true,
	}
}

// Assign binds the driver to passengerID and takes it out of the pool.
func (d *Driver) Assign(passengerID string) {
	d.PassengerID = passengerID
	d.Available = false
}

// Release returns the driver to the pool.
func (d *Driver) Release() {
	d.PassengerID = ""
	d.Available = true
}

// Busy reports whether a passenger is assigned.
func (d *Driver) Busy() bool {
	return d.PassengerID != ""
}

// Status returns DriverStatusBusy or DriverStatusAvailable.
func (d *Driver) Status() string {
	if d.Busy() {
		return DriverStatusBusy
	}
	return DriverStatusAvailable
}
