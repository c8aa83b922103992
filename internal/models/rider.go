package models

// Rider is the account on whose behalf alerts are triggered. Accounts are
// managed elsewhere; the alerting service only reads them.
type Rider struct {
	ID        string
	FirstName string
	LastName  string
	Phone     string
	Email     string
}

func (r *Rider) FullName() string {
	if r.LastName == "" {
		return r.FirstName
	}
	return r.FirstName + " " + r.LastName
}

// Ride carries the trip details included in notifications when an alert is
// associated with an in-progress ride.
type Ride struct {
	ID          string
	RiderID     string
	DriverName  string
	DriverPhone string
	Pickup      string
	Destination string
}
