package models

import "time"

// EmergencyContact is a rider-designated person to notify when an alert
// fires. Phone is required; email is optional. More than one contact may be
// flagged primary.
type EmergencyContact struct {
	ID           string
	RiderID      string
	Name         string
	Phone        string
	Email        string
	Relationship string
	IsPrimary    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
