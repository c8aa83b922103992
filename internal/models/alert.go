package models

import (
	"fmt"
	"time"
)

type AlertType string

const (
	AlertTypeSOS           AlertType = "SOS"
	AlertTypeEmergencyCall AlertType = "EMERGENCY_CALL"
	AlertTypePanicButton   AlertType = "PANIC_BUTTON"
)

type AlertStatus string

const (
	AlertStatusActive     AlertStatus = "ACTIVE"
	AlertStatusResolved   AlertStatus = "RESOLVED"
	AlertStatusFalseAlarm AlertStatus = "FALSE_ALARM"
)

// ParseAlertType maps a request-supplied string onto the closed set of alert
// types. Unknown values are rejected rather than defaulted; callers that want
// the SOS default must apply it only when the field is absent entirely.
func ParseAlertType(s string) (AlertType, error) {
	switch AlertType(s) {
	case AlertTypeSOS, AlertTypeEmergencyCall, AlertTypePanicButton:
		return AlertType(s), nil
	default:
		return "", fmt.Errorf("unknown alert type %q", s)
	}
}

func (s AlertStatus) Terminal() bool {
	return s == AlertStatusResolved || s == AlertStatusFalseAlarm
}

type EmergencyAlert struct {
	ID             string
	RiderID        string
	RideID         *string // nil when the alert is not ride-associated
	Latitude       float64
	Longitude      float64
	LocationLink   string
	TrackingLink   string
	TrackingExpiry time.Time // creation time + 1h, set once at creation
	AlertType      AlertType
	Status         AlertStatus
	Message        string
	ResolvedAt     *time.Time
	ResolvedBy     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
