package repository

import (
	"context"
	"errors"
	"time"

	"github.com/smartride/safety-alerts/internal/models"
)

// ErrNotFound is returned when a lookup by identifier misses. Callers decide
// whether a miss is fatal (rider, alert) or tolerated (ride).
var ErrNotFound = errors.New("not found")

// Resolution stamps an alert terminal. Applying it to an already-terminal
// alert overwrites the previous stamp; operator corrections are allowed.
type Resolution struct {
	Status     models.AlertStatus
	ResolvedBy string
	ResolvedAt time.Time
}

type AlertRepository interface {
	CreateAlert(ctx context.Context, a *models.EmergencyAlert) error
	GetAlertByID(ctx context.Context, id string) (*models.EmergencyAlert, error)
	ListActiveAlerts(ctx context.Context) ([]models.EmergencyAlert, error)
	ListAlertsSince(ctx context.Context, since time.Time) ([]models.EmergencyAlert, error)
	ResolveAlert(ctx context.Context, id string, res Resolution) error
}

type ContactRepository interface {
	AddContact(ctx context.Context, c *models.EmergencyContact) error
	GetContactByID(ctx context.Context, id string) (*models.EmergencyContact, error)
	ListContactsForRider(ctx context.Context, riderID string) ([]models.EmergencyContact, error)
	UpdateContact(ctx context.Context, c *models.EmergencyContact) error
	DeleteContact(ctx context.Context, id string) error
}

type RiderRepository interface {
	FindRider(ctx context.Context, id string) (*models.Rider, error)
	FindRide(ctx context.Context, id string) (*models.Ride, error)
}
