package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/smartride/safety-alerts/internal/models"
	"github.com/smartride/safety-alerts/internal/notify"
	"github.com/smartride/safety-alerts/internal/repository"
)

// TrackingLinkTTL is fixed: every tracking link expires exactly one hour
// after alert creation, set once and never recomputed.
const TrackingLinkTTL = time.Hour

var (
	// ErrInvalidArgument covers malformed trigger input: an unknown alert
	// type or non-finite coordinates.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrDispatchFailed is returned when the alert row itself cannot be
	// persisted. It is the only failure that aborts a trigger.
	ErrDispatchFailed = errors.New("dispatch failed")
)

type TriggerRequest struct {
	RideID    *string
	Latitude  float64
	Longitude float64
	Message   string
	// AlertType is nil when the field was absent from the request, in which
	// case it defaults to SOS. A present-but-unknown value is rejected.
	AlertType *string
}

type TriggerResult struct {
	AlertID        string
	TrackingLink   string
	TrackingExpiry time.Time
	Outcome        notify.Outcome
}

// Dispatcher owns the alert lifecycle: it creates alert records, fans
// notifications out to emergency contacts, and handles operator review.
type Dispatcher struct {
	alerts   repository.AlertRepository
	contacts repository.ContactRepository
	riders   repository.RiderRepository

	email notify.EmailSender
	sms   notify.SMSSender
	voice notify.VoiceCaller

	// phoneConfigured gates the SMS and voice channels; when false they are
	// skipped silently rather than attempted and failed.
	phoneConfigured bool
	baseURL         string
	sendTimeout     time.Duration

	now func() time.Time
}

type Options struct {
	Email           notify.EmailSender
	SMS             notify.SMSSender
	Voice           notify.VoiceCaller
	PhoneConfigured bool
	BaseURL         string
	SendTimeout     time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

func New(alerts repository.AlertRepository, contacts repository.ContactRepository, riders repository.RiderRepository, opts Options) *Dispatcher {
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Dispatcher{
		alerts:          alerts,
		contacts:        contacts,
		riders:          riders,
		email:           opts.Email,
		sms:             opts.SMS,
		voice:           opts.Voice,
		phoneConfigured: opts.PhoneConfigured,
		baseURL:         opts.BaseURL,
		sendTimeout:     opts.SendTimeout,
		now:             opts.Now,
	}
}

// Trigger records a distress signal and notifies the rider's emergency
// contacts. Persisting the alert is the only step allowed to fail the call;
// every delivery failure is logged and folded into the outcome flags.
// Calling Trigger twice creates two alerts and duplicate notifications; for
// a safety system a duplicate beats a missed one.
func (d *Dispatcher) Trigger(ctx context.Context, riderID string, req TriggerRequest) (*TriggerResult, error) {
	if !isFinite(req.Latitude) || !isFinite(req.Longitude) {
		return nil, fmt.Errorf("%w: coordinates must be finite", ErrInvalidArgument)
	}

	alertType := models.AlertTypeSOS
	if req.AlertType != nil {
		t, err := models.ParseAlertType(*req.AlertType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		alertType = t
	}

	rider, err := d.riders.FindRider(ctx, riderID)
	if err != nil {
		return nil, fmt.Errorf("rider %s: %w", riderID, err)
	}

	// A ride reference that does not resolve is tolerated: the alert is
	// created without the association.
	var ride *models.Ride
	var rideID *string
	if req.RideID != nil && *req.RideID != "" {
		r, err := d.riders.FindRide(ctx, *req.RideID)
		switch {
		case err == nil:
			ride = r
			rideID = &r.ID
		case errors.Is(err, repository.ErrNotFound):
			slog.Warn("alert ride not found, continuing without it", "ride_id", *req.RideID)
		default:
			slog.Warn("ride lookup failed, continuing without it", "ride_id", *req.RideID, "error", err)
		}
	}

	now := d.now().UTC()
	alert := &models.EmergencyAlert{
		ID:             uuid.NewString(),
		RiderID:        rider.ID,
		RideID:         rideID,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		LocationLink:   LocationLink(req.Latitude, req.Longitude),
		TrackingLink:   trackingLink(d.baseURL, rider.ID, req.Latitude, req.Longitude),
		TrackingExpiry: now.Add(TrackingLinkTTL),
		AlertType:      alertType,
		Status:         models.AlertStatusActive,
		Message:        req.Message,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := d.alerts.CreateAlert(ctx, alert); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}

	contacts, err := d.contacts.ListContactsForRider(ctx, rider.ID)
	if err != nil {
		// The alert is already durable; a contact listing failure degrades
		// to "nobody reached", same as an empty contact list.
		slog.Error("loading emergency contacts failed", "alert_id", alert.ID, "error", err)
		contacts = nil
	}

	// Sends are fire-and-forget once the alert exists: a caller hanging up
	// must not retract notifications already underway.
	outcome := d.fanOut(context.WithoutCancel(ctx), rider, ride, alert, contacts)

	slog.Info("alert dispatched",
		"alert_id", alert.ID,
		"rider_id", rider.ID,
		"type", alert.AlertType,
		"contacts", len(contacts),
		"email_sent", outcome.EmailSent,
		"sms_sent", outcome.SMSSent,
		"call_initiated", outcome.CallInitiated,
	)

	return &TriggerResult{
		AlertID:        alert.ID,
		TrackingLink:   alert.TrackingLink,
		TrackingExpiry: alert.TrackingExpiry,
		Outcome:        outcome,
	}, nil
}

// fanOut notifies every contact in parallel. Each contact is an independent
// unit of work producing its own outcome; the results are OR-merged after
// all goroutines have finished, so no shared flags are mutated concurrently.
func (d *Dispatcher) fanOut(ctx context.Context, rider *models.Rider, ride *models.Ride, alert *models.EmergencyAlert, contacts []models.EmergencyContact) notify.Outcome {
	if len(contacts) == 0 {
		return notify.Outcome{}
	}

	results := make(chan notify.Outcome, len(contacts))
	var wg sync.WaitGroup
	for _, contact := range contacts {
		wg.Add(1)
		go func(contact models.EmergencyContact) {
			defer wg.Done()
			results <- d.notifyContact(ctx, rider, ride, alert, contact)
		}(contact)
	}
	wg.Wait()
	close(results)

	var outcome notify.Outcome
	for r := range results {
		outcome = outcome.Merge(r)
	}
	return outcome
}

// notifyContact attempts every eligible channel for one contact. Failures
// are logged and swallowed: one contact's dead inbox must not silence the
// rest of the fan-out.
func (d *Dispatcher) notifyContact(ctx context.Context, rider *models.Rider, ride *models.Ride, alert *models.EmergencyAlert, contact models.EmergencyContact) notify.Outcome {
	var out notify.Outcome
	channels := ChannelsFor(contact, alert, d.phoneConfigured)

	if channels.Email {
		err := d.withSendTimeout(ctx, func(ctx context.Context) error {
			body, err := renderAlertEmail(rider, contact, alert, ride)
			if err != nil {
				return err
			}
			return d.email.Send(ctx, contact.Email, emailSubject(rider), body)
		})
		if err != nil {
			slog.Error("emergency email failed", "alert_id", alert.ID, "contact_id", contact.ID, "error", err)
		} else {
			out.EmailSent = true
			slog.Info("emergency email sent", "alert_id", alert.ID, "contact_id", contact.ID)
		}
	}

	if channels.SMS {
		err := d.withSendTimeout(ctx, func(ctx context.Context) error {
			return d.sms.Send(ctx, contact.Phone, renderAlertSMS(rider, alert))
		})
		if err != nil {
			slog.Error("emergency SMS failed", "alert_id", alert.ID, "contact_id", contact.ID, "error", err)
		} else {
			out.SMSSent = true
			slog.Info("emergency SMS sent", "alert_id", alert.ID, "contact_id", contact.ID)
		}
	}

	if channels.Call {
		promptURL := voicePromptURL(d.baseURL, rider.FirstName, alert.LocationLink)
		err := d.withSendTimeout(ctx, func(ctx context.Context) error {
			return d.voice.Call(ctx, contact.Phone, promptURL)
		})
		if err != nil {
			slog.Error("emergency call failed", "alert_id", alert.ID, "contact_id", contact.ID, "error", err)
		} else {
			out.CallInitiated = true
			slog.Info("emergency call initiated", "alert_id", alert.ID, "contact_id", contact.ID)
		}
	}

	return out
}

func (d *Dispatcher) withSendTimeout(ctx context.Context, fn func(context.Context) error) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()
	return fn(sendCtx)
}

// ActiveAlerts lists every alert still in ACTIVE status.
func (d *Dispatcher) ActiveAlerts(ctx context.Context) ([]models.EmergencyAlert, error) {
	return d.alerts.ListActiveAlerts(ctx)
}

// RecentAlerts lists alerts of any status created within the last
// windowHours hours, inclusive.
func (d *Dispatcher) RecentAlerts(ctx context.Context, windowHours int) ([]models.EmergencyAlert, error) {
	since := d.now().UTC().Add(-time.Duration(windowHours) * time.Hour)
	return d.alerts.ListAlertsSince(ctx, since)
}

// Resolve marks an alert RESOLVED and stamps the resolving operator.
// Resolving an already-terminal alert overwrites the previous stamp; the
// store does not guard against operator corrections.
func (d *Dispatcher) Resolve(ctx context.Context, alertID, operatorID string) error {
	err := d.alerts.ResolveAlert(ctx, alertID, repository.Resolution{
		Status:     models.AlertStatusResolved,
		ResolvedBy: operatorID,
		ResolvedAt: d.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("alert %s: %w", alertID, err)
	}
	slog.Info("alert resolved", "alert_id", alertID, "operator_id", operatorID)
	return nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
