package dispatch

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/smartride/safety-alerts/internal/models"
)

const emailTimeLayout = "02 Jan 2006, 03:04 PM"
const smsTimeLayout = "02 Jan, 03:04 PM"

var emailTmpl = template.Must(template.New("alert-email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2 style="color: #c0392b;">&#128680; Emergency Alert</h2>
  <p>Dear {{.ContactName}},</p>
  <p><strong>{{.RiderName}}</strong> has triggered an emergency alert and may need your help.</p>
  <table cellpadding="4">
    <tr><td><strong>Time</strong></td><td>{{.AlertTime}}</td></tr>
    <tr><td><strong>Location</strong></td><td><a href="{{.LocationLink}}">{{.Latitude}}, {{.Longitude}}</a></td></tr>
    <tr><td><strong>Live tracking</strong></td><td><a href="{{.TrackingLink}}">{{.TrackingLink}}</a></td></tr>
    <tr><td><strong>Message</strong></td><td>{{.Message}}</td></tr>
  </table>
{{if .HasRide}}
  <h3>Ride details</h3>
  <table cellpadding="4">
    <tr><td><strong>From</strong></td><td>{{.Pickup}}</td></tr>
    <tr><td><strong>To</strong></td><td>{{.Destination}}</td></tr>
    <tr><td><strong>Driver</strong></td><td>{{.DriverName}} ({{.DriverPhone}})</td></tr>
  </table>
{{end}}
  <p>Please reach them directly: <strong>{{.RiderPhone}}</strong></p>
</body>
</html>`))

type emailData struct {
	ContactName  string
	RiderName    string
	RiderPhone   string
	AlertTime    string
	Latitude     string
	Longitude    string
	LocationLink string
	TrackingLink string
	Message      string
	HasRide      bool
	Pickup       string
	Destination  string
	DriverName   string
	DriverPhone  string
}

func renderAlertEmail(rider *models.Rider, contact models.EmergencyContact, alert *models.EmergencyAlert, ride *models.Ride) (string, error) {
	message := alert.Message
	if message == "" {
		message = "Emergency SOS triggered"
	}

	data := emailData{
		ContactName:  contact.Name,
		RiderName:    rider.FullName(),
		RiderPhone:   rider.Phone,
		AlertTime:    alert.CreatedAt.Format(emailTimeLayout),
		Latitude:     fmt.Sprintf("%.6f", alert.Latitude),
		Longitude:    fmt.Sprintf("%.6f", alert.Longitude),
		LocationLink: alert.LocationLink,
		TrackingLink: alert.TrackingLink,
		Message:      message,
	}
	if ride != nil {
		data.HasRide = true
		data.Pickup = ride.Pickup
		data.Destination = ride.Destination
		data.DriverName = ride.DriverName
		data.DriverPhone = ride.DriverPhone
	}

	var b strings.Builder
	if err := emailTmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering alert email: %w", err)
	}
	return b.String(), nil
}

func emailSubject(rider *models.Rider) string {
	return fmt.Sprintf("\U0001F6A8 EMERGENCY ALERT - %s needs help!", rider.FirstName)
}

func renderAlertSMS(rider *models.Rider, alert *models.EmergencyAlert) string {
	return fmt.Sprintf(
		"\U0001F6A8 EMERGENCY ALERT!\n\n%s needs help!\nTime: %s\nLocation: %s\nTrack live: %s\n\nContact them: %s",
		rider.FullName(),
		alert.CreatedAt.Format(smsTimeLayout),
		alert.LocationLink,
		alert.TrackingLink,
		rider.Phone,
	)
}
