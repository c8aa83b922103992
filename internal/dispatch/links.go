package dispatch

import (
	"fmt"
	"net/url"
)

// LocationLink is a map query URL for the raw coordinates, fixed to six
// decimal places so the same position always yields the same link.
func LocationLink(lat, lng float64) string {
	return fmt.Sprintf("https://www.google.com/maps?q=%.6f,%.6f", lat, lng)
}

// trackingLink embeds the rider id and coordinates in a URL under the
// service's public base. The link carries no credential; whoever holds it can
// read the coordinates. That trade-off is deliberate: emergency contacts
// must be able to open it without an account.
func trackingLink(baseURL, riderID string, lat, lng float64) string {
	return fmt.Sprintf("%s/emergency/track/%s?lat=%.6f&lng=%.6f", baseURL, riderID, lat, lng)
}

// voicePromptURL is the TwiML callback handed to the call provider.
func voicePromptURL(baseURL, riderName, locationLink string) string {
	return fmt.Sprintf("%s/api/emergency/twiml?userName=%s&location=%s",
		baseURL, url.QueryEscape(riderName), url.QueryEscape(locationLink))
}
