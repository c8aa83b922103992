package notify

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// VoicePrompt renders the TwiML document spoken when an emergency call
// connects. The call provider fetches it over plain HTTP with the rider name
// and location link as query parameters, so this must stay a pure function
// of its two inputs.
func VoicePrompt(userName, location string) string {
	name := xmlEscape(userName)
	loc := xmlEscape(location)

	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>`+
		`<Response>`+
		`<Say voice="alice">This is an emergency alert from Smart Ride. `+
		`%s has triggered an S O S. Their location is %s. `+
		`Please check on them immediately.</Say>`+
		`<Pause length="2"/>`+
		`<Say>This message will repeat.</Say>`+
		`<Pause length="1"/>`+
		`<Say>%s needs help at %s</Say>`+
		`</Response>`,
		name, loc, name, loc)
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
