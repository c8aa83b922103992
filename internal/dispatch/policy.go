package dispatch

import "github.com/smartride/safety-alerts/internal/models"

// ChannelSet is the outcome of the per-contact dispatch policy.
type ChannelSet struct {
	Email bool
	SMS   bool
	Call  bool
}

// ChannelsFor decides which channels to attempt for one contact. The rules
// are evaluated independently per contact and keep no state:
//   - Email when the contact has an e-mail address.
//   - SMS when the phone provider is configured and the contact has a phone.
//   - Voice call only for primary contacts, only for EMERGENCY_CALL alerts,
//     and only when the phone provider is configured.
func ChannelsFor(contact models.EmergencyContact, alert *models.EmergencyAlert, providerConfigured bool) ChannelSet {
	return ChannelSet{
		Email: contact.Email != "",
		SMS:   providerConfigured && contact.Phone != "",
		Call:  providerConfigured && contact.IsPrimary && alert.AlertType == models.AlertTypeEmergencyCall,
	}
}
