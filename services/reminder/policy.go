package reminder

import (
	"time"

	"mindwell/models"
)

// skipReason explains why a (party, channel) pair was not attempted.
type skipReason string

const (
	skipOptedOut        skipReason = "opted_out"
	skipNoContact       skipReason = "no_contact"
	skipChannelDisabled skipReason = "channel_disabled"
	skipQuietHours      skipReason = "quiet_hours"
)

// emailSkip returns the reason email must not be attempted for the party,
// or "" when the send is allowed.
func emailSkip(party *models.Party) skipReason {
	if party.Preferences.OptedOut {
		return skipOptedOut
	}
	if party.Email == "" {
		return skipNoContact
	}
	if !party.Preferences.EmailEnabled {
		return skipChannelDisabled
	}
	return ""
}

// smsSkip returns the reason SMS must not be attempted for the party at the
// given time, or "" when the send is allowed. Quiet hours apply to SMS only
// and may wrap midnight.
func smsSkip(party *models.Party, now time.Time) skipReason {
	if party.Preferences.OptedOut {
		return skipOptedOut
	}
	if party.Phone == "" {
		return skipNoContact
	}
	if !party.Preferences.SMSEnabled {
		return skipChannelDisabled
	}
	minute := now.Hour()*60 + now.Minute()
	if party.Preferences.QuietHours.Contains(minute) {
		return skipQuietHours
	}
	return ""
}
