package models

// PartyRole distinguishes the two participants of a session.
type PartyRole string

const (
	PartyClient    PartyRole = "client"
	PartyTherapist PartyRole = "therapist"
)

// QuietHours is a daily window, in minutes from midnight, during which SMS
// must not be sent. The window may wrap past midnight (Start > End).
type QuietHours struct {
	Enabled bool `bson:"enabled" json:"enabled"`
	Start   int  `bson:"start" json:"start"` // minutes from midnight
	End     int  `bson:"end" json:"end"`     // minutes from midnight
}

// Contains reports whether the given minute-of-day falls inside the window.
func (q QuietHours) Contains(minute int) bool {
	if !q.Enabled {
		return false
	}
	if q.Start <= q.End {
		return minute >= q.Start && minute < q.End
	}
	// Wraps midnight, e.g. 22:00 - 07:00.
	return minute >= q.Start || minute < q.End
}

// NotificationPreferences controls which reminder channels a party accepts.
type NotificationPreferences struct {
	OptedOut     bool       `bson:"opted_out" json:"optedOut"`
	EmailEnabled bool       `bson:"email_enabled" json:"emailEnabled"`
	SMSEnabled   bool       `bson:"sms_enabled" json:"smsEnabled"`
	QuietHours   QuietHours `bson:"quiet_hours" json:"quietHours"`
}

// Party is a session participant with its contact surface.
type Party struct {
	ID          string                  `bson:"id" json:"id"`
	Role        PartyRole               `bson:"role" json:"role"`
	Name        string                  `bson:"name" json:"name"`
	Email       string                  `bson:"email,omitempty" json:"email,omitempty"`
	Phone       string                  `bson:"phone,omitempty" json:"phone,omitempty"`
	Preferences NotificationPreferences `bson:"preferences" json:"preferences"`
}
