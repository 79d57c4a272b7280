package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsTerminal(t *testing.T) {
	terminal := []SessionState{SessionCompleted, SessionCancelled, SessionNoShowClient, SessionNoShowTherapist}
	for _, state := range terminal {
		s := Session{State: state}
		assert.True(t, s.IsTerminal(), string(state))
	}

	active := []SessionState{SessionRequested, SessionApproved, SessionPaymentPending, SessionProcessing, SessionFormsRequired, SessionReady, SessionInProgress}
	for _, state := range active {
		s := Session{State: state}
		assert.False(t, s.IsTerminal(), string(state))
	}
}

func TestReminderSent(t *testing.T) {
	now := time.Now()
	s := Session{Reminder24H: ReminderMarker{Sent: true, SentAt: &now}}
	assert.True(t, s.ReminderSent(Reminder24Hour))
	assert.False(t, s.ReminderSent(Reminder1Hour))
}
