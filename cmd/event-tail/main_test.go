package main

import (
	"testing"
	"time"

	"ai-docguard-be/pkg/events"

	"github.com/stretchr/testify/assert"
)

func TestFormatEvent(t *testing.T) {
	event := events.NewSessionEvent(events.TypeSessionRejected, "abc", map[string]interface{}{
		"risk_level": 3,
		"label":      "HIGH",
	})
	event.OccurredAt = time.Date(2024, 5, 1, 12, 30, 0, 0, time.Local)

	line := formatEvent(event)

	assert.Contains(t, line, "12:30:00")
	assert.Contains(t, line, events.TypeSessionRejected)
	assert.Contains(t, line, "abc")
	assert.Contains(t, line, "label=HIGH risk_level=3", "payload keys are sorted")
	assert.NotContains(t, line, "session_id=")
}

func TestRootCmdRequiresNatsURL(t *testing.T) {
	t.Setenv("NATS_URL", "")

	cmd := newRootCmd()
	cmd.SetArgs([]string{})
	err := cmd.Execute()

	assert.ErrorContains(t, err, "no NATS url")
}
