package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeElapsed(t *testing.T) {
	now := time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		ago  time.Duration
		want string
	}{
		{"zero", 0, "Just now"},
		{"under a minute", 59 * time.Second, "Just now"},
		{"one minute", 60 * time.Second, "1 minute ago"},
		{"just under two minutes", 119 * time.Second, "1 minute ago"},
		{"minutes", 17 * time.Minute, "17 minutes ago"},
		{"59 minutes", 59*time.Minute + 59*time.Second, "59 minutes ago"},
		{"one hour", 3600 * time.Second, "1 hour ago"},
		{"hours", 5*time.Hour + 10*time.Minute, "5 hours ago"},
		{"23 hours", 23 * time.Hour, "23 hours ago"},
		{"one day", 24 * time.Hour, "More than a day ago"},
		{"25 hours", 90000 * time.Second, "More than a day ago"},
		{"future", -5 * time.Minute, "Just now"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeElapsed(now.Add(-tt.ago), now))
		})
	}
}
