package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DISPATCH_STORE", "")
	t.Setenv("DISPATCH_FANOUT_LIMIT", "")
	t.Setenv("TRIAGE_SPEECH_ENABLED", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StorePostgres, cfg.Dispatch.Store)
	assert.Equal(t, 5, cfg.Dispatch.FanoutLimit)
	assert.Equal(t, 2*time.Hour, cfg.Dispatch.SessionTTL)
	assert.False(t, cfg.Triage.SpeechEnabled)
	assert.Equal(t, "30-M", cfg.Triage.RateLimit)
}

func TestLoad_DispatchOverrides(t *testing.T) {
	t.Setenv("DISPATCH_STORE", "memory")
	t.Setenv("DISPATCH_FANOUT_LIMIT", "3")
	t.Setenv("DISPATCH_SESSION_TTL", "15m")
	t.Setenv("TRIAGE_SPEECH_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Dispatch.Store)
	assert.Equal(t, 3, cfg.Dispatch.FanoutLimit)
	assert.Equal(t, 15*time.Minute, cfg.Dispatch.SessionTTL)
	assert.True(t, cfg.Triage.SpeechEnabled)
}

func TestLoad_RejectsUnknownStore(t *testing.T) {
	t.Setenv("DISPATCH_STORE", "sqlite")

	_, err := Load()
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	c := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=d sslmode=disable", c.DatabaseDSN())
}

func TestLoad_RejectsUnknownFeed(t *testing.T) {
	t.Setenv("DISPATCH_STORE", "memory")
	t.Setenv("DISPATCH_FEED", "kafka")

	_, err := Load()
	assert.Error(t, err)
}

func TestNotifyConfig_Enabled(t *testing.T) {
	t.Setenv("WHATSAPP_ACCESS_TOKEN", "token")
	t.Setenv("WHATSAPP_PHONE_NUMBER_ID", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.Notify.Enabled())

	cfg.Notify.WhatsAppPhoneNumberID = "1234"
	assert.True(t, cfg.Notify.Enabled())
	assert.Equal(t, "en", cfg.Notify.WhatsAppLanguage)
}
