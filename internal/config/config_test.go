package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("MARKETPLACE_JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress())
	require.Equal(t, "Australia/Canberra", cfg.Timezone)
	require.Equal(t, 2, cfg.QuestionLeadDays)
	require.Equal(t, 18, cfg.ClosingHour)
	require.Equal(t, "marketplace", cfg.EventsChannel)
	require.Equal(t, 30*time.Minute, cfg.DBConnMaxLife)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("MARKETPLACE_JWT_SECRET", "")

	_, err := Load()
	require.EqualError(t, err, "jwt secret must be provided")
}

func TestLoadRejectsClosingHour(t *testing.T) {
	t.Setenv("MARKETPLACE_JWT_SECRET", "secret")
	t.Setenv("MARKETPLACE_POLICY_CLOSING_HOUR", "24")

	_, err := Load()
	require.Error(t, err)
}

func TestPolicyBuildsLockout(t *testing.T) {
	cfg := Config{
		Timezone:         "UTC",
		LockoutStart:     "2024-12-24",
		LockoutEnd:       "2025-01-02",
		QuestionLeadDays: 2,
		ClosingHour:      18,
	}

	pc, err := cfg.Policy()
	require.NoError(t, err)
	require.Equal(t, time.UTC, pc.Loc())
	require.True(t, pc.Lockout.Active())
	require.True(t, pc.Lockout.Contains(time.Date(2024, 12, 31, 12, 0, 0, 0, time.UTC)))
	require.Equal(t, 18, pc.ClosingHour)
	require.True(t, pc.Now.IsZero())
}

func TestPolicyRejectsHalfLockout(t *testing.T) {
	_, err := Config{Timezone: "UTC", LockoutStart: "2024-12-24"}.Policy()
	require.EqualError(t, err, "policy lockout requires both start and end dates")

	_, err = Config{Timezone: "Mars/Olympus"}.Policy()
	require.Error(t, err)
}
