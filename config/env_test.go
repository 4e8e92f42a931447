package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetEnvAsTimeDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"duration string", "10s", 10 * time.Second},
		{"compound duration", "1m30s", 90 * time.Second},
		{"bare seconds", "45", 45 * time.Second},
		{"garbage falls back", "soon", time.Minute},
		{"blank falls back", "   ", time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_DURATION", tt.value)
			assert.Equal(t, tt.want, getEnvAsTimeDuration("TEST_DURATION", time.Minute))
		})
	}
}

func TestGetEnvAsSlice(t *testing.T) {
	t.Setenv("TEST_SLICE", " a, b ,,c ")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvAsSlice("TEST_SLICE", nil))

	assert.Equal(t, []string{"x"}, getEnvAsSlice("TEST_SLICE_MISSING", []string{"x"}))
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, 30*time.Second, cfg.Ordering.SubmissionCooldown)
	assert.Equal(t, 15, cfg.Ordering.TableNumberMaxLength)
	assert.Equal(t, 10*time.Second, cfg.Realtime.KitchenPollInterval)
	assert.Equal(t, time.Second, cfg.Realtime.TickInterval)
	assert.Equal(t, 5*time.Minute, cfg.Urgency.WarningAfter)
	assert.Equal(t, 15*time.Minute, cfg.Urgency.LateAfter)
	assert.Equal(t, "memory", cfg.Bus.Driver)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ORDER_SUBMISSION_COOLDOWN", "5s")
	t.Setenv("BUS_DRIVER", "redis")
	t.Setenv("DB_AUTO_MIGRATE", "true")

	cfg := Load()

	assert.Equal(t, 5*time.Second, cfg.Ordering.SubmissionCooldown)
	assert.Equal(t, "redis", cfg.Bus.Driver)
	assert.True(t, cfg.Database.AutoMigrate)
}

func TestValidateProductionManagerSettings(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("MANAGER_OVERRIDE_SECRET", "")
	t.Setenv("MANAGER_PIN_HASH", "")

	err := Validate(Load())
	assert.ErrorContains(t, err, "MANAGER_OVERRIDE_SECRET")
	assert.ErrorContains(t, err, "MANAGER_PIN_HASH")

	t.Setenv("MANAGER_OVERRIDE_SECRET", "s3cr3t-from-vault")
	t.Setenv("MANAGER_PIN_HASH", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA")
	assert.NoError(t, Validate(Load()))
}

func TestValidateAllowsDefaultsOutsideProduction(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	assert.NoError(t, Validate(Load()))
}
