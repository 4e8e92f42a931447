package lib

import (
	"tableside_server/structs/tables"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		age     time.Duration
		status  tables.OrderStatus
		tier    UrgencyTier
		alert   bool
		elapsed int64
	}{
		{"four minutes pending", 4 * time.Minute, tables.OrderStatusPending, UrgencyNominal, false, 240},
		{"seven minutes pending", 7 * time.Minute, tables.OrderStatusPending, UrgencyWarning, false, 420},
		{"sixteen minutes preparing", 16 * time.Minute, tables.OrderStatusPreparing, UrgencyLate, true, 960},
		{"sixteen minutes delivered", 16 * time.Minute, tables.OrderStatusDelivered, UrgencyNone, false, 960},
		{"cancelled", 30 * time.Minute, tables.OrderStatusCancelled, UrgencyNone, false, 1800},
		{"exactly five minutes", 5 * time.Minute, tables.OrderStatusReady, UrgencyWarning, false, 300},
		{"exactly fifteen minutes", 15 * time.Minute, tables.OrderStatusReady, UrgencyLate, true, 900},
		{"clock skew", -time.Minute, tables.OrderStatusPending, UrgencyNominal, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := Classify(now.Add(-tt.age), tt.status, now, DefaultUrgencyThresholds)
			assert.Equal(t, tt.tier, u.Tier)
			assert.Equal(t, tt.alert, u.Alert)
			assert.Equal(t, tt.elapsed, u.ElapsedSeconds)
		})
	}
}

func TestClassifyCustomThresholds(t *testing.T) {
	now := time.Now()
	th := UrgencyThresholds{WarningAfter: time.Minute, LateAfter: 2 * time.Minute}

	assert.Equal(t, UrgencyWarning, Classify(now.Add(-90*time.Second), tables.OrderStatusPending, now, th).Tier)
	assert.Equal(t, UrgencyLate, Classify(now.Add(-3*time.Minute), tables.OrderStatusPending, now, th).Tier)
}

func TestLateCount(t *testing.T) {
	views := []Urgency{
		{Tier: UrgencyLate},
		{Tier: UrgencyNominal},
		{Tier: UrgencyLate},
		{Tier: UrgencyNone},
	}
	assert.Equal(t, 2, LateCount(views))
	assert.Equal(t, 0, LateCount(nil))
}
