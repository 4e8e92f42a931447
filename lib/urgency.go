package lib

import (
	"tableside_server/structs/tables"
	"time"
)

type UrgencyTier string

const (
	UrgencyNone    UrgencyTier = "none"
	UrgencyNominal UrgencyTier = "nominal"
	UrgencyWarning UrgencyTier = "warning"
	UrgencyLate    UrgencyTier = "late"
)

// UrgencyThresholds are the elapsed times at which an open order turns
// warning and late.
type UrgencyThresholds struct {
	WarningAfter time.Duration
	LateAfter    time.Duration
}

// DefaultUrgencyThresholds is 5 minutes to warning, 15 to late.
var DefaultUrgencyThresholds = UrgencyThresholds{
	WarningAfter: 5 * time.Minute,
	LateAfter:    15 * time.Minute,
}

type Urgency struct {
	ElapsedSeconds int64       `json:"elapsed_seconds"`
	Tier           UrgencyTier `json:"tier"`
	Alert          bool        `json:"alert"`
}

// Classify computes the urgency of one order at now. It is pure so every
// surface can recompute it on its own tick without touching the store.
func Classify(createdAt time.Time, status tables.OrderStatus, now time.Time, th UrgencyThresholds) Urgency {
	elapsed := now.Sub(createdAt)
	if elapsed < 0 {
		elapsed = 0
	}

	u := Urgency{ElapsedSeconds: int64(elapsed / time.Second)}
	if status.Terminal() {
		u.Tier = UrgencyNone
		return u
	}

	switch {
	case elapsed >= th.LateAfter:
		u.Tier = UrgencyLate
		u.Alert = true
	case elapsed >= th.WarningAfter:
		u.Tier = UrgencyWarning
	default:
		u.Tier = UrgencyNominal
	}
	return u
}

// LateCount is the number of views currently classified late.
func LateCount(views []Urgency) int {
	n := 0
	for _, v := range views {
		if v.Tier == UrgencyLate {
			n++
		}
	}
	return n
}
