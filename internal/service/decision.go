package service

import (
	"time"

	"github.com/meterwatch/alert-server-go/internal/model"
)

type BindDecision int

const (
	InsertNew BindDecision = iota
	CooldownActive
	SubscriptionActive
)

func (d BindDecision) String() string {
	switch d {
	case InsertNew:
		return "insert_new"
	case CooldownActive:
		return "cooldown_active"
	case SubscriptionActive:
		return "subscription_active"
	default:
		return "unknown"
	}
}

// DecideBind decides whether a new bind may be recorded given the existing
// records for one (email, equipment type), newest first. A pending record with
// a live code wins over any active record.
func DecideBind(records []model.Subscription, now time.Time) BindDecision {
	active := false
	for _, r := range records {
		if r.InCooldown(now) {
			return CooldownActive
		}
		if r.IsActive(now) {
			active = true
		}
	}
	if active {
		return SubscriptionActive
	}
	return InsertNew
}
