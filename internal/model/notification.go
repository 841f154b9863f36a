package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type NotificationKind string

const (
	NotifySuccess NotificationKind = "success"
	NotifyWarning NotificationKind = "warning"
	NotifyError   NotificationKind = "error"
)

type Notification struct {
	ID        int64            `json:"id"`
	Kind      NotificationKind `json:"type"`
	Message   string           `json:"message"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Check names a threshold evaluation gated independently of the others.
type Check string

const (
	CheckCategoryLimits Check = "categories"
	CheckGoalDeadlines  Check = "goals"
	CheckProjection     Check = "projection"
)

type AlertTier string

const (
	TierExceeded  AlertTier = "exceeded"
	TierNearLimit AlertTier = "near_limit"
	TierHighUsage AlertTier = "high_usage"
	TierDeadline  AlertTier = "deadline_soon"
	TierMissed    AlertTier = "deadline_missed"
	TierOverspend AlertTier = "overspend"
)

type Alert struct {
	Check     Check            `json:"check"`
	Tier      AlertTier        `json:"tier"`
	Kind      NotificationKind `json:"kind"`
	Subject   string           `json:"subject"`
	Percent   decimal.Decimal  `json:"percent"`
	Overage   decimal.Decimal  `json:"overage"`
	Remaining decimal.Decimal  `json:"remaining"`
	Message   string           `json:"message"`
	At        time.Time        `json:"at"`
}

type PushSubscription struct {
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh"`
	AuthKey    string    `json:"auth"`
	DeviceName string    `json:"deviceName,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
