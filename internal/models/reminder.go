package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Urgency is the tier derived from days until a schedule is due
type Urgency string

const (
	UrgencyOverdue        Urgency = "overdue"
	UrgencyDueSoon        Urgency = "due-soon"
	UrgencyUpcoming       Urgency = "upcoming"
	UrgencyNotYetRelevant Urgency = "not-yet-relevant"
)

// Reminder is one entry of the operator reminder feed
type Reminder struct {
	ScheduleID       string            `json:"schedule_id"`
	EntityID         string            `json:"entity_id"`
	EntityName       string            `json:"entity_name"`
	EntityType       EntityType        `json:"entity_type"`
	Direction        CashFlowDirection `json:"direction"`
	ActionVerb       string            `json:"action_verb"`
	NextDue          time.Time         `json:"next_due"`
	DaysDiff         int               `json:"days_diff"`
	Urgency          Urgency           `json:"urgency"`
	PendingAmount    decimal.Decimal   `json:"pending_amount"`
	ActionOffered    bool              `json:"action_offered"`
	ReminderLeadDays int               `json:"reminder_lead_days"`
}

// ReminderSummary counts feed entries per urgency tier
type ReminderSummary struct {
	GeneratedAt time.Time       `json:"generated_at"`
	Total       int             `json:"total"`
	ByUrgency   map[Urgency]int `json:"by_urgency"`
	Collections int             `json:"collections"`
	Payouts     int             `json:"payouts"`
}
