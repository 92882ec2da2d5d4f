package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is the recurrence of a schedule
type Frequency string

const (
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
)

// Valid reports whether f is a known frequency
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly:
		return true
	}
	return false
}

// Next returns the first due date after from for this frequency
func (f Frequency) Next(from time.Time) time.Time {
	switch f {
	case FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// ScheduleStatus is the lifecycle state of a schedule
type ScheduleStatus string

const (
	StatusActive    ScheduleStatus = "active"
	StatusCompleted ScheduleStatus = "completed"
)

// ReminderLeadDays are the allowed reminder lead times in days
var ReminderLeadDays = []int{1, 2, 3, 5, 7}

// ValidReminderLead reports whether days is an allowed reminder lead time
func ValidReminderLead(days int) bool {
	for _, d := range ReminderLeadDays {
		if d == days {
			return true
		}
	}
	return false
}

// Schedule is a recurring commitment to collect from, or pay to, one entity.
// EntityName and PendingAmount are snapshots taken at creation and are not refreshed
// from the upstream directory.
type Schedule struct {
	ID               string          `json:"id"`
	EntityID         string          `json:"entity_id"`
	EntityName       string          `json:"entity_name"`
	EntityType       EntityType      `json:"entity_type"`
	Frequency        Frequency       `json:"frequency"`
	NextDue          time.Time       `json:"next_due"`
	PendingAmount    decimal.Decimal `json:"pending_amount"`
	Status           ScheduleStatus  `json:"status"`
	MinimumAmount    decimal.Decimal `json:"minimum_amount"`
	ReminderLeadDays int             `json:"reminder_lead_days"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ProcessedAt      *time.Time      `json:"processed_at,omitempty"`
	Version          int64           `json:"version"`
}

// Direction returns the cash-flow direction of the schedule
func (s *Schedule) Direction() CashFlowDirection {
	return s.EntityType.Direction()
}

// Clone returns a deep copy of s
func (s *Schedule) Clone() *Schedule {
	c := *s
	if s.ProcessedAt != nil {
		t := *s.ProcessedAt
		c.ProcessedAt = &t
	}
	return &c
}

// ScheduleFilter narrows a schedule listing. A zero value matches everything.
type ScheduleFilter struct {
	EntityType EntityType
}

// Matches reports whether s passes the filter
func (f ScheduleFilter) Matches(s *Schedule) bool {
	return f.EntityType == "" || s.EntityType == f.EntityType
}
