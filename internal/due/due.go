// Package due classifies how urgent a schedule is from its next due date.
package due

import (
	"math"
	"time"

	"github.com/Dan9191/commission-scheduler/internal/models"
)

const (
	// DueSoonDays is the last day count still classified as due-soon
	DueSoonDays = 3
	// UpcomingDays is the last day count still classified as upcoming
	UpcomingDays = 7

	day = 24 * time.Hour
)

// DaysUntil returns the calendar-day ceiling of nextDue - now.
// A schedule due in one hour and one due in 23 hours both yield 1.
func DaysUntil(nextDue, now time.Time) int {
	return int(math.Ceil(float64(nextDue.Sub(now)) / float64(day)))
}

// Classify maps a day count to its urgency tier
func Classify(daysDiff int) models.Urgency {
	switch {
	case daysDiff < 0:
		return models.UrgencyOverdue
	case daysDiff <= DueSoonDays:
		return models.UrgencyDueSoon
	case daysDiff <= UpcomingDays:
		return models.UrgencyUpcoming
	default:
		return models.UrgencyNotYetRelevant
	}
}

// Evaluate returns the day count and urgency of a schedule due at nextDue
func Evaluate(nextDue, now time.Time) (int, models.Urgency) {
	d := DaysUntil(nextDue, now)
	return d, Classify(d)
}
