package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Dan9191/commission-scheduler/internal/apperror"
	"github.com/Dan9191/commission-scheduler/internal/models"
)

// ScheduleStore persists schedules. Implementations serialize Update and Delete per id.
type ScheduleStore interface {
	Create(ctx context.Context, schedule *models.Schedule) (string, error)
	Get(ctx context.Context, id string) (*models.Schedule, error)
	// Update loads the schedule, applies mutate to a copy and stores the result.
	// An error returned by mutate aborts the update and is returned unchanged.
	Update(ctx context.Context, id string, mutate func(*models.Schedule) error) (*models.Schedule, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, error)
}

func newScheduleID() string {
	return fmt.Sprintf("sch_%s", uuid.New().String())
}

func validateSchedule(s *models.Schedule) error {
	if s == nil {
		return apperror.Invalid("schedule is required")
	}
	if s.EntityID == "" {
		return apperror.Invalid("entity id is required")
	}
	if !s.EntityType.Valid() {
		return apperror.Invalid("unknown entity type %q", s.EntityType)
	}
	if !s.Frequency.Valid() {
		return apperror.Invalid("unknown frequency %q", s.Frequency)
	}
	if !models.ValidReminderLead(s.ReminderLeadDays) {
		return apperror.Invalid("reminder lead of %d days is not allowed", s.ReminderLeadDays)
	}
	if s.PendingAmount.IsNegative() {
		return apperror.Invalid("pending amount must not be negative")
	}
	if s.NextDue.IsZero() {
		return apperror.Invalid("next due date is required")
	}
	return nil
}
