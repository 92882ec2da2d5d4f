package service

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/Dan9191/commission-scheduler/internal/apperror"
	"github.com/Dan9191/commission-scheduler/internal/models"
)

var (
	entityTypes  = []interface{}{models.EntityPharmacy, models.EntityVendor, models.EntityDoctor}
	frequencies  = []interface{}{models.FrequencyWeekly, models.FrequencyBiweekly, models.FrequencyMonthly}
	reminderLead = []interface{}{1, 2, 3, 5, 7}
)

// CreateScheduleRequest carries the operator's choices for a new schedule.
// NextDue defaults to one frequency interval from now.
type CreateScheduleRequest struct {
	EntityType       models.EntityType `json:"entity_type"`
	EntityID         string            `json:"entity_id"`
	Frequency        models.Frequency  `json:"frequency"`
	ReminderLeadDays int               `json:"reminder_lead_days"`
	Notes            string            `json:"notes"`
	NextDue          *time.Time        `json:"next_due,omitempty"`
}

func (r *CreateScheduleRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.EntityType, validation.Required, validation.In(entityTypes...)),
		validation.Field(&r.EntityID, validation.Required),
		validation.Field(&r.Frequency, validation.Required, validation.In(frequencies...)),
		validation.Field(&r.ReminderLeadDays, validation.Required, validation.In(reminderLead...)),
		validation.Field(&r.Notes, validation.Length(0, 2000)),
	)
	if err != nil {
		return apperror.Invalid("%v", err)
	}
	return nil
}

// EditScheduleRequest is a partial update; nil fields are left unchanged
type EditScheduleRequest struct {
	Frequency        *models.Frequency `json:"frequency,omitempty"`
	ReminderLeadDays *int              `json:"reminder_lead_days,omitempty"`
	Notes            *string           `json:"notes,omitempty"`
}

func (r *EditScheduleRequest) Validate() error {
	if r.Frequency == nil && r.ReminderLeadDays == nil && r.Notes == nil {
		return apperror.Invalid("nothing to edit")
	}
	err := validation.ValidateStruct(r,
		validation.Field(&r.Frequency, validation.NilOrNotEmpty, validation.In(frequencies...)),
		validation.Field(&r.ReminderLeadDays, validation.NilOrNotEmpty, validation.In(reminderLead...)),
		validation.Field(&r.Notes, validation.Length(0, 2000)),
	)
	if err != nil {
		return apperror.Invalid("%v", err)
	}
	return nil
}
