package service

import (
	"context"
	"sort"
	"time"

	"github.com/Dan9191/commission-scheduler/internal/due"
	"github.com/Dan9191/commission-scheduler/internal/models"
)

// Reminders returns the operator reminder feed computed against the current time
func (s *Service) Reminders(ctx context.Context) ([]models.Reminder, error) {
	schedules, err := s.repo.List(ctx, models.ScheduleFilter{})
	if err != nil {
		return nil, err
	}
	return BuildFeed(schedules, s.now()), nil
}

// ReminderSummary counts the current feed per urgency tier and direction
func (s *Service) ReminderSummary(ctx context.Context) (*models.ReminderSummary, error) {
	now := s.now()
	schedules, err := s.repo.List(ctx, models.ScheduleFilter{})
	if err != nil {
		return nil, err
	}
	return Summarize(BuildFeed(schedules, now), now), nil
}

// BuildFeed selects the active schedules that need attention and orders them
// most urgent first. The window is fixed at due.UpcomingDays; ReminderLeadDays is
// carried on each entry but does not gate inclusion.
func BuildFeed(schedules []models.Schedule, now time.Time) []models.Reminder {
	feed := []models.Reminder{}
	for i := range schedules {
		sch := &schedules[i]
		if sch.Status != models.StatusActive {
			continue
		}
		days, urgency := due.Evaluate(sch.NextDue, now)
		if urgency != models.UrgencyOverdue && urgency != models.UrgencyDueSoon && days > due.UpcomingDays {
			continue
		}
		feed = append(feed, models.Reminder{
			ScheduleID:       sch.ID,
			EntityID:         sch.EntityID,
			EntityName:       sch.EntityName,
			EntityType:       sch.EntityType,
			Direction:        sch.Direction(),
			ActionVerb:       sch.EntityType.ActionVerb(),
			NextDue:          sch.NextDue,
			DaysDiff:         days,
			Urgency:          urgency,
			PendingAmount:    sch.PendingAmount,
			ActionOffered:    sch.PendingAmount.GreaterThanOrEqual(sch.MinimumAmount),
			ReminderLeadDays: sch.ReminderLeadDays,
		})
	}

	sort.Slice(feed, func(i, j int) bool {
		if feed[i].DaysDiff != feed[j].DaysDiff {
			return feed[i].DaysDiff < feed[j].DaysDiff
		}
		return feed[i].ScheduleID < feed[j].ScheduleID
	})
	return feed
}

// Summarize counts feed entries per urgency tier and direction
func Summarize(feed []models.Reminder, now time.Time) *models.ReminderSummary {
	summary := &models.ReminderSummary{
		GeneratedAt: now,
		Total:       len(feed),
		ByUrgency: map[models.Urgency]int{
			models.UrgencyOverdue:  0,
			models.UrgencyDueSoon:  0,
			models.UrgencyUpcoming: 0,
		},
	}
	for _, r := range feed {
		summary.ByUrgency[r.Urgency]++
		if r.Direction == models.DirectionPayout {
			summary.Payouts++
		} else {
			summary.Collections++
		}
	}
	return summary
}
