package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/commission-scheduler/internal/models"
)

func scheduleDueIn(id string, entityType models.EntityType, days int) models.Schedule {
	return models.Schedule{
		ID:               id,
		EntityID:         "ent_" + id,
		EntityName:       "Entity " + id,
		EntityType:       entityType,
		Frequency:        models.FrequencyWeekly,
		NextDue:          fixedNow.AddDate(0, 0, days),
		PendingAmount:    decimal.NewFromInt(250),
		Status:           models.StatusActive,
		MinimumAmount:    decimal.NewFromInt(100),
		ReminderLeadDays: 1,
	}
}

func feedDays(feed []models.Reminder) []int {
	days := make([]int, 0, len(feed))
	for _, r := range feed {
		days = append(days, r.DaysDiff)
	}
	return days
}

func TestBuildFeed_OrdersMostUrgentFirst(t *testing.T) {
	schedules := []models.Schedule{
		scheduleDueIn("sch_a", models.EntityPharmacy, 5),
		scheduleDueIn("sch_b", models.EntityVendor, -2),
		scheduleDueIn("sch_c", models.EntityDoctor, 0),
		scheduleDueIn("sch_d", models.EntityDoctor, 9),
	}

	feed := BuildFeed(schedules, fixedNow)
	assert.Equal(t, []int{-2, 0, 5}, feedDays(feed))
	assert.Equal(t, models.UrgencyOverdue, feed[0].Urgency)
	assert.Equal(t, models.UrgencyDueSoon, feed[1].Urgency)
	assert.Equal(t, models.UrgencyUpcoming, feed[2].Urgency)
}

func TestBuildFeed_Boundaries(t *testing.T) {
	schedules := []models.Schedule{
		scheduleDueIn("sch_3", models.EntityPharmacy, 3),
		scheduleDueIn("sch_4", models.EntityPharmacy, 4),
		scheduleDueIn("sch_7", models.EntityPharmacy, 7),
		scheduleDueIn("sch_8", models.EntityPharmacy, 8),
	}

	feed := BuildFeed(schedules, fixedNow)
	require.Len(t, feed, 3)
	assert.Equal(t, models.UrgencyDueSoon, feed[0].Urgency)
	assert.Equal(t, models.UrgencyUpcoming, feed[1].Urgency)
	assert.Equal(t, models.UrgencyUpcoming, feed[2].Urgency)
	for _, r := range feed {
		assert.NotEqual(t, "sch_8", r.ScheduleID)
	}
}

func TestBuildFeed_TiesBrokenByID(t *testing.T) {
	schedules := []models.Schedule{
		scheduleDueIn("sch_z", models.EntityPharmacy, 2),
		scheduleDueIn("sch_a", models.EntityDoctor, 2),
		scheduleDueIn("sch_m", models.EntityVendor, 2),
	}

	feed := BuildFeed(schedules, fixedNow)
	require.Len(t, feed, 3)
	assert.Equal(t, "sch_a", feed[0].ScheduleID)
	assert.Equal(t, "sch_m", feed[1].ScheduleID)
	assert.Equal(t, "sch_z", feed[2].ScheduleID)
}

func TestBuildFeed_SkipsCompleted(t *testing.T) {
	completed := scheduleDueIn("sch_done", models.EntityDoctor, -5)
	completed.Status = models.StatusCompleted
	completed.PendingAmount = decimal.Zero

	feed := BuildFeed([]models.Schedule{completed, scheduleDueIn("sch_open", models.EntityDoctor, 1)}, fixedNow)
	require.Len(t, feed, 1)
	assert.Equal(t, "sch_open", feed[0].ScheduleID)
}

func TestBuildFeed_LeadTimeDoesNotGateFeed(t *testing.T) {
	sch := scheduleDueIn("sch_lead", models.EntityPharmacy, 6)
	sch.ReminderLeadDays = 1

	feed := BuildFeed([]models.Schedule{sch}, fixedNow)
	require.Len(t, feed, 1)
	assert.Equal(t, 1, feed[0].ReminderLeadDays)
}

func TestBuildFeed_DirectionAndAction(t *testing.T) {
	below := scheduleDueIn("sch_v", models.EntityVendor, 1)
	below.PendingAmount = decimal.NewFromInt(40)

	feed := BuildFeed([]models.Schedule{
		scheduleDueIn("sch_d", models.EntityDoctor, 1),
		scheduleDueIn("sch_p", models.EntityPharmacy, 1),
		below,
	}, fixedNow)
	require.Len(t, feed, 3)

	byID := map[string]models.Reminder{}
	for _, r := range feed {
		byID[r.ScheduleID] = r
	}
	assert.Equal(t, models.DirectionPayout, byID["sch_d"].Direction)
	assert.Equal(t, "Pay", byID["sch_d"].ActionVerb)
	assert.Equal(t, models.DirectionCollection, byID["sch_p"].Direction)
	assert.Equal(t, "Collect", byID["sch_p"].ActionVerb)
	assert.Equal(t, models.DirectionCollection, byID["sch_v"].Direction)
	assert.True(t, byID["sch_p"].ActionOffered)
	assert.False(t, byID["sch_v"].ActionOffered)
}

func TestBuildFeed_Empty(t *testing.T) {
	feed := BuildFeed(nil, fixedNow)
	assert.NotNil(t, feed)
	assert.Empty(t, feed)
}

func TestSummarize(t *testing.T) {
	feed := BuildFeed([]models.Schedule{
		scheduleDueIn("sch_1", models.EntityDoctor, -3),
		scheduleDueIn("sch_2", models.EntityPharmacy, -1),
		scheduleDueIn("sch_3", models.EntityVendor, 2),
		scheduleDueIn("sch_4", models.EntityDoctor, 6),
	}, fixedNow)

	summary := Summarize(feed, fixedNow)
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, 2, summary.ByUrgency[models.UrgencyOverdue])
	assert.Equal(t, 1, summary.ByUrgency[models.UrgencyDueSoon])
	assert.Equal(t, 1, summary.ByUrgency[models.UrgencyUpcoming])
	assert.Equal(t, 2, summary.Payouts)
	assert.Equal(t, 2, summary.Collections)
}

func TestReminders_ObservesMutationsImmediately(t *testing.T) {
	svc, _, _ := newTestService(t, clockAt(fixedNow))
	due := fixedNow.AddDate(0, 0, 2)
	sch, err := svc.CreateSchedule(context.Background(), CreateScheduleRequest{
		EntityType: models.EntityDoctor, EntityID: "doc_1", Frequency: models.FrequencyMonthly,
		ReminderLeadDays: 3, NextDue: &due,
	})
	require.NoError(t, err)

	feed, err := svc.Reminders(context.Background())
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, sch.ID, feed[0].ScheduleID)
	assert.Equal(t, 2, feed[0].DaysDiff)

	_, err = svc.ProcessSchedule(context.Background(), sch.ID)
	require.NoError(t, err)

	feed, err = svc.Reminders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, feed)

	summary, err := svc.ReminderSummary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, fixedNow, summary.GeneratedAt)
}

func TestReminders_OverdueAsClockAdvances(t *testing.T) {
	now := fixedNow
	svc, _, _ := newTestService(t, WithClock(func() time.Time { return now }))
	createDoctorSchedule(t, svc)

	feed, err := svc.Reminders(context.Background())
	require.NoError(t, err)
	assert.Empty(t, feed)

	now = fixedNow.AddDate(0, 1, 2)
	feed, err = svc.Reminders(context.Background())
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, -2, feed[0].DaysDiff)
	assert.Equal(t, models.UrgencyOverdue, feed[0].Urgency)
}
