package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/commission-scheduler/internal/models"
)

// Summarizer produces the current reminder summary
type Summarizer interface {
	ReminderSummary(ctx context.Context) (*models.ReminderSummary, error)
}

// ReminderAudit periodically logs how many schedules need operator attention.
// It only reads; it never processes or notifies.
type ReminderAudit struct {
	svc     Summarizer
	log     *logrus.Logger
	cron    *cron.Cron
	timeout time.Duration
}

// NewReminderAudit creates an audit job over svc
func NewReminderAudit(svc Summarizer, log *logrus.Logger) *ReminderAudit {
	return &ReminderAudit{
		svc:     svc,
		log:     log,
		cron:    cron.New(),
		timeout: 30 * time.Second,
	}
}

// Start schedules the audit using a cron spec such as "@every 1h" or "0 8 * * *"
func (a *ReminderAudit) Start(spec string) error {
	if _, err := a.cron.AddFunc(spec, a.Run); err != nil {
		return fmt.Errorf("invalid reminder audit schedule %q: %w", spec, err)
	}
	a.cron.Start()
	a.log.Infof("Reminder audit scheduled: %s", spec)
	return nil
}

// Stop halts the scheduler; the returned context is done once a running audit finishes
func (a *ReminderAudit) Stop() context.Context {
	return a.cron.Stop()
}

// Run logs one reminder summary
func (a *ReminderAudit) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	summary, err := a.svc.ReminderSummary(ctx)
	if err != nil {
		a.log.Errorf("Reminder audit failed: %v", err)
		return
	}

	entry := a.log.WithFields(logrus.Fields{
		"total":       summary.Total,
		"overdue":     summary.ByUrgency[models.UrgencyOverdue],
		"due_soon":    summary.ByUrgency[models.UrgencyDueSoon],
		"upcoming":    summary.ByUrgency[models.UrgencyUpcoming],
		"collections": summary.Collections,
		"payouts":     summary.Payouts,
	})
	if summary.ByUrgency[models.UrgencyOverdue] > 0 {
		entry.Warn("Reminder audit: overdue schedules present")
		return
	}
	entry.Info("Reminder audit")
}
