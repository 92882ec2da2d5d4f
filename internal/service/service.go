package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/commission-scheduler/internal/apperror"
	"github.com/Dan9191/commission-scheduler/internal/config"
	"github.com/Dan9191/commission-scheduler/internal/integrations/directory"
	"github.com/Dan9191/commission-scheduler/internal/lock"
	"github.com/Dan9191/commission-scheduler/internal/models"
	"github.com/Dan9191/commission-scheduler/internal/repository"
)

// Directory resolves the entities a schedule can be created for
type Directory interface {
	ListCandidates(ctx context.Context, entityType models.EntityType) ([]models.Entity, error)
	ListAllCandidates(ctx context.Context) directory.CandidateSet
}

// Locker serializes commands on one schedule across processes
type Locker interface {
	Acquire(ctx context.Context, key string) (func(), error)
}

// Clock returns the current time
type Clock func() time.Time

// Option configures a Service
type Option func(*Service)

// WithLocker makes every mutation hold the per-schedule lock from l
func WithLocker(l Locker) Option {
	return func(s *Service) { s.locker = l }
}

// WithClock replaces the wall clock
func WithClock(c Clock) Option {
	return func(s *Service) { s.now = c }
}

// Service is the only writer of schedules. It owns the active -> completed lifecycle
// and serves the read-only reminder feed.
type Service struct {
	repo          repository.ScheduleStore
	directory     Directory
	locker        Locker
	log           *logrus.Logger
	minimumAmount decimal.Decimal
	now           Clock
}

// NewService initializes a new service
func NewService(repo repository.ScheduleStore, dir Directory, log *logrus.Logger, cfg *config.Config, opts ...Option) *Service {
	s := &Service{
		repo:          repo,
		directory:     dir,
		log:           log,
		minimumAmount: cfg.MinimumAmount,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListCandidates returns the entities of one type a schedule can be created for
func (s *Service) ListCandidates(ctx context.Context, entityType models.EntityType) ([]models.Entity, error) {
	return s.directory.ListCandidates(ctx, entityType)
}

// ListAllCandidates resolves every entity type, reporting failed types separately
func (s *Service) ListAllCandidates(ctx context.Context) directory.CandidateSet {
	return s.directory.ListAllCandidates(ctx)
}

// CreateSchedule resolves the entity, snapshots its name and pending amount and
// stores a new active schedule
func (s *Service) CreateSchedule(ctx context.Context, req CreateScheduleRequest) (*models.Schedule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	entity, err := s.resolveEntity(ctx, req.EntityType, req.EntityID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	nextDue := req.Frequency.Next(now)
	if req.NextDue != nil {
		nextDue = *req.NextDue
	}

	schedule := &models.Schedule{
		EntityID:         entity.ID,
		EntityName:       entity.Name,
		EntityType:       req.EntityType,
		Frequency:        req.Frequency,
		NextDue:          nextDue,
		PendingAmount:    entity.PendingAmount,
		Status:           models.StatusActive,
		MinimumAmount:    s.minimumAmount,
		ReminderLeadDays: req.ReminderLeadDays,
		Notes:            req.Notes,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	id, err := s.repo.Create(ctx, schedule)
	if err != nil {
		return nil, err
	}
	schedule.ID = id
	schedule.Version = 1

	s.log.Infof("Schedule %s created: %s %s %s (%s pending)",
		id, schedule.Frequency, schedule.Direction(), entity.Name, schedule.PendingAmount.StringFixed(2))
	return schedule, nil
}

// GetSchedule returns one schedule
func (s *Service) GetSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	return s.repo.Get(ctx, id)
}

// ListSchedules returns schedules matching filter in insertion order
func (s *Service) ListSchedules(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, error) {
	if filter.EntityType != "" && !filter.EntityType.Valid() {
		return nil, apperror.Invalid("unknown entity type %q", filter.EntityType)
	}
	return s.repo.List(ctx, filter)
}

// EditSchedule changes frequency, reminder lead or notes of an active schedule.
// The next due date is left as it is.
func (s *Service) EditSchedule(ctx context.Context, id string, req EditScheduleRequest) (*models.Schedule, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	release, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	updated, err := s.repo.Update(ctx, id, func(sch *models.Schedule) error {
		if sch.Status != models.StatusActive {
			return fmt.Errorf("edit %s: %w: schedule is %s", id, apperror.ErrInvalidTransition, sch.Status)
		}
		if req.Frequency != nil {
			sch.Frequency = *req.Frequency
		}
		if req.ReminderLeadDays != nil {
			sch.ReminderLeadDays = *req.ReminderLeadDays
		}
		if req.Notes != nil {
			sch.Notes = *req.Notes
		}
		sch.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Schedule %s edited", id)
	return updated, nil
}

// ProcessSchedule records the collection or payout of an active schedule.
// The schedule becomes completed with nothing pending; this is terminal.
func (s *Service) ProcessSchedule(ctx context.Context, id string) (*models.Schedule, error) {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.now()
	var settled decimal.Decimal
	updated, err := s.repo.Update(ctx, id, func(sch *models.Schedule) error {
		if sch.Status != models.StatusActive {
			return fmt.Errorf("process %s: %w: schedule is %s", id, apperror.ErrInvalidTransition, sch.Status)
		}
		if !sch.PendingAmount.IsPositive() {
			return fmt.Errorf("process %s: %w: nothing pending", id, apperror.ErrInvalidTransition)
		}
		settled = sch.PendingAmount
		sch.Status = models.StatusCompleted
		sch.PendingAmount = decimal.Zero
		sch.ProcessedAt = &now
		sch.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Schedule %s completed: %s %s for %s %s",
		id, updated.EntityType.ActionVerb(), settled.StringFixed(2), updated.EntityType, updated.EntityName)
	return updated, nil
}

// DeleteSchedule removes a schedule in any status
func (s *Service) DeleteSchedule(ctx context.Context, id string) error {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return err
	}
	defer release()

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Infof("Schedule %s deleted", id)
	return nil
}

func (s *Service) resolveEntity(ctx context.Context, entityType models.EntityType, entityID string) (*models.Entity, error) {
	candidates, err := s.directory.ListCandidates(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("resolve %s %s: %w", entityType, entityID, err)
	}
	for i := range candidates {
		if candidates[i].ID == entityID {
			return &candidates[i], nil
		}
	}
	return nil, apperror.Invalid("unknown %s %q", entityType, entityID)
}

func (s *Service) acquire(ctx context.Context, id string) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	release, err := s.locker.Acquire(ctx, id)
	if errors.Is(err, lock.ErrLockHeld) {
		return nil, fmt.Errorf("%w: %v", apperror.ErrConflict, err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock schedule %s: %w", id, err)
	}
	return release, nil
}
