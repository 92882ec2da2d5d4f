package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"

	"github.com/Dan9191/commission-scheduler/internal/apperror"
	"github.com/Dan9191/commission-scheduler/internal/models"
)

const schema = `
CREATE SCHEMA IF NOT EXISTS scheduling;
CREATE TABLE IF NOT EXISTS scheduling.schedules (
	seq BIGSERIAL,
	id TEXT PRIMARY KEY,
	entity_id TEXT NOT NULL,
	entity_name TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	frequency TEXT NOT NULL,
	next_due TIMESTAMPTZ NOT NULL,
	pending_amount NUMERIC NOT NULL CHECK (pending_amount >= 0),
	status TEXT NOT NULL,
	minimum_amount NUMERIC NOT NULL,
	reminder_lead_days INT NOT NULL,
	notes TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	processed_at TIMESTAMPTZ,
	version BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS schedules_entity_type_idx ON scheduling.schedules (entity_type);`

const scheduleColumns = `id, entity_id, entity_name, entity_type, frequency, next_due, pending_amount, status,
		minimum_amount, reminder_lead_days, notes, created_at, updated_at, processed_at, version`

// PostgresStore persists schedules in PostgreSQL. Updates are conditional on the row
// version and retried when another writer got there first.
type PostgresStore struct {
	db            *sql.DB
	retries       uint64
	retryInterval time.Duration
}

// NewPostgresStore initializes a store over an open database handle
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, retries: 3, retryInterval: 50 * time.Millisecond}
}

// Migrate creates the schedules table if it does not exist
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schedules table: %w", err)
	}
	return nil
}

// Create inserts a new schedule and returns its id
func (p *PostgresStore) Create(ctx context.Context, schedule *models.Schedule) (string, error) {
	if err := validateSchedule(schedule); err != nil {
		return "", err
	}

	id := newScheduleID()
	query := `
		INSERT INTO scheduling.schedules (` + scheduleColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := p.db.ExecContext(ctx, query,
		id, schedule.EntityID, schedule.EntityName, string(schedule.EntityType), string(schedule.Frequency),
		schedule.NextDue, schedule.PendingAmount, string(schedule.Status), schedule.MinimumAmount,
		schedule.ReminderLeadDays, schedule.Notes, schedule.CreatedAt, schedule.UpdatedAt,
		nullTime(schedule.ProcessedAt), 1)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "check_violation" {
			return "", apperror.Invalid("%s", pqErr.Message)
		}
		return "", fmt.Errorf("failed to create schedule: %w", err)
	}
	return id, nil
}

// Get retrieves a schedule by id
func (p *PostgresStore) Get(ctx context.Context, id string) (*models.Schedule, error) {
	query := `
		SELECT ` + scheduleColumns + `
		FROM scheduling.schedules
		WHERE id = $1`
	schedule, err := scanSchedule(p.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("get %s: %w", id, apperror.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}
	return schedule, nil
}

// Update applies mutate and writes the result only if the row version is unchanged
func (p *PostgresStore) Update(ctx context.Context, id string, mutate func(*models.Schedule) error) (*models.Schedule, error) {
	var updated *models.Schedule
	attempt := func() error {
		current, err := p.Get(ctx, id)
		if err != nil {
			return backoff.Permanent(err)
		}
		next := current.Clone()
		if err := mutate(next); err != nil {
			return backoff.Permanent(err)
		}
		if err := validateSchedule(next); err != nil {
			return backoff.Permanent(err)
		}
		next.ID = id
		next.Version = current.Version + 1

		query := `
			UPDATE scheduling.schedules
			SET frequency = $2, next_due = $3, pending_amount = $4, status = $5, reminder_lead_days = $6,
				notes = $7, updated_at = $8, processed_at = $9, version = $10
			WHERE id = $1 AND version = $11`
		res, err := p.db.ExecContext(ctx, query,
			id, string(next.Frequency), next.NextDue, next.PendingAmount, string(next.Status),
			next.ReminderLeadDays, next.Notes, next.UpdatedAt, nullTime(next.ProcessedAt),
			next.Version, current.Version)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to update schedule: %w", err))
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to update schedule: %w", err))
		}
		if rows == 0 {
			return fmt.Errorf("update %s: %w", id, apperror.ErrConflict)
		}
		updated = next
		return nil
	}

	if err := backoff.Retry(attempt, p.backOff(ctx)); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a schedule by id
func (p *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM scheduling.schedules WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete %s: %w", id, apperror.ErrNotFound)
	}
	return nil
}

// List returns schedules matching filter in insertion order
func (p *PostgresStore) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, error) {
	var (
		where []string
		args  []interface{}
	)
	if filter.EntityType != "" {
		args = append(args, string(filter.EntityType))
		where = append(where, fmt.Sprintf("entity_type = $%d", len(args)))
	}

	query := `SELECT ` + scheduleColumns + ` FROM scheduling.schedules`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY seq`

	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	schedules := []models.Schedule{}
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule: %w", err)
		}
		schedules = append(schedules, *schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	return schedules, nil
}

func (p *PostgresStore) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.retryInterval
	return backoff.WithContext(backoff.WithMaxRetries(b, p.retries), ctx)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSchedule(row rowScanner) (*models.Schedule, error) {
	var (
		s           models.Schedule
		entityType  string
		frequency   string
		status      string
		processedAt sql.NullTime
	)
	err := row.Scan(&s.ID, &s.EntityID, &s.EntityName, &entityType, &frequency, &s.NextDue,
		&s.PendingAmount, &status, &s.MinimumAmount, &s.ReminderLeadDays, &s.Notes,
		&s.CreatedAt, &s.UpdatedAt, &processedAt, &s.Version)
	if err != nil {
		return nil, err
	}
	s.EntityType = models.EntityType(entityType)
	s.Frequency = models.Frequency(frequency)
	s.Status = models.ScheduleStatus(status)
	if processedAt.Valid {
		t := processedAt.Time
		s.ProcessedAt = &t
	}
	return &s, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
