package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/commission-scheduler/internal/apperror"
	"github.com/Dan9191/commission-scheduler/internal/models"
)

var columns = []string{"id", "entity_id", "entity_name", "entity_type", "frequency", "next_due", "pending_amount", "status",
	"minimum_amount", "reminder_lead_days", "notes", "created_at", "updated_at", "processed_at", "version"}

func newTestStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewPostgresStore(db)
	store.retryInterval = time.Millisecond
	return store, mock
}

func scheduleRow(id string, version int64, status string, processedAt interface{}) *sqlmock.Rows {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(columns).AddRow(id, "doc_1", "Dr. Amal", "doctor", "monthly", now.AddDate(0, 1, 0),
		"500", status, "100", 3, "", now, now, processedAt, version)
}

func TestPostgresStore_Migrate(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec("CREATE SCHEMA IF NOT EXISTS scheduling").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Create(t *testing.T) {
	store, mock := newTestStore(t)
	s := newSchedule(models.EntityDoctor)

	mock.ExpectExec("INSERT INTO scheduling.schedules").
		WithArgs(sqlmock.AnyArg(), s.EntityID, s.EntityName, "doctor", "monthly", s.NextDue,
			sqlmock.AnyArg(), "active", sqlmock.AnyArg(), 3, s.Notes, s.CreatedAt, s.UpdatedAt, nil, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := store.Create(context.Background(), s)
	require.NoError(t, err)
	assert.Regexp(t, `^sch_`, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// exactAmount matches a decimal argument without rounding
type exactAmount string

func (a exactAmount) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && s == string(a)
}

func TestPostgresStore_AmountsKeepFullPrecision(t *testing.T) {
	assert.Contains(t, schema, "pending_amount NUMERIC NOT NULL")
	assert.Contains(t, schema, "minimum_amount NUMERIC NOT NULL")

	store, mock := newTestStore(t)
	s := newSchedule(models.EntityPharmacy)
	s.PendingAmount = decimal.RequireFromString("10.005")
	s.MinimumAmount = decimal.RequireFromString("99.995")

	mock.ExpectExec("INSERT INTO scheduling.schedules").
		WithArgs(sqlmock.AnyArg(), s.EntityID, s.EntityName, "pharmacy", "monthly", s.NextDue,
			exactAmount("10.005"), "active", exactAmount("99.995"), 3, s.Notes, s.CreatedAt, s.UpdatedAt, nil, 1).
		WillReturnResult(sqlmock.NewResult(1, 1))
	id, err := store.Create(context.Background(), s)
	require.NoError(t, err)

	rows := sqlmock.NewRows(columns).AddRow(id, s.EntityID, s.EntityName, "pharmacy", "monthly", s.NextDue,
		"10.005", "active", "99.995", 3, s.Notes, s.CreatedAt, s.UpdatedAt, nil, int64(1))
	mock.ExpectQuery("SELECT (.+) FROM scheduling.schedules").WithArgs(id).WillReturnRows(rows)

	got, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, got.PendingAmount.Equal(s.PendingAmount), got.PendingAmount.String())
	assert.True(t, got.MinimumAmount.Equal(s.MinimumAmount), got.MinimumAmount.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateInvalidSkipsDatabase(t *testing.T) {
	store, mock := newTestStore(t)
	s := newSchedule(models.EntityDoctor)
	s.Frequency = "yearly"

	_, err := store.Create(context.Background(), s)
	assert.ErrorIs(t, err, apperror.ErrInvalidSchedule)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateCheckViolation(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec("INSERT INTO scheduling.schedules").
		WillReturnError(&pq.Error{Code: "23514", Message: "pending_amount check"})

	_, err := store.Create(context.Background(), newSchedule(models.EntityVendor))
	assert.ErrorIs(t, err, apperror.ErrInvalidSchedule)
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newTestStore(t)
	processed := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM scheduling.schedules WHERE id = \$1`).
		WithArgs("sch_1").
		WillReturnRows(scheduleRow("sch_1", 4, "completed", processed))

	s, err := store.Get(context.Background(), "sch_1")
	require.NoError(t, err)
	assert.Equal(t, models.EntityDoctor, s.EntityType)
	assert.Equal(t, models.StatusCompleted, s.Status)
	assert.Equal(t, "500", s.PendingAmount.String())
	assert.Equal(t, int64(4), s.Version)
	require.NotNil(t, s.ProcessedAt)
	assert.Equal(t, processed, *s.ProcessedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery(`SELECT (.+) FROM scheduling.schedules WHERE id = \$1`).
		WithArgs("sch_missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Get(context.Background(), "sch_missing")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestPostgresStore_Update(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM scheduling.schedules WHERE id = \$1`).
		WithArgs("sch_1").
		WillReturnRows(scheduleRow("sch_1", 1, "active", nil))
	mock.ExpectExec(`UPDATE scheduling.schedules SET (.+) WHERE id = \$1 AND version = \$11`).
		WithArgs("sch_1", "weekly", sqlmock.AnyArg(), sqlmock.AnyArg(), "active", 3, "call first",
			sqlmock.AnyArg(), nil, int64(2), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := store.Update(context.Background(), "sch_1", func(s *models.Schedule) error {
		s.Frequency = models.FrequencyWeekly
		s.Notes = "call first"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)
	assert.Equal(t, "call first", updated.Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRetriesOnVersionConflict(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM scheduling.schedules WHERE id = \$1`).
		WithArgs("sch_1").
		WillReturnRows(scheduleRow("sch_1", 1, "active", nil))
	mock.ExpectExec(`UPDATE scheduling.schedules`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM scheduling.schedules WHERE id = \$1`).
		WithArgs("sch_1").
		WillReturnRows(scheduleRow("sch_1", 2, "active", nil))
	mock.ExpectExec(`UPDATE scheduling.schedules`).
		WithArgs("sch_1", "monthly", sqlmock.AnyArg(), sqlmock.AnyArg(), "active", 3, "retry",
			sqlmock.AnyArg(), nil, int64(3), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := store.Update(context.Background(), "sch_1", func(s *models.Schedule) error {
		s.Notes = "retry"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateMutationErrorIsNotRetried(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT (.+) FROM scheduling.schedules WHERE id = \$1`).
		WithArgs("sch_1").
		WillReturnRows(scheduleRow("sch_1", 3, "completed", time.Now()))

	_, err := store.Update(context.Background(), "sch_1", func(s *models.Schedule) error {
		return apperror.ErrInvalidTransition
	})
	assert.ErrorIs(t, err, apperror.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectExec(`DELETE FROM scheduling.schedules WHERE id = \$1`).
		WithArgs("sch_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM scheduling.schedules WHERE id = \$1`).
		WithArgs("sch_never").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.Delete(context.Background(), "sch_1"))
	assert.ErrorIs(t, store.Delete(context.Background(), "sch_never"), apperror.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListByEntityType(t *testing.T) {
	store, mock := newTestStore(t)
	rows := scheduleRow("sch_1", 1, "active", nil)
	rows.AddRow("sch_2", "doc_2", "Dr. Omar", "doctor", "weekly", time.Now(), "80", "active", "100", 1, "", time.Now(), time.Now(), nil, 1)

	mock.ExpectQuery(`SELECT (.+) FROM scheduling.schedules WHERE entity_type = \$1 ORDER BY seq`).
		WithArgs("doctor").
		WillReturnRows(rows)

	schedules, err := store.List(context.Background(), models.ScheduleFilter{EntityType: models.EntityDoctor})
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	assert.Equal(t, "sch_1", schedules[0].ID)
	assert.Equal(t, "sch_2", schedules[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListAll(t *testing.T) {
	store, mock := newTestStore(t)
	mock.ExpectQuery(`SELECT (.+) FROM scheduling.schedules ORDER BY seq`).
		WillReturnRows(sqlmock.NewRows(columns))

	schedules, err := store.List(context.Background(), models.ScheduleFilter{})
	require.NoError(t, err)
	assert.Empty(t, schedules)
	assert.NoError(t, mock.ExpectationsWereMet())
}
