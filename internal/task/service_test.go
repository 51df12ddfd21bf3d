package task

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"github.com/paired-app/paired/internal/database"
	"github.com/paired-app/paired/internal/logging"
	"github.com/paired-app/paired/internal/user"
)

func newMockService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db := bun.NewDB(sqlDB, pgdialect.New())
	return NewService(db, NewRepository(db), user.NewRepository(db), logging.NewLogger(true)), mock
}

func taskColumns() []string {
	return []string{
		"id", "publisher_email", "assignee_email", "title", "description",
		"reward_score", "status", "created_at", "updated_at",
	}
}

func taskRow(id uuid.UUID, status string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(taskColumns()).
		AddRow(id.String(), "alice@example.com", "bob@example.com",
			"do the dishes", "", int64(25), status, now, now)
}

func TestComplete_MarksDoneAndCreditsInOneTransaction(t *testing.T) {
	svc, mock := newMockService(t)
	taskID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "tasks"`).
		WillReturnRows(taskRow(taskID, database.TaskStatusDone))
	mock.ExpectQuery(`UPDATE "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"score"}).AddRow(int64(125)))
	mock.ExpectCommit()

	result, err := svc.Complete(context.Background(), "bob@example.com", taskID)
	require.NoError(t, err)

	assert.Equal(t, taskID, result.Task.ID)
	assert.Equal(t, database.TaskStatusDone, result.Task.Status)
	assert.Equal(t, int64(125), result.NewScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplete_SecondAttemptIsRejected(t *testing.T) {
	svc, mock := newMockService(t)
	taskID := uuid.New()

	mock.ExpectBegin()
	// The status guard makes the conditional update miss
	mock.ExpectQuery(`UPDATE "tasks"`).
		WillReturnRows(sqlmock.NewRows(taskColumns()))
	mock.ExpectQuery(`SELECT (.+) FROM "tasks"`).
		WillReturnRows(taskRow(taskID, database.TaskStatusDone))
	mock.ExpectRollback()

	_, err := svc.Complete(context.Background(), "bob@example.com", taskID)
	assert.ErrorIs(t, err, ErrAlreadyDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestComplete_WrongAssignee(t *testing.T) {
	svc, mock := newMockService(t)
	taskID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "tasks"`).
		WillReturnRows(sqlmock.NewRows(taskColumns()))
	mock.ExpectQuery(`SELECT (.+) FROM "tasks"`).
		WillReturnRows(taskRow(taskID, database.TaskStatusOpen))
	mock.ExpectRollback()

	_, err := svc.Complete(context.Background(), "mallory@example.com", taskID)
	assert.ErrorIs(t, err, ErrNotAssignee)
}

func TestComplete_CreditFailureRollsBackStatusFlip(t *testing.T) {
	svc, mock := newMockService(t)
	taskID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE "tasks"`).
		WillReturnRows(taskRow(taskID, database.TaskStatusDone))
	mock.ExpectQuery(`UPDATE "users"`).
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	_, err := svc.Complete(context.Background(), "bob@example.com", taskID)
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
