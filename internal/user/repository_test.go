package user

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	return NewRepository(bun.NewDB(sqlDB, pgdialect.New())), mock
}

func TestDebit_Success(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"score"}).AddRow(int64(70)))

	balance, err := repo.Debit(context.Background(), "alice@example.com", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebit_InsufficientScore(t *testing.T) {
	repo, mock := newMockRepo(t)

	// The conditional update misses, the follow-up existence check hits
	mock.ExpectQuery(`UPDATE "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"score"}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := repo.Debit(context.Background(), "alice@example.com", 30)
	assert.ErrorIs(t, err, ErrInsufficientScore)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebit_UnknownUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"score"}))
	mock.ExpectQuery(`SELECT EXISTS`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := repo.Debit(context.Background(), "nobody@example.com", 30)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebit_NegativeAmount(t *testing.T) {
	repo, mock := newMockRepo(t)

	// Rejected before any SQL runs
	_, err := repo.Debit(context.Background(), "alice@example.com", -5)
	assert.ErrorIs(t, err, ErrNegativeAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredit_Success(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"score"}).AddRow(int64(130)))

	balance, err := repo.Credit(context.Background(), "alice@example.com", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(130), balance)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCredit_UnknownUser(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`UPDATE "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"score"}))

	_, err := repo.Credit(context.Background(), "nobody@example.com", 30)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCredit_NegativeAmount(t *testing.T) {
	repo, _ := newMockRepo(t)

	_, err := repo.Credit(context.Background(), "alice@example.com", -5)
	assert.ErrorIs(t, err, ErrNegativeAmount)
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT (.+) FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "email", "name", "password_hash", "score",
			"partner_email", "created_at", "updated_at",
		}))

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}
