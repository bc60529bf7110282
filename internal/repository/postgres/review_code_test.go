package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isokoinfo/marketplace/internal/domain"
	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
)

func newReviewCodeTestFixture(t *testing.T) (*ReviewCodeRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return NewReviewCodeRepository(mock), mock
}

func reviewCodeRows(c *domain.ReviewCode) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "code", "user_id", "used", "created_at", "used_at"}).
		AddRow(c.ID, c.Code, c.UserID, c.Used, c.CreatedAt, c.UsedAt)
}

func sampleReviewCode() *domain.ReviewCode {
	return &domain.ReviewCode{
		ID:        4,
		Code:      "K7Q2M9XA",
		UserID:    7,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestReviewCodeRepository_Create(t *testing.T) {
	repo, mock := newReviewCodeTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery("INSERT INTO review_codes").
		WithArgs("K7Q2M9XA", int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "used", "created_at"}).AddRow(int64(4), false, now))

	c := &domain.ReviewCode{Code: "K7Q2M9XA", UserID: 7}
	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, int64(4), c.ID)
	assert.False(t, c.Used)
}

func TestReviewCodeRepository_Create_Collision(t *testing.T) {
	repo, mock := newReviewCodeTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO review_codes .+ ON CONFLICT DO NOTHING").
		WillReturnRows(pgxmock.NewRows([]string{"id", "used", "created_at"}))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	err := repo.Create(context.Background(), &domain.ReviewCode{Code: "K7Q2M9XA", UserID: 7})
	assert.ErrorIs(t, err, domain.ErrCodeCollision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewCodeRepository_Create_SecondLiveCode(t *testing.T) {
	repo, mock := newReviewCodeTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO review_codes").
		WillReturnRows(pgxmock.NewRows([]string{"id", "used", "created_at"}))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	err := repo.Create(context.Background(), &domain.ReviewCode{Code: "K7Q2M9XA", UserID: 7})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NotErrorIs(t, err, domain.ErrCodeCollision)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewCodeRepository_Create_UniqueViolation(t *testing.T) {
	repo, mock := newReviewCodeTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO review_codes").WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &domain.ReviewCode{Code: "K7Q2M9XA", UserID: 7})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
}

func TestReviewCodeRepository_GetActiveByUser(t *testing.T) {
	repo, mock := newReviewCodeTestFixture(t)
	defer mock.Close()

	c := sampleReviewCode()
	mock.ExpectQuery("FROM review_codes WHERE user_id = \\$1 AND NOT used").
		WithArgs(int64(7)).
		WillReturnRows(reviewCodeRows(c))

	got, err := repo.GetActiveByUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, c.Code, got.Code)
	assert.Nil(t, got.UsedAt)
}

func TestReviewCodeRepository_GetActiveByUser_None(t *testing.T) {
	repo, mock := newReviewCodeTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("FROM review_codes WHERE user_id").WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetActiveByUser(context.Background(), 7)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestReviewCodeRepository_LockUnused(t *testing.T) {
	repo, mock := newReviewCodeTestFixture(t)
	defer mock.Close()

	c := sampleReviewCode()
	mock.ExpectQuery("WHERE code = \\$1 AND NOT used FOR UPDATE").
		WithArgs(c.Code).
		WillReturnRows(reviewCodeRows(c))

	got, err := repo.LockUnused(context.Background(), c.Code)
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
	assert.Equal(t, c.UserID, got.UserID)
}

func TestReviewCodeRepository_LockUnused_Invalid(t *testing.T) {
	repo, mock := newReviewCodeTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("FOR UPDATE").
		WithArgs("ABCD1234").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.LockUnused(context.Background(), "ABCD1234")
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestReviewCodeRepository_MarkUsed(t *testing.T) {
	repo, mock := newReviewCodeTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("UPDATE review_codes SET used = TRUE").
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE review_codes SET used = TRUE").
		WithArgs(int64(4)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	assert.NoError(t, repo.MarkUsed(context.Background(), 4))
	assert.ErrorIs(t, repo.MarkUsed(context.Background(), 4), domain.ErrInvalidCode)
}

func TestReviewCodeRepository_DeleteByUser(t *testing.T) {
	repo, mock := newReviewCodeTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM review_codes WHERE user_id =").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := repo.DeleteByUser(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}
