package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isokoinfo/marketplace/internal/domain"
)

func TestReviewRepository_Create(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	codeID := int64(4)
	rv := &domain.Review{ProductID: 11, ReviewCodeID: &codeID, Rating: 5, Comment: "Fresh"}
	now := time.Now().UTC()

	mock.ExpectQuery("INSERT INTO reviews").
		WithArgs(int64(11), &codeID, 5, "Fresh").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))

	require.NoError(t, repo.Create(context.Background(), rv))
	assert.Equal(t, int64(1), rv.ID)
	assert.Equal(t, now, rv.CreatedAt)
}

func TestReviewRepository_Create_Error(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectQuery("INSERT INTO reviews").WillReturnError(errors.New("connection reset"))

	err = repo.Create(context.Background(), &domain.Review{ProductID: 1, Rating: 3, Comment: "ok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert review")
}

func TestReviewRepository_ListByProduct(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	codeID := int64(4)
	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM reviews\\s+WHERE product_id =").
		WithArgs(int64(11)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "review_code_id", "rating", "comment", "created_at"}).
			AddRow(int64(2), int64(11), &codeID, 4, "Good", now).
			AddRow(int64(1), int64(11), &codeID, 2, "Meh", now.Add(-time.Hour)))

	reviews, err := repo.ListByProduct(context.Background(), 11)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, 4, reviews[0].Rating)
	assert.Equal(t, "Meh", reviews[1].Comment)
}

func TestReviewRepository_ListBySeller(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	codeID := int64(4)
	now := time.Now().UTC()
	mock.ExpectQuery("FROM reviews r\\s+JOIN products p .+ WHERE p.user_id =").
		WithArgs(int64(7)).
		WillReturnRows(pgxmock.NewRows([]string{"id", "product_id", "review_code_id", "rating", "comment", "created_at", "product_name"}).
			AddRow(int64(2), int64(11), &codeID, 5, "Great", now, "Sukuma wiki"))

	reviews, err := repo.ListBySeller(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "Sukuma wiki", reviews[0].ProductName)
	assert.Equal(t, 5, reviews[0].Rating)
}

func TestReviewRepository_Deletes(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewReviewRepository(mock)

	mock.ExpectExec("DELETE FROM reviews WHERE product_id =").
		WithArgs(int64(11)).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("DELETE FROM reviews\\s+WHERE product_id IN \\(SELECT id FROM products WHERE user_id =").
		WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	n, err := repo.DeleteByProduct(context.Background(), 11)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.DeleteBySeller(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
