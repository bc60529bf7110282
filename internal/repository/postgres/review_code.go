package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/isokoinfo/marketplace/internal/domain"
	"github.com/isokoinfo/marketplace/pkg/database"
	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
)

const reviewCodeColumns = `id, code, user_id, used, created_at, used_at`

// ReviewCodeRepository implements repository.ReviewCodeRepository using
// PostgreSQL.
type ReviewCodeRepository struct {
	db database.DBTX
}

// NewReviewCodeRepository creates a new PostgreSQL-backed review code
// repository.
func NewReviewCodeRepository(db database.DBTX) *ReviewCodeRepository {
	return &ReviewCodeRepository{db: db}
}

// Create inserts a new unused code. A code equal to any code ever issued
// yields domain.ErrCodeCollision, and a second live code for the same
// seller yields an already-exists error. Neither conflict aborts the
// surrounding transaction.
func (r *ReviewCodeRepository) Create(ctx context.Context, c *domain.ReviewCode) (err error) {
	const query = `
		INSERT INTO review_codes (code, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
		RETURNING id, used, created_at`

	ctx, end := database.TraceQuery(ctx, "ReviewCodeRepository.Create", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query, c.Code, c.UserID).Scan(&c.ID, &c.Used, &c.CreatedAt)
	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return r.conflictReason(ctx, c.UserID)
		case database.IsUniqueViolation(err):
			return apperrors.AlreadyExists(msgLiveCodeExists)
		default:
			return fmt.Errorf("insert review code: %w", err)
		}
	}
	return nil
}

const msgLiveCodeExists = "seller already has an unused review code"

// conflictReason tells which unique constraint a skipped insert hit.
func (r *ReviewCodeRepository) conflictReason(ctx context.Context, userID int64) error {
	const query = `SELECT EXISTS (SELECT 1 FROM review_codes WHERE user_id = $1 AND NOT used)`

	var live bool
	if err := r.db.QueryRow(ctx, query, userID).Scan(&live); err != nil {
		return fmt.Errorf("check live review code: %w", err)
	}
	if live {
		return apperrors.AlreadyExists(msgLiveCodeExists)
	}
	return domain.ErrCodeCollision
}

// GetActiveByUser returns the unused code of userID.
func (r *ReviewCodeRepository) GetActiveByUser(ctx context.Context, userID int64) (c *domain.ReviewCode, err error) {
	const query = `SELECT ` + reviewCodeColumns + ` FROM review_codes WHERE user_id = $1 AND NOT used`

	ctx, end := database.TraceQuery(ctx, "ReviewCodeRepository.GetActiveByUser", query)
	defer func() { end(err) }()

	c, err = scanReviewCode(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, notFound(err, "review code for user", userID)
	}
	return c, nil
}

// LockUnused selects the unused code for update so concurrent redemptions
// of the same code serialize on its row.
func (r *ReviewCodeRepository) LockUnused(ctx context.Context, code string) (c *domain.ReviewCode, err error) {
	const query = `SELECT ` + reviewCodeColumns + ` FROM review_codes WHERE code = $1 AND NOT used FOR UPDATE`

	ctx, end := database.TraceQuery(ctx, "ReviewCodeRepository.LockUnused", query)
	defer func() { end(err) }()

	c, err = scanReviewCode(r.db.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrInvalidCode
		}
		return nil, fmt.Errorf("lock review code: %w", err)
	}
	return c, nil
}

// MarkUsed flips an unused code to used.
func (r *ReviewCodeRepository) MarkUsed(ctx context.Context, id int64) (err error) {
	const query = `UPDATE review_codes SET used = TRUE, used_at = NOW() WHERE id = $1 AND NOT used`

	ctx, end := database.TraceQuery(ctx, "ReviewCodeRepository.MarkUsed", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark review code used: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrInvalidCode
	}
	return nil
}

// DeleteByUser removes every code owned by userID.
func (r *ReviewCodeRepository) DeleteByUser(ctx context.Context, userID int64) (n int64, err error) {
	const query = `DELETE FROM review_codes WHERE user_id = $1`

	ctx, end := database.TraceQuery(ctx, "ReviewCodeRepository.DeleteByUser", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("delete review codes of user: %w", err)
	}
	return ct.RowsAffected(), nil
}

func scanReviewCode(row pgx.Row) (*domain.ReviewCode, error) {
	var c domain.ReviewCode
	if err := row.Scan(&c.ID, &c.Code, &c.UserID, &c.Used, &c.CreatedAt, &c.UsedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
