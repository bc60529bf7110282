package postgres

import (
	"context"
	"fmt"

	"github.com/isokoinfo/marketplace/internal/domain"
	"github.com/isokoinfo/marketplace/pkg/database"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
type ReviewRepository struct {
	db database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(db database.DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

// Create inserts a new review into the database.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) (err error) {
	const query = `
		INSERT INTO reviews (product_id, review_code_id, rating, comment)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	ctx, end := database.TraceQuery(ctx, "ReviewRepository.Create", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query, rv.ProductID, rv.ReviewCodeID, rv.Rating, rv.Comment).
		Scan(&rv.ID, &rv.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// ListByProduct returns the reviews of a product, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID int64) (reviews []domain.Review, err error) {
	const query = `
		SELECT id, product_id, review_code_id, rating, comment, created_at
		FROM reviews
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC`

	ctx, end := database.TraceQuery(ctx, "ReviewRepository.ListByProduct", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews by product: %w", err)
	}
	defer rows.Close()

	reviews = []domain.Review{}
	for rows.Next() {
		var rv domain.Review
		if err = rows.Scan(&rv.ID, &rv.ProductID, &rv.ReviewCodeID, &rv.Rating, &rv.Comment, &rv.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}
	return reviews, nil
}

// ListBySeller returns reviews on any product owned by userID, newest first.
func (r *ReviewRepository) ListBySeller(ctx context.Context, userID int64) (reviews []domain.SellerReview, err error) {
	const query = `
		SELECT r.id, r.product_id, r.review_code_id, r.rating, r.comment, r.created_at, p.name
		FROM reviews r
		JOIN products p ON p.id = r.product_id
		WHERE p.user_id = $1
		ORDER BY r.created_at DESC, r.id DESC`

	ctx, end := database.TraceQuery(ctx, "ReviewRepository.ListBySeller", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list reviews by seller: %w", err)
	}
	defer rows.Close()

	reviews = []domain.SellerReview{}
	for rows.Next() {
		var rv domain.SellerReview
		if err = rows.Scan(
			&rv.ID,
			&rv.ProductID,
			&rv.ReviewCodeID,
			&rv.Rating,
			&rv.Comment,
			&rv.CreatedAt,
			&rv.ProductName,
		); err != nil {
			return nil, fmt.Errorf("scan seller review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate seller review rows: %w", err)
	}
	return reviews, nil
}

// DeleteByProduct removes the reviews of a product.
func (r *ReviewRepository) DeleteByProduct(ctx context.Context, productID int64) (n int64, err error) {
	const query = `DELETE FROM reviews WHERE product_id = $1`

	ctx, end := database.TraceQuery(ctx, "ReviewRepository.DeleteByProduct", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, productID)
	if err != nil {
		return 0, fmt.Errorf("delete reviews of product: %w", err)
	}
	return ct.RowsAffected(), nil
}

// DeleteBySeller removes the reviews on every product owned by userID.
func (r *ReviewRepository) DeleteBySeller(ctx context.Context, userID int64) (n int64, err error) {
	const query = `
		DELETE FROM reviews
		WHERE product_id IN (SELECT id FROM products WHERE user_id = $1)`

	ctx, end := database.TraceQuery(ctx, "ReviewRepository.DeleteBySeller", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("delete reviews of seller: %w", err)
	}
	return ct.RowsAffected(), nil
}
