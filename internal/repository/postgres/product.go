package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/isokoinfo/marketplace/internal/domain"
	"github.com/isokoinfo/marketplace/pkg/database"
	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
)

const productSelect = `
		SELECT p.id, p.user_id, p.name, p.price, p.category, p.market_id, m.name,
		       p.selling_unit, p.image_url, p.image_public_id, p.created_at, p.updated_at
		FROM products p
		JOIN markets m ON m.id = p.market_id`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	db database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(db database.DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	const query = `
		INSERT INTO products (user_id, name, price, category, market_id, selling_unit, image_url, image_public_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`

	ctx, end := database.TraceQuery(ctx, "ProductRepository.Create", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query,
		p.UserID,
		p.Name,
		p.Price,
		p.Category,
		p.MarketID,
		p.SellingUnit,
		p.ImageURL,
		p.ImagePublicID,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return productWriteError(err, "insert product")
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id int64) (p *domain.Product, err error) {
	query := productSelect + ` WHERE p.id = $1`

	ctx, end := database.TraceQuery(ctx, "ProductRepository.GetByID", query)
	defer func() { end(err) }()

	var product domain.Product
	if err = scanProduct(r.db.QueryRow(ctx, query, id), &product); err != nil {
		return nil, notFound(err, "product", id)
	}
	return &product, nil
}

// List returns products matching filter, newest first. Category and
// marketplace match exactly when set.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("p.category = $%d", argIndex))
		args = append(args, filter.Category)
		argIndex++
	}

	if filter.Marketplace != "" {
		conditions = append(conditions, fmt.Sprintf("m.name = $%d", argIndex))
		args = append(args, filter.Marketplace)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	query := productSelect + whereClause + ` ORDER BY p.created_at DESC, p.id DESC`
	return r.queryProducts(ctx, "ProductRepository.List", query, args...)
}

// ListByUser returns the products owned by userID, newest first.
func (r *ProductRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Product, error) {
	query := productSelect + ` WHERE p.user_id = $1 ORDER BY p.created_at DESC, p.id DESC`
	return r.queryProducts(ctx, "ProductRepository.ListByUser", query, userID)
}

// Categories returns the distinct categories of all products.
func (r *ProductRepository) Categories(ctx context.Context) (categories []string, err error) {
	const query = `SELECT DISTINCT category FROM products ORDER BY category`

	ctx, end := database.TraceQuery(ctx, "ProductRepository.Categories", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories = []string{}
	for rows.Next() {
		var c string
		if err = rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return categories, nil
}

// Update modifies an existing product in the database. Ownership is not
// changeable.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	const query = `
		UPDATE products
		SET name = $1, price = $2, category = $3, market_id = $4, selling_unit = $5,
		    image_url = $6, image_public_id = $7, updated_at = NOW()
		WHERE id = $8
		RETURNING updated_at`

	ctx, end := database.TraceQuery(ctx, "ProductRepository.Update", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query,
		p.Name,
		p.Price,
		p.Category,
		p.MarketID,
		p.SellingUnit,
		p.ImageURL,
		p.ImagePublicID,
		p.ID,
	).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("product", p.ID)
		}
		return productWriteError(err, "update product")
	}
	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id int64) (err error) {
	const query = `DELETE FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "ProductRepository.Delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

// DeleteByUser removes every product owned by userID.
func (r *ProductRepository) DeleteByUser(ctx context.Context, userID int64) (n int64, err error) {
	const query = `DELETE FROM products WHERE user_id = $1`

	ctx, end := database.TraceQuery(ctx, "ProductRepository.DeleteByUser", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, userID)
	if err != nil {
		return 0, fmt.Errorf("delete products of user: %w", err)
	}
	return ct.RowsAffected(), nil
}

func (r *ProductRepository) queryProducts(ctx context.Context, op, query string, args ...any) (products []domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products = []domain.Product{}
	for rows.Next() {
		var p domain.Product
		if err = scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, nil
}

func scanProduct(row pgx.Row, p *domain.Product) error {
	return row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Price,
		&p.Category,
		&p.MarketID,
		&p.MarketName,
		&p.SellingUnit,
		&p.ImageURL,
		&p.ImagePublicID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}

func productWriteError(err error, what string) error {
	if database.IsForeignKeyViolation(err) {
		return apperrors.InvalidInput(domain.MsgUnknownMarket)
	}
	return fmt.Errorf("%s: %w", what, err)
}
