package postgres

import (
	"context"
	"fmt"

	"github.com/isokoinfo/marketplace/internal/domain"
	"github.com/isokoinfo/marketplace/pkg/database"
	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
)

// MarketRepository implements repository.MarketRepository using PostgreSQL.
type MarketRepository struct {
	db database.DBTX
}

// NewMarketRepository creates a new PostgreSQL-backed market repository.
func NewMarketRepository(db database.DBTX) *MarketRepository {
	return &MarketRepository{db: db}
}

// Create inserts a market. Names are unique.
func (r *MarketRepository) Create(ctx context.Context, m *domain.Market) (err error) {
	const query = `INSERT INTO markets (name) VALUES ($1) RETURNING id, created_at`

	ctx, end := database.TraceQuery(ctx, "MarketRepository.Create", query)
	defer func() { end(err) }()

	if err = r.db.QueryRow(ctx, query, m.Name).Scan(&m.ID, &m.CreatedAt); err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.AlreadyExists(domain.MsgMarketExists)
		}
		return fmt.Errorf("insert market: %w", err)
	}
	return nil
}

// GetByID retrieves a market by its ID.
func (r *MarketRepository) GetByID(ctx context.Context, id int64) (m *domain.Market, err error) {
	const query = `SELECT id, name, created_at FROM markets WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "MarketRepository.GetByID", query)
	defer func() { end(err) }()

	var market domain.Market
	if err = r.db.QueryRow(ctx, query, id).Scan(&market.ID, &market.Name, &market.CreatedAt); err != nil {
		return nil, notFound(err, "market", id)
	}
	return &market, nil
}

// List returns every market ordered by name.
func (r *MarketRepository) List(ctx context.Context) (markets []domain.Market, err error) {
	const query = `SELECT id, name, created_at FROM markets ORDER BY name`

	ctx, end := database.TraceQuery(ctx, "MarketRepository.List", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}
	defer rows.Close()

	markets = []domain.Market{}
	for rows.Next() {
		var m domain.Market
		if err = rows.Scan(&m.ID, &m.Name, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan market row: %w", err)
		}
		markets = append(markets, m)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate market rows: %w", err)
	}
	return markets, nil
}
