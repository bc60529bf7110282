package repository

import (
	"context"

	"github.com/isokoinfo/marketplace/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user and fills in its ID and timestamps.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their identifier.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByName retrieves a user by their unique display name.
	GetByName(ctx context.Context, name string) (*domain.User, error)

	// GetAccount retrieves a user together with their market name.
	GetAccount(ctx context.Context, id int64) (*domain.Account, error)

	// Update modifies name, password hash and market of an existing user.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user by their identifier.
	Delete(ctx context.Context, id int64) error
}

// MarketRepository defines the interface for market persistence operations.
type MarketRepository interface {
	Create(ctx context.Context, market *domain.Market) error
	GetByID(ctx context.Context, id int64) (*domain.Market, error)
	// List returns all markets ordered by name.
	List(ctx context.Context) ([]domain.Market, error)
}

// ProductRepository defines the interface for product persistence operations.
// Products returned by reads carry their market name.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)

	// List returns products matching filter, newest first.
	List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)

	// ListByUser returns the products owned by userID, newest first.
	ListByUser(ctx context.Context, userID int64) ([]domain.Product, error)

	// Categories returns the distinct product categories in use.
	Categories(ctx context.Context) ([]string, error)

	Update(ctx context.Context, product *domain.Product) error
	Delete(ctx context.Context, id int64) error

	// DeleteByUser removes every product owned by userID and returns how
	// many were deleted.
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}

// ReviewRepository defines the interface for review persistence operations.
// Reviews are never updated.
type ReviewRepository interface {
	Create(ctx context.Context, review *domain.Review) error

	// ListByProduct returns the reviews of a product, newest first.
	ListByProduct(ctx context.Context, productID int64) ([]domain.Review, error)

	// ListBySeller returns the reviews on every product owned by userID,
	// newest first.
	ListBySeller(ctx context.Context, userID int64) ([]domain.SellerReview, error)

	DeleteByProduct(ctx context.Context, productID int64) (int64, error)
	DeleteBySeller(ctx context.Context, userID int64) (int64, error)
}

// ReviewCodeRepository defines the interface for review code persistence
// operations.
type ReviewCodeRepository interface {
	// Create inserts a new unused code. A code that collides with any
	// previously issued code yields domain.ErrCodeCollision and nothing is
	// written.
	Create(ctx context.Context, code *domain.ReviewCode) error

	// GetActiveByUser returns the unused code of userID.
	GetActiveByUser(ctx context.Context, userID int64) (*domain.ReviewCode, error)

	// LockUnused returns the unused code matching code and locks its row
	// until the surrounding transaction ends. It fails with
	// domain.ErrInvalidCode when no such code exists.
	LockUnused(ctx context.Context, code string) (*domain.ReviewCode, error)

	// MarkUsed moves a code from unused to used. It fails with
	// domain.ErrInvalidCode when the code was already used.
	MarkUsed(ctx context.Context, id int64) error

	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}

// Repositories bundles the repositories bound to one connection or
// transaction.
type Repositories struct {
	Users       UserRepository
	Markets     MarketRepository
	Products    ProductRepository
	Reviews     ReviewRepository
	ReviewCodes ReviewCodeRepository
}

// TxRunner runs fn with repositories bound to a single transaction. The
// transaction commits when fn returns nil and rolls back otherwise.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(repos Repositories) error) error
}
