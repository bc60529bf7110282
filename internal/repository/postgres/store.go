package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/isokoinfo/marketplace/internal/repository"
	"github.com/isokoinfo/marketplace/pkg/database"
	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
)

// Store hands out PostgreSQL repositories bound to a pool or a transaction.
type Store struct {
	db database.DBTX
}

// NewStore creates a store running queries on db.
func NewStore(db database.DBTX) *Store {
	return &Store{db: db}
}

// Repositories returns repositories running outside any transaction.
func (s *Store) Repositories() repository.Repositories {
	return newRepositories(s.db)
}

// WithinTx runs fn with repositories bound to one transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(repos repository.Repositories) error) error {
	return database.WithTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(newRepositories(tx))
	})
}

func newRepositories(db database.DBTX) repository.Repositories {
	return repository.Repositories{
		Users:       NewUserRepository(db),
		Markets:     NewMarketRepository(db),
		Products:    NewProductRepository(db),
		Reviews:     NewReviewRepository(db),
		ReviewCodes: NewReviewCodeRepository(db),
	}
}

// notFound maps pgx.ErrNoRows to an apperrors not-found error.
func notFound(err error, resource string, id any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NotFound(resource, id)
	}
	return err
}
