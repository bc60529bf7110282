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

const userColumns = `id, name, password_hash, tel, market_id, created_at, updated_at`

// UserRepository implements repository.UserRepository using PostgreSQL.
type UserRepository struct {
	db database.DBTX
}

// NewUserRepository creates a new PostgreSQL-backed user repository.
func NewUserRepository(db database.DBTX) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user into the database.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) (err error) {
	const query = `
		INSERT INTO users (name, password_hash, tel, market_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	ctx, end := database.TraceQuery(ctx, "UserRepository.Create", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query, u.Name, u.PasswordHash, u.Tel, u.MarketID).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return userWriteError(err, "insert user")
	}
	return nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return r.scanUser(ctx, "UserRepository.GetByID", query, id)
}

// GetByName retrieves a user by their display name.
func (r *UserRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE name = $1`
	return r.scanUser(ctx, "UserRepository.GetByName", query, name)
}

// GetAccount retrieves a user with the name of their market.
func (r *UserRepository) GetAccount(ctx context.Context, id int64) (a *domain.Account, err error) {
	const query = `
		SELECT u.id, u.name, u.password_hash, u.tel, u.market_id, u.created_at, u.updated_at, m.name
		FROM users u
		JOIN markets m ON m.id = u.market_id
		WHERE u.id = $1`

	ctx, end := database.TraceQuery(ctx, "UserRepository.GetAccount", query)
	defer func() { end(err) }()

	var acc domain.Account
	err = r.db.QueryRow(ctx, query, id).Scan(
		&acc.ID,
		&acc.Name,
		&acc.PasswordHash,
		&acc.Tel,
		&acc.MarketID,
		&acc.CreatedAt,
		&acc.UpdatedAt,
		&acc.MarketName,
	)
	if err != nil {
		return nil, notFound(err, "user", id)
	}
	return &acc, nil
}

// Update modifies the name, password hash and market of a user.
func (r *UserRepository) Update(ctx context.Context, u *domain.User) (err error) {
	const query = `
		UPDATE users
		SET name = $1, password_hash = $2, market_id = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at`

	ctx, end := database.TraceQuery(ctx, "UserRepository.Update", query)
	defer func() { end(err) }()

	err = r.db.QueryRow(ctx, query, u.Name, u.PasswordHash, u.MarketID, u.ID).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("user", u.ID)
		}
		return userWriteError(err, "update user")
	}
	return nil
}

// Delete removes a user from the database by their ID.
func (r *UserRepository) Delete(ctx context.Context, id int64) (err error) {
	const query = `DELETE FROM users WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "UserRepository.Delete", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("user", id)
	}
	return nil
}

func (r *UserRepository) scanUser(ctx context.Context, op, query string, arg any) (u *domain.User, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var user domain.User
	err = r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.PasswordHash,
		&user.Tel,
		&user.MarketID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, notFound(err, "user", arg)
	}
	return &user, nil
}

func userWriteError(err error, what string) error {
	switch {
	case database.IsUniqueViolation(err):
		return apperrors.AlreadyExists(domain.MsgNameTaken)
	case database.IsForeignKeyViolation(err):
		return apperrors.InvalidInput(domain.MsgUnknownMarket)
	default:
		return fmt.Errorf("%s: %w", what, err)
	}
}
