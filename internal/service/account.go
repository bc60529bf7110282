package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/isokoinfo/marketplace/internal/auth"
	"github.com/isokoinfo/marketplace/internal/domain"
	"github.com/isokoinfo/marketplace/internal/event"
	"github.com/isokoinfo/marketplace/internal/media"
	"github.com/isokoinfo/marketplace/internal/repository"
	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
)

// AccountService implements registration, sessions and account lifecycle.
type AccountService struct {
	repos    repository.Repositories
	tx       repository.TxRunner
	sessions *auth.SessionManager
	revoked  auth.RevocationStore
	images   *imageStore
	producer *event.Producer
	logger   *slog.Logger
}

// NewAccountService creates a new account service. revoked may be nil, in
// which case logout only clears the cookie and tokens stay valid until they
// expire.
func NewAccountService(
	repos repository.Repositories,
	tx repository.TxRunner,
	sessions *auth.SessionManager,
	revoked auth.RevocationStore,
	store media.Store,
	producer *event.Producer,
	logger *slog.Logger,
) *AccountService {
	return &AccountService{
		repos:    repos,
		tx:       tx,
		sessions: sessions,
		revoked:  revoked,
		images:   &imageStore{store: store, logger: logger},
		producer: producer,
		logger:   logger,
	}
}

// RegisterInput holds raw registration form values.
type RegisterInput struct {
	Name            string
	Password        string
	ConfirmPassword string
	Tel             string
	MarketID        string
}

// LoginResult is a freshly established session.
type LoginResult struct {
	User    *domain.User
	Token   string
	Session *auth.Session
}

// UpdateSettingsInput holds raw settings form values. A blank Password
// leaves the password unchanged.
type UpdateSettingsInput struct {
	Name            string
	Password        string
	ConfirmPassword string
	MarketID        string
}

func countAction(action string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	accountActions.WithLabelValues(action, result).Inc()
}

// Register creates a seller account.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (user *domain.User, err error) {
	defer func() { countAction("register", err) }()

	name := strings.TrimSpace(in.Name)
	tel := strings.TrimSpace(in.Tel)

	if err := domain.ValidateUserName(name); err != nil {
		return nil, err
	}
	if in.Password == "" {
		return nil, apperrors.InvalidInput(domain.MsgPasswordRequired)
	}
	if err := domain.ValidatePasswordLength(in.Password); err != nil {
		return nil, err
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperrors.InvalidInput(domain.MsgPasswordMismatch)
	}
	if err := domain.ValidatePhone(tel); err != nil {
		return nil, err
	}
	marketID, err := domain.ParseMarketID(in.MarketID)
	if err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user = &domain.User{
		Name:         name,
		PasswordHash: hash,
		Tel:          tel,
		MarketID:     marketID,
	}
	err = s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		if err := ensureNameFree(ctx, r.Users, name, 0); err != nil {
			return err
		}
		if _, err := requireMarket(ctx, r.Markets, marketID); err != nil {
			return err
		}
		return r.Users.Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.Int64("user_id", user.ID),
		slog.Int64("market_id", user.MarketID),
	)
	s.producer.UserRegistered(ctx, user)

	return user, nil
}

// ensureNameFree fails if name belongs to a user other than selfID.
func ensureNameFree(ctx context.Context, users repository.UserRepository, name string, selfID int64) error {
	existing, err := users.GetByName(ctx, name)
	switch {
	case err == nil:
		if existing.ID != selfID {
			return apperrors.AlreadyExists(domain.MsgNameTaken)
		}
		return nil
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	default:
		return fmt.Errorf("get user by name: %w", err)
	}
}

// Login verifies credentials and issues a session. Unknown names and wrong
// passwords fail identically.
func (s *AccountService) Login(ctx context.Context, name, password string) (res *LoginResult, err error) {
	defer func() { countAction("login", err) }()

	name = strings.TrimSpace(name)
	invalid := apperrors.Unauthorized(domain.MsgInvalidLogin)

	user, err := s.repos.Users.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			auth.BurnVerification(password)
			return nil, invalid
		}
		return nil, fmt.Errorf("get user by name: %w", err)
	}

	ok, needsRehash := auth.VerifyPassword(user.PasswordHash, password)
	if !ok {
		s.logger.InfoContext(ctx, "login failed", slog.Int64("user_id", user.ID))
		return nil, invalid
	}
	if needsRehash {
		s.upgradeHash(ctx, user, password)
	}

	token, sess, err := s.sessions.Issue(user.ID, user.Name, user.MarketID)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user logged in", slog.Int64("user_id", user.ID))
	return &LoginResult{User: user, Token: token, Session: sess}, nil
}

// upgradeHash replaces a legacy hash after a successful login. Failure is
// logged; the login still succeeds.
func (s *AccountService) upgradeHash(ctx context.Context, user *domain.User, password string) {
	hash, err := auth.HashPassword(password)
	if err == nil {
		user.PasswordHash = hash
		err = s.repos.Users.Update(ctx, user)
	}
	if err != nil {
		s.logger.WarnContext(ctx, "password hash upgrade failed",
			slog.Int64("user_id", user.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.InfoContext(ctx, "password hash upgraded", slog.Int64("user_id", user.ID))
}

// Logout revokes sess. A nil session is a no-op.
func (s *AccountService) Logout(ctx context.Context, sess *auth.Session) {
	if sess == nil {
		return
	}
	s.revoke(ctx, sess)
	s.logger.InfoContext(ctx, "user logged out", slog.Int64("user_id", sess.UserID))
}

func (s *AccountService) revoke(ctx context.Context, sess *auth.Session) {
	if s.revoked == nil {
		return
	}
	if err := s.revoked.Revoke(ctx, sess.ID, sess.ExpiresAt); err != nil {
		s.logger.WarnContext(ctx, "session revocation failed",
			slog.String("session_id", sess.ID),
			slog.String("error", err.Error()),
		)
	}
}

// Authenticate resolves a session token to its user. The session returned
// carries the user's current name and market.
func (s *AccountService) Authenticate(ctx context.Context, token string) (*auth.Session, *domain.User, error) {
	unauthorized := apperrors.Unauthorized(domain.MsgLoginRequired)

	sess, err := s.sessions.Parse(token)
	if err != nil {
		return nil, nil, unauthorized
	}

	if s.revoked != nil {
		revoked, err := s.revoked.IsRevoked(ctx, sess.ID)
		if err != nil {
			s.logger.WarnContext(ctx, "session revocation check failed",
				slog.String("session_id", sess.ID),
				slog.String("error", err.Error()),
			)
		} else if revoked {
			return nil, nil, unauthorized
		}
	}

	user, err := s.repos.Users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, unauthorized
		}
		return nil, nil, fmt.Errorf("get session user: %w", err)
	}

	sess.Name = user.Name
	sess.MarketID = user.MarketID
	return sess, user, nil
}

// GetAccount returns the user with their market name.
func (s *AccountService) GetAccount(ctx context.Context, userID int64) (*domain.Account, error) {
	return s.repos.Users.GetAccount(ctx, userID)
}

// UpdateSettings changes the name, market and optionally the password of
// the session user. The old session is revoked and a new one issued.
func (s *AccountService) UpdateSettings(ctx context.Context, sess *auth.Session, in UpdateSettingsInput) (res *LoginResult, err error) {
	defer func() { countAction("update_settings", err) }()

	name := strings.TrimSpace(in.Name)
	if err := domain.ValidateUserName(name); err != nil {
		return nil, err
	}
	if err := domain.ValidatePasswordLength(in.Password); err != nil {
		return nil, err
	}
	if in.Password != in.ConfirmPassword {
		return nil, apperrors.InvalidInput(domain.MsgPasswordMismatch)
	}
	marketID, err := domain.ParseMarketID(in.MarketID)
	if err != nil {
		return nil, err
	}

	var hash string
	if in.Password != "" {
		if hash, err = auth.HashPassword(in.Password); err != nil {
			return nil, err
		}
	}

	var user *domain.User
	err = s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		var err error
		user, err = r.Users.GetByID(ctx, sess.UserID)
		if err != nil {
			return err
		}
		if err := ensureNameFree(ctx, r.Users, name, user.ID); err != nil {
			return err
		}
		if _, err := requireMarket(ctx, r.Markets, marketID); err != nil {
			return err
		}

		user.Name = name
		user.MarketID = marketID
		if hash != "" {
			user.PasswordHash = hash
		}
		return r.Users.Update(ctx, user)
	})
	if err != nil {
		return nil, err
	}

	token, newSess, err := s.sessions.Issue(user.ID, user.Name, user.MarketID)
	if err != nil {
		return nil, err
	}
	s.revoke(ctx, sess)

	s.logger.InfoContext(ctx, "account settings updated",
		slog.Int64("user_id", user.ID),
		slog.Bool("password_changed", hash != ""),
	)
	return &LoginResult{User: user, Token: token, Session: newSess}, nil
}

// DeleteAccount removes the session user with all their products, reviews
// on those products and review codes in one transaction. Product images
// are destroyed after the transaction commits and the session is revoked.
func (s *AccountService) DeleteAccount(ctx context.Context, sess *auth.Session) (err error) {
	defer func() { countAction("delete_account", err) }()

	userID := sess.UserID
	var (
		products []domain.Product
		deleted  event.AccountDeletedData
	)
	err = s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		var err error
		if _, err = r.Users.GetByID(ctx, userID); err != nil {
			return err
		}
		if products, err = r.Products.ListByUser(ctx, userID); err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		if deleted.ReviewsDeleted, err = r.Reviews.DeleteBySeller(ctx, userID); err != nil {
			return fmt.Errorf("delete reviews: %w", err)
		}
		if deleted.ProductsDeleted, err = r.Products.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("delete products: %w", err)
		}
		if deleted.CodesDeleted, err = r.ReviewCodes.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("delete review codes: %w", err)
		}
		if err := r.Users.Delete(ctx, userID); err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, p := range products {
		s.images.destroy(ctx, p.ImagePublicID, "account deleted")
	}
	s.revoke(ctx, sess)

	deleted.ID = userID
	s.logger.InfoContext(ctx, "account deleted",
		slog.Int64("user_id", userID),
		slog.Int64("products_deleted", deleted.ProductsDeleted),
		slog.Int64("reviews_deleted", deleted.ReviewsDeleted),
		slog.Int64("codes_deleted", deleted.CodesDeleted),
	)
	s.producer.AccountDeleted(ctx, deleted)

	return nil
}

// SessionTTL returns how long issued sessions live.
func (s *AccountService) SessionTTL() time.Duration {
	return s.sessions.TTL()
}
