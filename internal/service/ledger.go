package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/isokoinfo/marketplace/internal/domain"
	"github.com/isokoinfo/marketplace/internal/event"
	"github.com/isokoinfo/marketplace/internal/repository"
	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
)

// maxCodeAttempts bounds how many fresh codes are tried before issuing
// gives up. With 36^8 possible codes a single retry is already rare.
const maxCodeAttempts = 10

// CodeGenerator returns a random review code.
type CodeGenerator func() (string, error)

// RandomCode draws ReviewCodeLength characters uniformly from
// ReviewCodeAlphabet using crypto/rand.
func RandomCode() (string, error) {
	alphabet := big.NewInt(int64(len(domain.ReviewCodeAlphabet)))
	var b strings.Builder
	b.Grow(domain.ReviewCodeLength)
	for i := 0; i < domain.ReviewCodeLength; i++ {
		n, err := rand.Int(rand.Reader, alphabet)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		b.WriteByte(domain.ReviewCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// ReviewLedger issues and redeems single-use review codes.
type ReviewLedger struct {
	repos    repository.Repositories
	tx       repository.TxRunner
	producer *event.Producer
	logger   *slog.Logger
	generate CodeGenerator
}

// NewReviewLedger creates a new review ledger. A nil generate uses
// RandomCode.
func NewReviewLedger(
	repos repository.Repositories,
	tx repository.TxRunner,
	producer *event.Producer,
	logger *slog.Logger,
	generate CodeGenerator,
) *ReviewLedger {
	if generate == nil {
		generate = RandomCode
	}
	return &ReviewLedger{
		repos:    repos,
		tx:       tx,
		producer: producer,
		logger:   logger,
		generate: generate,
	}
}

// RedeemInput holds the parameters for redeeming a review code.
type RedeemInput struct {
	Code      string
	ProductID int64
	Rating    string
	Comment   string
}

// Issue mints a new unused code for userID.
func (l *ReviewLedger) Issue(ctx context.Context, userID int64) (*domain.ReviewCode, error) {
	var code *domain.ReviewCode
	err := l.tx.WithinTx(ctx, func(r repository.Repositories) error {
		var err error
		code, err = l.issueWith(ctx, r.ReviewCodes, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return code, nil
}

// EnsureCode returns the seller's unused code, minting one if there is
// none. codes must be bound to the caller's transaction.
func (l *ReviewLedger) EnsureCode(ctx context.Context, codes repository.ReviewCodeRepository, userID int64) (*domain.ReviewCode, error) {
	code, err := codes.GetActiveByUser(ctx, userID)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("get active review code: %w", err)
	}

	code, err = l.issueWith(ctx, codes, userID)
	if errors.Is(err, apperrors.ErrAlreadyExists) {
		// A concurrent request minted the seller's code first.
		if code, err = codes.GetActiveByUser(ctx, userID); err != nil {
			return nil, fmt.Errorf("get active review code: %w", err)
		}
	}
	return code, err
}

// issueWith generates codes until one does not collide with any code ever
// issued, then persists it through codes.
func (l *ReviewLedger) issueWith(ctx context.Context, codes repository.ReviewCodeRepository, userID int64) (*domain.ReviewCode, error) {
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		value, err := l.generate()
		if err != nil {
			return nil, fmt.Errorf("generate review code: %w", err)
		}

		code := &domain.ReviewCode{Code: value, UserID: userID}
		err = codes.Create(ctx, code)
		if err == nil {
			reviewCodesIssued.Inc()
			l.logger.InfoContext(ctx, "review code issued",
				slog.Int64("user_id", userID),
				slog.Int64("review_code_id", code.ID),
			)
			return code, nil
		}
		if !errors.Is(err, domain.ErrCodeCollision) {
			return nil, fmt.Errorf("create review code: %w", err)
		}

		reviewCodeCollisions.Inc()
		l.logger.WarnContext(ctx, "review code collision, regenerating", slog.Int("attempt", attempt))
	}
	return nil, fmt.Errorf("no unique review code after %d attempts", maxCodeAttempts)
}

// Redeem spends a code on a review of productID. Marking the code used,
// creating the review and minting the seller's next code commit together.
// Concurrent redemptions of one code serialize on the code's row lock, so
// all but the first observe an invalid code.
func (l *ReviewLedger) Redeem(ctx context.Context, in RedeemInput) (*domain.Review, error) {
	rating, err := domain.ParseRating(in.Rating)
	if err != nil {
		reviewRedemptions.WithLabelValues(redeemInvalidInput).Inc()
		return nil, err
	}
	comment := strings.TrimSpace(in.Comment)
	if err := domain.ValidateComment(comment); err != nil {
		reviewRedemptions.WithLabelValues(redeemInvalidInput).Inc()
		return nil, err
	}

	value := strings.ToUpper(strings.TrimSpace(in.Code))
	if !domain.IsWellFormedCode(value) {
		reviewRedemptions.WithLabelValues(redeemInvalidCode).Inc()
		return nil, apperrors.Unprocessable(domain.MsgInvalidCode, domain.ErrInvalidCode)
	}

	var (
		review   *domain.Review
		sellerID int64
	)
	err = l.tx.WithinTx(ctx, func(r repository.Repositories) error {
		code, err := r.ReviewCodes.LockUnused(ctx, value)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidCode) {
				return apperrors.Unprocessable(domain.MsgInvalidCode, domain.ErrInvalidCode)
			}
			return err
		}

		product, err := r.Products.GetByID(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if !product.OwnedBy(code.UserID) {
			return apperrors.Unprocessable(domain.MsgCodeWrongSeller, domain.ErrOwnershipMismatch)
		}

		if err := r.ReviewCodes.MarkUsed(ctx, code.ID); err != nil {
			if errors.Is(err, domain.ErrInvalidCode) {
				return apperrors.Unprocessable(domain.MsgInvalidCode, domain.ErrInvalidCode)
			}
			return err
		}

		review = &domain.Review{
			ProductID:    product.ID,
			ReviewCodeID: &code.ID,
			Rating:       rating,
			Comment:      comment,
		}
		if err := r.Reviews.Create(ctx, review); err != nil {
			return err
		}

		if _, err := l.issueWith(ctx, r.ReviewCodes, code.UserID); err != nil {
			return err
		}
		sellerID = code.UserID
		return nil
	})
	if err != nil {
		reviewRedemptions.WithLabelValues(redemptionResult(err)).Inc()
		return nil, err
	}

	reviewRedemptions.WithLabelValues(redeemOK).Inc()
	l.logger.InfoContext(ctx, "review submitted",
		slog.Int64("review_id", review.ID),
		slog.Int64("product_id", review.ProductID),
		slog.Int64("seller_id", sellerID),
	)
	l.producer.ReviewSubmitted(ctx, review, sellerID)

	return review, nil
}

// SellerFeed returns the seller's live code and the reviews received.
func (l *ReviewLedger) SellerFeed(ctx context.Context, userID int64) (*domain.SellerFeed, error) {
	feed := &domain.SellerFeed{}

	code, err := l.repos.ReviewCodes.GetActiveByUser(ctx, userID)
	switch {
	case err == nil:
		feed.ActiveCode = code
	case !errors.Is(err, apperrors.ErrNotFound):
		return nil, fmt.Errorf("get active review code: %w", err)
	}

	reviews, err := l.repos.Reviews.ListBySeller(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list seller reviews: %w", err)
	}
	feed.Reviews = reviews
	return feed, nil
}

func redemptionResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidCode):
		return redeemInvalidCode
	case errors.Is(err, domain.ErrOwnershipMismatch):
		return redeemWrongSeller
	case errors.Is(err, apperrors.ErrNotFound):
		return redeemNoProduct
	default:
		return redeemError
	}
}
