package service

import (
	"context"
	"log/slog"
	"os"

	"github.com/stretchr/testify/mock"

	"github.com/isokoinfo/marketplace/internal/domain"
	"github.com/isokoinfo/marketplace/internal/event"
	"github.com/isokoinfo/marketplace/internal/repository"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetAccount(ctx context.Context, id int64) (*domain.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Account), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Mock Market Repository ---

type mockMarketRepository struct {
	mock.Mock
}

func (m *mockMarketRepository) Create(ctx context.Context, market *domain.Market) error {
	args := m.Called(ctx, market)
	return args.Error(0)
}

func (m *mockMarketRepository) GetByID(ctx context.Context, id int64) (*domain.Market, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Market), args.Error(1)
}

func (m *mockMarketRepository) List(ctx context.Context) ([]domain.Market, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Market), args.Error(1)
}

// --- Mock Product Repository ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Product, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) Categories(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockProductRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Review Repository ---

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Create(ctx context.Context, review *domain.Review) error {
	args := m.Called(ctx, review)
	return args.Error(0)
}

func (m *mockReviewRepository) ListByProduct(ctx context.Context, productID int64) ([]domain.Review, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListBySeller(ctx context.Context, userID int64) ([]domain.SellerReview, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]domain.SellerReview), args.Error(1)
}

func (m *mockReviewRepository) DeleteByProduct(ctx context.Context, productID int64) (int64, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockReviewRepository) DeleteBySeller(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock Review Code Repository ---

type mockReviewCodeRepository struct {
	mock.Mock
}

func (m *mockReviewCodeRepository) Create(ctx context.Context, code *domain.ReviewCode) error {
	args := m.Called(ctx, code)
	return args.Error(0)
}

func (m *mockReviewCodeRepository) GetActiveByUser(ctx context.Context, userID int64) (*domain.ReviewCode, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewCode), args.Error(1)
}

func (m *mockReviewCodeRepository) LockUnused(ctx context.Context, code string) (*domain.ReviewCode, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReviewCode), args.Error(1)
}

func (m *mockReviewCodeRepository) MarkUsed(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockReviewCodeRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Fake transaction runner ---

// fakeTx runs fn against the mock repositories. commitErr is returned
// after fn succeeds, as if the commit itself failed.
type fakeTx struct {
	repos     repository.Repositories
	commitErr error
	calls     int
}

func (f *fakeTx) WithinTx(_ context.Context, fn func(repository.Repositories) error) error {
	f.calls++
	if err := fn(f.repos); err != nil {
		return err
	}
	return f.commitErr
}

// --- Test Helpers ---

type testRepos struct {
	users    *mockUserRepository
	markets  *mockMarketRepository
	products *mockProductRepository
	reviews  *mockReviewRepository
	codes    *mockReviewCodeRepository
	tx       *fakeTx
}

func newTestRepos() *testRepos {
	r := &testRepos{
		users:    new(mockUserRepository),
		markets:  new(mockMarketRepository),
		products: new(mockProductRepository),
		reviews:  new(mockReviewRepository),
		codes:    new(mockReviewCodeRepository),
	}
	r.tx = &fakeTx{repos: r.repositories()}
	return r
}

func (r *testRepos) repositories() repository.Repositories {
	return repository.Repositories{
		Users:       r.users,
		Markets:     r.markets,
		Products:    r.products,
		Reviews:     r.reviews,
		ReviewCodes: r.codes,
	}
}

func (r *testRepos) assertExpectations(t mock.TestingT) {
	r.users.AssertExpectations(t)
	r.markets.AssertExpectations(t)
	r.products.AssertExpectations(t)
	r.reviews.AssertExpectations(t)
	r.codes.AssertExpectations(t)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEventProducer() *event.Producer {
	return event.NewProducer(nil, newTestLogger())
}

// sequenceCodes returns a generator yielding codes in order.
func sequenceCodes(codes ...string) CodeGenerator {
	i := 0
	return func() (string, error) {
		c := codes[i%len(codes)]
		i++
		return c, nil
	}
}
