package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/isokoinfo/marketplace/internal/domain"
	"github.com/isokoinfo/marketplace/internal/event"
	"github.com/isokoinfo/marketplace/internal/media"
	"github.com/isokoinfo/marketplace/internal/repository"
	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
)

// CatalogService implements product listing and market operations.
type CatalogService struct {
	repos    repository.Repositories
	tx       repository.TxRunner
	ledger   *ReviewLedger
	images   *imageStore
	producer *event.Producer
	logger   *slog.Logger
}

// CatalogConfig holds image settings for the catalog.
type CatalogConfig struct {
	// ImageFolder is the media store folder product images go to.
	ImageFolder string
	// MaxImageBytes rejects larger uploads; 0 disables the check.
	MaxImageBytes int64
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(
	repos repository.Repositories,
	tx repository.TxRunner,
	ledger *ReviewLedger,
	store media.Store,
	cfg CatalogConfig,
	producer *event.Producer,
	logger *slog.Logger,
) *CatalogService {
	if cfg.ImageFolder == "" {
		cfg.ImageFolder = domain.ImageFolder
	}
	return &CatalogService{
		repos:  repos,
		tx:     tx,
		ledger: ledger,
		images: &imageStore{
			store:    store,
			folder:   cfg.ImageFolder,
			maxBytes: cfg.MaxImageBytes,
			logger:   logger,
		},
		producer: producer,
		logger:   logger,
	}
}

// ProductInput holds raw form values for creating or editing a product.
// Image is nil when no file was chosen.
type ProductInput struct {
	Name        string
	Price       string
	Category    string
	MarketID    string
	SellingUnit string
	Image       *ImageUpload
}

type productFields struct {
	name        string
	price       float64
	category    string
	marketID    int64
	sellingUnit string
}

func parseProductInput(in ProductInput) (*productFields, error) {
	f := &productFields{
		name:        strings.TrimSpace(in.Name),
		category:    strings.TrimSpace(in.Category),
		sellingUnit: strings.TrimSpace(in.SellingUnit),
	}

	if err := domain.ValidateProductName(f.name); err != nil {
		return nil, err
	}

	price, err := domain.ParsePrice(in.Price)
	if err != nil {
		return nil, err
	}
	f.price = price

	if err := domain.ValidateCategory(f.category); err != nil {
		return nil, err
	}

	if f.marketID, err = domain.ParseMarketID(in.MarketID); err != nil {
		return nil, err
	}

	if err := domain.ValidateSellingUnit(f.sellingUnit); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *productFields) apply(p *domain.Product) {
	p.Name = f.name
	p.Price = f.price
	p.Category = f.category
	p.MarketID = f.marketID
	p.SellingUnit = f.sellingUnit
}

// requireMarket resolves a market chosen in a form.
func requireMarket(ctx context.Context, markets repository.MarketRepository, id int64) (*domain.Market, error) {
	m, err := markets.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.InvalidInput(domain.MsgUnknownMarket)
		}
		return nil, fmt.Errorf("get market: %w", err)
	}
	return m, nil
}

// AddProduct validates the form, uploads the image and stores the product.
// The seller's first review code is minted in the same transaction. If the
// transaction fails the uploaded image is destroyed again.
func (s *CatalogService) AddProduct(ctx context.Context, ownerID int64, in ProductInput) (*domain.Product, error) {
	fields, err := parseProductInput(in)
	if err != nil {
		return nil, err
	}
	if in.Image == nil {
		return nil, apperrors.InvalidInput(domain.MsgImageRequired)
	}
	if err := s.images.validate(in.Image); err != nil {
		return nil, err
	}

	uploaded, err := s.images.upload(ctx, in.Image)
	if err != nil {
		return nil, err
	}

	product := &domain.Product{
		UserID:        ownerID,
		ImageURL:      uploaded.URL,
		ImagePublicID: uploaded.PublicID,
	}
	fields.apply(product)

	err = s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		market, err := requireMarket(ctx, r.Markets, product.MarketID)
		if err != nil {
			return err
		}
		product.MarketName = market.Name

		if err := r.Products.Create(ctx, product); err != nil {
			return fmt.Errorf("create product: %w", err)
		}

		if _, err := s.ledger.EnsureCode(ctx, r.ReviewCodes, ownerID); err != nil {
			return fmt.Errorf("ensure review code: %w", err)
		}
		return nil
	})
	if err != nil {
		s.images.destroy(ctx, uploaded.PublicID, "add product rolled back")
		return nil, err
	}

	s.logger.InfoContext(ctx, "product added",
		slog.Int64("product_id", product.ID),
		slog.Int64("user_id", ownerID),
	)
	s.producer.ProductCreated(ctx, product)

	return product, nil
}

// GetOwnedProduct returns a product for editing by its owner.
func (s *CatalogService) GetOwnedProduct(ctx context.Context, requesterID, productID int64) (*domain.Product, error) {
	product, err := s.repos.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.OwnedBy(requesterID) {
		return nil, apperrors.Forbidden(domain.MsgNoEditPermission)
	}
	return product, nil
}

// UpdateProduct edits a product owned by requesterID. A new image is
// uploaded before anything else changes; the old image is destroyed only
// after the update commits, and the new one is destroyed if it does not.
func (s *CatalogService) UpdateProduct(ctx context.Context, requesterID, productID int64, in ProductInput) (*domain.Product, error) {
	if _, err := s.GetOwnedProduct(ctx, requesterID, productID); err != nil {
		return nil, err
	}

	fields, err := parseProductInput(in)
	if err != nil {
		return nil, err
	}

	var uploaded *media.UploadResult
	if in.Image != nil {
		if err := s.images.validate(in.Image); err != nil {
			return nil, err
		}
		if uploaded, err = s.images.upload(ctx, in.Image); err != nil {
			return nil, err
		}
	}

	var product *domain.Product
	var oldPublicID string
	err = s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		var err error
		product, err = r.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if !product.OwnedBy(requesterID) {
			return apperrors.Forbidden(domain.MsgNoEditPermission)
		}

		market, err := requireMarket(ctx, r.Markets, fields.marketID)
		if err != nil {
			return err
		}

		fields.apply(product)
		product.MarketName = market.Name
		if uploaded != nil {
			oldPublicID = product.ImagePublicID
			product.ImageURL = uploaded.URL
			product.ImagePublicID = uploaded.PublicID
		}

		if err := r.Products.Update(ctx, product); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		return nil
	})
	if err != nil {
		if uploaded != nil {
			s.images.destroy(ctx, uploaded.PublicID, "update product rolled back")
		}
		return nil, err
	}

	if uploaded != nil {
		s.images.destroy(ctx, oldPublicID, "replaced by new image")
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.Int64("product_id", product.ID),
		slog.Int64("user_id", requesterID),
		slog.Bool("image_replaced", uploaded != nil),
	)
	s.producer.ProductUpdated(ctx, product)

	return product, nil
}

// DeleteProduct removes a product owned by requesterID together with its
// reviews, then destroys its image.
func (s *CatalogService) DeleteProduct(ctx context.Context, requesterID, productID int64) error {
	var product *domain.Product
	var reviewsDeleted int64
	err := s.tx.WithinTx(ctx, func(r repository.Repositories) error {
		var err error
		product, err = r.Products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if !product.OwnedBy(requesterID) {
			return apperrors.Forbidden(domain.MsgNoDeletePerm)
		}

		if reviewsDeleted, err = r.Reviews.DeleteByProduct(ctx, productID); err != nil {
			return fmt.Errorf("delete product reviews: %w", err)
		}
		if err := r.Products.Delete(ctx, productID); err != nil {
			return fmt.Errorf("delete product: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.images.destroy(ctx, product.ImagePublicID, "product deleted")

	s.logger.InfoContext(ctx, "product deleted",
		slog.Int64("product_id", productID),
		slog.Int64("user_id", requesterID),
		slog.Int64("reviews_deleted", reviewsDeleted),
	)
	s.producer.ProductDeleted(ctx, product)

	return nil
}

// ListProducts returns the public catalog filtered by exact category and
// marketplace name, plus every category and marketplace to filter on.
func (s *CatalogService) ListProducts(ctx context.Context, filter domain.ProductFilter) (*domain.Catalog, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Marketplace = strings.TrimSpace(filter.Marketplace)

	products, err := s.repos.Products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	categories, err := s.repos.Products.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	markets, err := s.repos.Markets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}
	marketplaces := make([]string, 0, len(markets))
	for _, m := range markets {
		marketplaces = append(marketplaces, m.Name)
	}

	return &domain.Catalog{
		Products:     products,
		Categories:   categories,
		Marketplaces: marketplaces,
		Filter:       filter,
	}, nil
}

// GetProduct returns a product by id.
func (s *CatalogService) GetProduct(ctx context.Context, productID int64) (*domain.Product, error) {
	return s.repos.Products.GetByID(ctx, productID)
}

// GetProductDetail returns a product with its reviews and rating summary.
func (s *CatalogService) GetProductDetail(ctx context.Context, productID int64) (*domain.ProductDetail, error) {
	product, err := s.repos.Products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	reviews, err := s.repos.Reviews.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	return &domain.ProductDetail{
		Product: *product,
		Reviews: reviews,
		Summary: domain.SummarizeReviews(reviews),
	}, nil
}

// ListSellerProducts returns the products owned by userID.
func (s *CatalogService) ListSellerProducts(ctx context.Context, userID int64) ([]domain.Product, error) {
	products, err := s.repos.Products.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list seller products: %w", err)
	}
	return products, nil
}

// ListMarkets returns every market ordered by name.
func (s *CatalogService) ListMarkets(ctx context.Context) ([]domain.Market, error) {
	markets, err := s.repos.Markets.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list markets: %w", err)
	}
	return markets, nil
}

// CreateMarket adds a market. Names are unique.
func (s *CatalogService) CreateMarket(ctx context.Context, name string) (*domain.Market, error) {
	name = strings.TrimSpace(name)
	if err := domain.ValidateMarketName(name); err != nil {
		return nil, err
	}

	market := &domain.Market{Name: name}
	if err := s.repos.Markets.Create(ctx, market); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "market created",
		slog.Int64("market_id", market.ID),
		slog.String("name", market.Name),
	)
	return market, nil
}
