package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/isokoinfo/marketplace/internal/domain"
	"github.com/isokoinfo/marketplace/internal/event"
	"github.com/isokoinfo/marketplace/internal/repository"
	"github.com/isokoinfo/marketplace/internal/repository/postgres"
	"github.com/isokoinfo/marketplace/internal/service"
	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
)

type sellerDef struct {
	name   string
	tel    string
	market string
}

type productDef struct {
	name     string
	price    float64
	category string
	unit     string
}

var (
	seedMarkets = []string{"Gikomba", "Wakulima", "Toi", "Kongowea"}

	seedSellers = []sellerDef{
		{"mama_mboga", "0712345678", "Wakulima"},
		{"otieno_fish", "0723456789", "Kongowea"},
		{"wanjiku_wear", "0734567890", "Gikomba"},
		{"toi_shoes", "0745678901", "Toi"},
	}

	seedProducts = map[string][]productDef{
		"mama_mboga": {
			{"Tomatoes", 120, "Vegetables", "kg"},
			{"Sukuma Wiki", 30, "Vegetables", "bunch"},
			{"Red Onions", 150, "Vegetables", "kg"},
			{"Avocados", 20, "Fruit", "piece"},
		},
		"otieno_fish": {
			{"Tilapia", 450, "Fish", "kg"},
			{"Omena", 200, "Fish", "tin"},
		},
		"wanjiku_wear": {
			{"Denim Jacket", 900, "Clothing", "piece"},
			{"Cotton T-Shirt", 250, "Clothing", "piece"},
			{"Kitenge Dress", 1500, "Clothing", "piece"},
		},
		"toi_shoes": {
			{"Leather Sandals", 600, "Shoes", "pair"},
			{"Canvas Sneakers", 1200, "Shoes", "pair"},
		},
	}
)

func newSeedCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Populate the database with demo data",
		Long: `Create demo markets, sellers and products for local development.
Existing markets and sellers are left as they are, so the command can be
run repeatedly. Products get placeholder image URLs and no media store is
contacted.

Examples:
  isokoinfo seed
  isokoinfo seed --password "Passw0rd!"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withDatabase(cmd.Context(), func(ctx context.Context, pool *pgxpool.Pool, log *slog.Logger) error {
				s := newSeeder(pool, log)
				if err := s.run(ctx, password); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d market(s), %d seller(s), %d product(s)\n",
					s.markets, s.sellers, s.products)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&password, "password", "Passw0rd!", "Password for every seeded seller")
	return cmd
}

type seeder struct {
	store    *postgres.Store
	catalog  *service.CatalogService
	accounts *service.AccountService
	ledger   *service.ReviewLedger
	log      *slog.Logger

	markets, sellers, products int
}

func newSeeder(pool *pgxpool.Pool, log *slog.Logger) *seeder {
	store := postgres.NewStore(pool)
	repos := store.Repositories()
	events := event.NewProducer(nil, log)
	ledger := service.NewReviewLedger(repos, store, events, log, nil)

	return &seeder{
		store:    store,
		catalog:  service.NewCatalogService(repos, store, ledger, nil, service.CatalogConfig{}, events, log),
		accounts: service.NewAccountService(repos, store, nil, nil, nil, events, log),
		ledger:   ledger,
		log:      log,
	}
}

func (s *seeder) run(ctx context.Context, password string) error {
	for _, name := range seedMarkets {
		_, err := s.catalog.CreateMarket(ctx, name)
		switch {
		case err == nil:
			s.markets++
		case errors.Is(err, apperrors.ErrAlreadyExists):
		default:
			return fmt.Errorf("create market %q: %w", name, err)
		}
	}

	markets, err := s.catalog.ListMarkets(ctx)
	if err != nil {
		return err
	}
	marketIDs := make(map[string]int64, len(markets))
	for _, m := range markets {
		marketIDs[m.Name] = m.ID
	}

	for _, def := range seedSellers {
		marketID := marketIDs[def.market]
		user, err := s.accounts.Register(ctx, service.RegisterInput{
			Name:            def.name,
			Password:        password,
			ConfirmPassword: password,
			Tel:             def.tel,
			MarketID:        fmt.Sprint(marketID),
		})
		if errors.Is(err, apperrors.ErrAlreadyExists) {
			s.log.Info("seller exists, skipping", slog.String("name", def.name))
			continue
		}
		if err != nil {
			return fmt.Errorf("register seller %q: %w", def.name, err)
		}
		s.sellers++

		for _, p := range seedProducts[def.name] {
			if err := s.addProduct(ctx, user.ID, marketID, p); err != nil {
				return fmt.Errorf("add product %q: %w", p.name, err)
			}
			s.products++
		}
	}
	return nil
}

// addProduct inserts a product with a placeholder image and makes sure the
// seller has a live review code, as adding a product through the site does.
func (s *seeder) addProduct(ctx context.Context, userID, marketID int64, def productDef) error {
	product := &domain.Product{
		UserID:      userID,
		Name:        def.name,
		Price:       def.price,
		Category:    def.category,
		MarketID:    marketID,
		SellingUnit: def.unit,
		ImageURL:    "https://placehold.co/600x400?text=" + url.QueryEscape(def.name),
	}
	return s.store.WithinTx(ctx, func(r repository.Repositories) error {
		if err := r.Products.Create(ctx, product); err != nil {
			return err
		}
		_, err := s.ledger.EnsureCode(ctx, r.ReviewCodes, userID)
		return err
	})
}
