package event

import (
	"context"
	"log/slog"

	"github.com/isokoinfo/marketplace/internal/domain"
	pkgkafka "github.com/isokoinfo/marketplace/pkg/kafka"
	"github.com/isokoinfo/marketplace/pkg/logger"
)

// Kafka topics for marketplace domain events.
var (
	TopicUserRegistered  = pkgkafka.Topic("user", "registered")
	TopicAccountDeleted  = pkgkafka.Topic("user", "deleted")
	TopicProductCreated  = pkgkafka.Topic("product", "created")
	TopicProductUpdated  = pkgkafka.Topic("product", "updated")
	TopicProductDeleted  = pkgkafka.Topic("product", "deleted")
	TopicReviewSubmitted = pkgkafka.Topic("review", "submitted")
)

// Aggregate types.
const (
	AggregateUser    = "user"
	AggregateProduct = "product"
	AggregateReview  = "review"
)

// Source identifies events published by this server.
const Source = "isokoinfo-web"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	MarketID int64  `json:"market_id"`
}

// AccountDeletedData is the payload for a user.deleted event.
type AccountDeletedData struct {
	ID              int64 `json:"id"`
	ProductsDeleted int64 `json:"products_deleted"`
	ReviewsDeleted  int64 `json:"reviews_deleted"`
	CodesDeleted    int64 `json:"codes_deleted"`
}

// ProductData is the payload for product events.
type ProductData struct {
	ID          int64   `json:"id"`
	UserID      int64   `json:"user_id"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	MarketID    int64   `json:"market_id"`
	SellingUnit string  `json:"selling_unit"`
	ImageURL    string  `json:"image_url,omitempty"`
}

// ReviewSubmittedData is the payload for a review.submitted event.
type ReviewSubmittedData struct {
	ID        int64 `json:"id"`
	ProductID int64 `json:"product_id"`
	SellerID  int64 `json:"seller_id"`
	Rating    int   `json:"rating"`
}

// Producer publishes marketplace domain events to Kafka. Publishing is
// best effort: failures are logged and never surface to callers. A nil
// *Producer or one without a Kafka producer discards events.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer. kafka may be nil when event
// publishing is disabled.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// UserRegistered publishes a user.registered event.
func (p *Producer) UserRegistered(ctx context.Context, u *domain.User) {
	p.publish(ctx, TopicUserRegistered, AggregateUser, u.ID, UserRegisteredData{
		ID:       u.ID,
		Name:     u.Name,
		MarketID: u.MarketID,
	})
}

// AccountDeleted publishes a user.deleted event.
func (p *Producer) AccountDeleted(ctx context.Context, data AccountDeletedData) {
	p.publish(ctx, TopicAccountDeleted, AggregateUser, data.ID, data)
}

// ProductCreated publishes a product.created event.
func (p *Producer) ProductCreated(ctx context.Context, prod *domain.Product) {
	p.publish(ctx, TopicProductCreated, AggregateProduct, prod.ID, productData(prod))
}

// ProductUpdated publishes a product.updated event.
func (p *Producer) ProductUpdated(ctx context.Context, prod *domain.Product) {
	p.publish(ctx, TopicProductUpdated, AggregateProduct, prod.ID, productData(prod))
}

// ProductDeleted publishes a product.deleted event.
func (p *Producer) ProductDeleted(ctx context.Context, prod *domain.Product) {
	data := productData(prod)
	data.ImageURL = ""
	p.publish(ctx, TopicProductDeleted, AggregateProduct, prod.ID, data)
}

// ReviewSubmitted publishes a review.submitted event.
func (p *Producer) ReviewSubmitted(ctx context.Context, r *domain.Review, sellerID int64) {
	p.publish(ctx, TopicReviewSubmitted, AggregateReview, r.ID, ReviewSubmittedData{
		ID:        r.ID,
		ProductID: r.ProductID,
		SellerID:  sellerID,
		Rating:    r.Rating,
	})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateType string, aggregateID int64, data any) {
	if p == nil || p.kafka == nil {
		return
	}

	evt, err := pkgkafka.NewEvent(topic, aggregateType, aggregateID, Source, data)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to build event", slog.String("topic", topic), slog.String("error", err.Error()))
		return
	}
	evt.CorrelationID = logger.CorrelationIDFromContext(ctx)

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		p.logger.WarnContext(ctx, "failed to publish event",
			slog.String("topic", topic),
			slog.Int64("aggregate_id", aggregateID),
			slog.String("error", err.Error()),
		)
	}
}

func productData(p *domain.Product) ProductData {
	return ProductData{
		ID:          p.ID,
		UserID:      p.UserID,
		Name:        p.Name,
		Price:       p.Price,
		Category:    p.Category,
		MarketID:    p.MarketID,
		SellingUnit: p.SellingUnit,
		ImageURL:    p.ImageURL,
	}
}
