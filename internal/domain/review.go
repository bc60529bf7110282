package domain

import "time"

// Review is a buyer rating left on a product by redeeming a review code.
// Reviews are immutable.
type Review struct {
	ID           int64     `json:"id"`
	ProductID    int64     `json:"product_id"`
	ReviewCodeID *int64    `json:"-"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
}

// SellerReview is a review as shown in a seller's feed.
type SellerReview struct {
	Review
	ProductName string `json:"product_name"`
}

// ReviewSummary contains aggregate review statistics for a product.
type ReviewSummary struct {
	AverageRating float64 `json:"average_rating"`
	TotalCount    int     `json:"total_count"`
}

// SummarizeReviews computes the count and mean rating of reviews.
func SummarizeReviews(reviews []Review) ReviewSummary {
	if len(reviews) == 0 {
		return ReviewSummary{}
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	return ReviewSummary{
		AverageRating: float64(total) / float64(len(reviews)),
		TotalCount:    len(reviews),
	}
}

// Rating bounds.
const (
	MinRating        = 1
	MaxRating        = 5
	MaxCommentLength = 1000
)
