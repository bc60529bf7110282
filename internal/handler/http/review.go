package http

import (
	"net/http"
	"strconv"

	"github.com/isokoinfo/marketplace/internal/service"
	"github.com/isokoinfo/marketplace/internal/view"
)

// ReviewPage handles GET /review/{product_id}
func (h *Handler) ReviewPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "product_id")
	if !ok {
		h.renderNotFound(w, r)
		return
	}

	product, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.PageReview, "Review "+product.Name, product)
}

// SubmitReview handles POST /submitrev/{product_id}
func (h *Handler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "product_id")
	if !ok {
		h.renderNotFound(w, r)
		return
	}
	productPath := strconv.FormatInt(id, 10)

	if err := r.ParseForm(); err != nil {
		h.redirect(w, r, "/review/"+productPath, view.FlashError, "Invalid form submission.")
		return
	}

	_, err := h.reviews.Redeem(r.Context(), service.RedeemInput{
		Code:      r.PostForm.Get("review_code"),
		ProductID: id,
		Rating:    r.PostForm.Get("rating"),
		Comment:   r.PostForm.Get("comment"),
	})
	if err != nil {
		h.fail(w, r, err, "/review/"+productPath)
		return
	}
	h.redirect(w, r, "/product/"+productPath, view.FlashSuccess, "Thank you for the review!")
}

// UserFeedback handles GET /ufeed
func (h *Handler) UserFeedback(w http.ResponseWriter, r *http.Request) {
	feed, err := h.reviews.SellerFeed(r.Context(), session(r).UserID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.PageUserFeedback, "Feedback", feed)
}
