package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/isokoinfo/marketplace/internal/domain"
	"github.com/isokoinfo/marketplace/internal/service"
	"github.com/isokoinfo/marketplace/internal/view"
	apperrors "github.com/isokoinfo/marketplace/pkg/errors"
)

// multipartMemory is how much of a multipart form is buffered in memory
// before spilling to temporary files.
const multipartMemory = 8 << 20

// formOverhead allows for the non-file fields of a product form on top of
// the image size limit.
const formOverhead = 1 << 20

// Dashboard handles GET /dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	sess := session(r)
	products, err := h.catalog.ListSellerProducts(r.Context(), sess.UserID)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.PageDashboard, "Dashboard", products)
}

// Products handles GET /products?category=&marketplace=
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	catalog, err := h.catalog.ListProducts(r.Context(), domain.ProductFilter{
		Category:    q.Get("category"),
		Marketplace: q.Get("marketplace"),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.PageProducts, "Products", catalog)
}

// ProductDetail handles GET /product/{id}
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.renderNotFound(w, r)
		return
	}

	detail, err := h.catalog.GetProductDetail(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.PageProductDetail, detail.Product.Name, detail)
}

// AddProductPage handles GET /addproduct
func (h *Handler) AddProductPage(w http.ResponseWriter, r *http.Request) {
	markets, err := h.catalog.ListMarkets(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.PageAddProduct, "Add product", view.ProductForm{Markets: markets})
}

// AddProduct handles POST /addproduct
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	in, cleanup, err := h.parseProductForm(w, r)
	defer cleanup()
	if err != nil {
		h.fail(w, r, err, "/addproduct")
		return
	}

	if _, err := h.catalog.AddProduct(r.Context(), session(r).UserID, in); err != nil {
		h.fail(w, r, err, "/addproduct")
		return
	}
	h.redirect(w, r, "/dashboard", view.FlashSuccess, "Product added successfully!")
}

// UpdateProductPage handles GET /update/{id}
func (h *Handler) UpdateProductPage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.renderNotFound(w, r)
		return
	}

	product, err := h.catalog.GetOwnedProduct(r.Context(), session(r).UserID, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrForbidden) {
			h.redirect(w, r, "/dashboard", view.FlashError, apperrors.PublicMessage(err))
			return
		}
		h.renderError(w, r, err)
		return
	}

	markets, err := h.catalog.ListMarkets(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, view.PageUpdateProduct, "Edit "+product.Name,
		view.ProductForm{Product: product, Markets: markets})
}

// UpdateProduct handles POST /update/{id}
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.renderNotFound(w, r)
		return
	}
	back := "/update/" + strconv.FormatInt(id, 10)

	in, cleanup, err := h.parseProductForm(w, r)
	defer cleanup()
	if err != nil {
		h.fail(w, r, err, back)
		return
	}

	if _, err := h.catalog.UpdateProduct(r.Context(), session(r).UserID, id, in); err != nil {
		if errors.Is(err, apperrors.ErrForbidden) {
			back = "/dashboard"
		}
		h.fail(w, r, err, back)
		return
	}
	h.redirect(w, r, "/dashboard", view.FlashSuccess, "Product updated successfully!")
}

// DeleteProduct handles POST /delete/{id}
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.renderNotFound(w, r)
		return
	}

	if err := h.catalog.DeleteProduct(r.Context(), session(r).UserID, id); err != nil {
		h.fail(w, r, err, "/dashboard")
		return
	}
	h.redirect(w, r, "/dashboard", view.FlashSuccess, "Product deleted!")
}

// parseProductForm reads a multipart product form. The returned cleanup
// must always be called.
func (h *Handler) parseProductForm(w http.ResponseWriter, r *http.Request) (service.ProductInput, func(), error) {
	var in service.ProductInput
	cleanup := func() {}

	if h.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes+formOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return in, cleanup, apperrors.InvalidInput(domain.MsgImageTooLarge)
		}
		return in, cleanup, apperrors.InvalidInput("Invalid form submission.")
	}
	cleanup = func() { _ = r.MultipartForm.RemoveAll() }

	in = service.ProductInput{
		Name:        r.PostForm.Get("name"),
		Price:       r.PostForm.Get("price"),
		Category:    r.PostForm.Get("category"),
		MarketID:    r.PostForm.Get("market_id"),
		SellingUnit: r.PostForm.Get("selling_unit"),
	}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return in, cleanup, nil
	case err != nil:
		return in, cleanup, fmt.Errorf("read image: %w", err)
	}
	if header.Size == 0 {
		_ = file.Close()
		return in, cleanup, nil
	}
	prev := cleanup
	cleanup = func() {
		_ = file.Close()
		prev()
	}

	// The declared content type is not trusted; sniff the first bytes.
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return in, cleanup, fmt.Errorf("read image: %w", err)
	}
	head = head[:n]

	in.Image = &service.ImageUpload{
		Filename:    header.Filename,
		ContentType: http.DetectContentType(head),
		Size:        header.Size,
		Data:        io.MultiReader(bytes.NewReader(head), file),
	}
	return in, cleanup, nil
}
