package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/oakmart/storefront/pkg/errors"
	"github.com/oakmart/storefront/pkg/httputil"
	"github.com/oakmart/storefront/pkg/middleware"
	"github.com/oakmart/storefront/pkg/validator"

	"github.com/oakmart/storefront/internal/service"
)

// ReviewHandler handles HTTP requests for product review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	users   *service.UserService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, users *service.UserService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{
		service: svc,
		users:   users,
		logger:  logger,
	}
}

// UpsertReviewRequest is the JSON request body for creating or replacing a review.
type UpsertReviewRequest struct {
	Rating  float64 `json:"rating" validate:"required,min=1,max=5"`
	Comment string  `json:"comment"`
}

// UpsertReview handles PUT /api/v1/products/{id}/reviews
// A second review by the same user overwrites their existing one.
func (h *ReviewHandler) UpsertReview(w http.ResponseWriter, r *http.Request) {
	productID, ok := httputil.ParseUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpsertReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, newBadBody(err), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	userID := middleware.UserIDFromContext(r.Context())
	user, err := h.users.GetProfile(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	product, err := h.service.UpsertReview(r.Context(), &service.UpsertReviewInput{
		ProductID: productID.String(),
		UserID:    userID,
		UserName:  user.Name,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"message": "review saved successfully",
		"product": product,
	})
}

// ListReviews handles GET /api/v1/products/reviews?id={productID}
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("id")
	if productID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("id query parameter is required"), h.logger)
		return
	}

	reviews, err := h.service.ListReviews(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{"reviews": reviews})
}

// DeleteReview handles DELETE /api/v1/products/reviews?productId={productID}&id={reviewID}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	productID := r.URL.Query().Get("productId")
	reviewID := r.URL.Query().Get("id")
	if productID == "" || reviewID == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("productId and id query parameters are required"), h.logger)
		return
	}

	product, err := h.service.DeleteReview(r.Context(), productID, reviewID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, httputil.Envelope{
		"ratings":        product.Ratings,
		"num_of_reviews": product.NumOfReviews,
	})
}
