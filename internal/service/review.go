package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	apperrors "github.com/oakmart/storefront/pkg/errors"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/event"
	"github.com/oakmart/storefront/internal/repository"
)

// UpsertReviewInput holds the parameters for creating or replacing a review.
type UpsertReviewInput struct {
	ProductID string
	UserID    string
	UserName  string
	Rating    float64
	Comment   string
}

// ReviewService maintains the embedded review list of a product and keeps
// its rating aggregates consistent: num_of_reviews always equals the number
// of reviews, and ratings is the plain mean (zero when no reviews remain).
type ReviewService struct {
	repo     repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// UpsertReview adds a review to the product, or overwrites the rating and
// comment of the caller's existing review when one is present.
func (s *ReviewService) UpsertReview(ctx context.Context, input *UpsertReviewInput) (*domain.Product, error) {
	if input.ProductID == "" {
		return nil, apperrors.InvalidInput("product_id is required")
	}
	if input.UserID == "" {
		return nil, apperrors.InvalidInput("user_id is required")
	}
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}

	product, err := s.repo.GetByID(ctx, input.ProductID)
	if err != nil {
		return nil, fmt.Errorf("get product for review: %w", err)
	}

	var review domain.Review
	if idx := product.ReviewByUser(input.UserID); idx >= 0 {
		product.Reviews[idx].Rating = input.Rating
		product.Reviews[idx].Comment = input.Comment
		review = product.Reviews[idx]
	} else {
		review = domain.Review{
			ID:      uuid.New().String(),
			UserID:  input.UserID,
			Name:    input.UserName,
			Rating:  input.Rating,
			Comment: input.Comment,
		}
		product.Reviews = append(product.Reviews, review)
	}

	product.RecalculateRatings()

	if err := s.repo.UpdateReviews(ctx, product.ID, product.Reviews, product.Ratings, product.NumOfReviews); err != nil {
		return nil, fmt.Errorf("update product reviews: %w", err)
	}

	if err := s.producer.PublishReviewUpserted(ctx, product, &review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.review-upserted event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review upserted",
		slog.String("product_id", product.ID),
		slog.String("review_id", review.ID),
		slog.String("user_id", input.UserID),
		slog.Float64("rating", input.Rating),
	)

	return product, nil
}

// ListReviews returns the reviews embedded in the given product.
func (s *ReviewService) ListReviews(ctx context.Context, productID string) ([]domain.Review, error) {
	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product for reviews: %w", err)
	}
	return product.Reviews, nil
}

// DeleteReview removes the review with the given ID from the product and
// recomputes the rating aggregates.
func (s *ReviewService) DeleteReview(ctx context.Context, productID, reviewID string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product for review delete: %w", err)
	}

	remaining := make([]domain.Review, 0, len(product.Reviews))
	found := false
	for _, r := range product.Reviews {
		if r.ID == reviewID {
			found = true
			continue
		}
		remaining = append(remaining, r)
	}
	if !found {
		return nil, apperrors.NotFound("review", reviewID)
	}

	product.Reviews = remaining
	product.RecalculateRatings()

	if err := s.repo.UpdateReviews(ctx, product.ID, product.Reviews, product.Ratings, product.NumOfReviews); err != nil {
		return nil, fmt.Errorf("update product reviews: %w", err)
	}

	if err := s.producer.PublishReviewDeleted(ctx, product, reviewID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.review-deleted event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("product_id", product.ID),
		slog.String("review_id", reviewID),
	)

	return product, nil
}
