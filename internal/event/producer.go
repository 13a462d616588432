package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/oakmart/storefront/pkg/kafka"

	"github.com/oakmart/storefront/internal/domain"
)

// Kafka topic constants for storefront domain events.
const (
	TopicProductCreated         = "storefront.product.created"
	TopicProductUpdated         = "storefront.product.updated"
	TopicProductDeleted         = "storefront.product.deleted"
	TopicReviewUpserted         = "storefront.product.review-upserted"
	TopicReviewDeleted          = "storefront.product.review-deleted"
	TopicUserRegistered         = "storefront.user.registered"
	TopicUserDeleted            = "storefront.user.deleted"
	TopicPasswordResetRequested = "storefront.user.password-reset-requested"
)

// Aggregate type constants.
const (
	AggregateTypeProduct = "product"
	AggregateTypeUser    = "user"
)

// Source identifier for events originating from this service.
const SourceStorefront = "storefront"

// ProductData is the payload for product.created and product.updated events.
type ProductData struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Slug     string  `json:"slug"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
}

// ProductDeletedData is the payload for a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// ReviewData is the payload for review lifecycle events.
type ReviewData struct {
	ProductID    string  `json:"product_id"`
	ReviewID     string  `json:"review_id,omitempty"`
	UserID       string  `json:"user_id,omitempty"`
	Rating       float64 `json:"rating,omitempty"`
	Ratings      float64 `json:"ratings"`
	NumOfReviews int     `json:"num_of_reviews"`
}

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserDeletedData is the payload for a user.deleted event.
type UserDeletedData struct {
	ID string `json:"id"`
}

// PasswordResetRequestedData is the payload for a user.password-reset-requested event.
type PasswordResetRequestedData struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Producer publishes storefront domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishProductCreated publishes a product.created event.
func (p *Producer) PublishProductCreated(ctx context.Context, product *domain.Product) error {
	return p.publishProduct(ctx, TopicProductCreated, product)
}

// PublishProductUpdated publishes a product.updated event.
func (p *Producer) PublishProductUpdated(ctx context.Context, product *domain.Product) error {
	return p.publishProduct(ctx, TopicProductUpdated, product)
}

func (p *Producer) publishProduct(ctx context.Context, topic string, product *domain.Product) error {
	data := ProductData{
		ID:       product.ID,
		Name:     product.Name,
		Slug:     product.Slug,
		Category: product.Category,
		Price:    product.Price,
		Stock:    product.Stock,
	}

	event, err := pkgkafka.NewEvent(topic, product.ID, AggregateTypeProduct, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published product event",
		slog.String("topic", topic),
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return nil
}

// PublishProductDeleted publishes a product.deleted event.
func (p *Producer) PublishProductDeleted(ctx context.Context, id string) error {
	data := ProductDeletedData{ID: id}

	event, err := pkgkafka.NewEvent(TopicProductDeleted, id, AggregateTypeProduct, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create product.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicProductDeleted, event); err != nil {
		return fmt.Errorf("publish product.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.deleted event",
		slog.String("product_id", id),
	)

	return nil
}

// PublishReviewUpserted publishes a product.review-upserted event.
func (p *Producer) PublishReviewUpserted(ctx context.Context, product *domain.Product, review *domain.Review) error {
	data := ReviewData{
		ProductID:    product.ID,
		ReviewID:     review.ID,
		UserID:       review.UserID,
		Rating:       review.Rating,
		Ratings:      product.Ratings,
		NumOfReviews: product.NumOfReviews,
	}

	event, err := pkgkafka.NewEvent(TopicReviewUpserted, product.ID, AggregateTypeProduct, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create product.review-upserted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewUpserted, event); err != nil {
		return fmt.Errorf("publish product.review-upserted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.review-upserted event",
		slog.String("product_id", product.ID),
		slog.String("review_id", review.ID),
	)

	return nil
}

// PublishReviewDeleted publishes a product.review-deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, product *domain.Product, reviewID string) error {
	data := ReviewData{
		ProductID:    product.ID,
		ReviewID:     reviewID,
		Ratings:      product.Ratings,
		NumOfReviews: product.NumOfReviews,
	}

	event, err := pkgkafka.NewEvent(TopicReviewDeleted, product.ID, AggregateTypeProduct, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create product.review-deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewDeleted, event); err != nil {
		return fmt.Errorf("publish product.review-deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published product.review-deleted event",
		slog.String("product_id", product.ID),
		slog.String("review_id", reviewID),
	)

	return nil
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
	)

	return nil
}

// PublishUserDeleted publishes a user.deleted event.
func (p *Producer) PublishUserDeleted(ctx context.Context, id string) error {
	data := UserDeletedData{ID: id}

	event, err := pkgkafka.NewEvent(TopicUserDeleted, id, AggregateTypeUser, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create user.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserDeleted, event); err != nil {
		return fmt.Errorf("publish user.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.deleted event",
		slog.String("user_id", id),
	)

	return nil
}

// PublishPasswordResetRequested publishes a user.password-reset-requested event.
func (p *Producer) PublishPasswordResetRequested(ctx context.Context, user *domain.User) error {
	data := PasswordResetRequestedData{
		ID:    user.ID,
		Email: user.Email,
	}

	event, err := pkgkafka.NewEvent(TopicPasswordResetRequested, user.ID, AggregateTypeUser, SourceStorefront, data)
	if err != nil {
		return fmt.Errorf("create user.password-reset-requested event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicPasswordResetRequested, event); err != nil {
		return fmt.Errorf("publish user.password-reset-requested event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.password-reset-requested event",
		slog.String("user_id", user.ID),
	)

	return nil
}
