package repository

import (
	"context"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/query"
)

// ProductRepository defines the interface for product persistence operations.
type ProductRepository interface {
	// Create inserts a new product into the store.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// GetBySlug retrieves a product by its URL-friendly slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Product, error)

	// List returns products matching the builder's predicates and pagination.
	List(ctx context.Context, q *query.Builder) ([]domain.Product, error)

	// CountFiltered returns the number of products matching the builder's
	// predicates, ignoring pagination.
	CountFiltered(ctx context.Context, q *query.Builder) (int, error)

	// Count returns the total number of products in the catalog.
	Count(ctx context.Context) (int, error)

	// ListAll returns every product, unfiltered and unpaginated.
	ListAll(ctx context.Context) ([]domain.Product, error)

	// Update modifies an existing product in the store.
	Update(ctx context.Context, product *domain.Product) error

	// UpdateReviews persists only the review state of a product, leaving the
	// other columns untouched.
	UpdateReviews(ctx context.Context, productID string, reviews []domain.Review, ratings float64, numOfReviews int) error

	// Delete removes a product from the store by its identifier.
	Delete(ctx context.Context, id string) error
}

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByResetToken retrieves a user by the sha256 digest of an unexpired
	// password reset token.
	GetByResetToken(ctx context.Context, tokenHash string) (*domain.User, error)

	// List returns all users.
	List(ctx context.Context) ([]domain.User, error)

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user from the store by its identifier.
	Delete(ctx context.Context, id string) error
}
