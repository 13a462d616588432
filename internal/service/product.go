package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/oakmart/storefront/pkg/errors"
	"github.com/oakmart/storefront/pkg/slug"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/event"
	"github.com/oakmart/storefront/internal/query"
	"github.com/oakmart/storefront/internal/repository"
	"github.com/oakmart/storefront/internal/storage"
)

// DefaultResultsPerPage is the page size applied to catalog listings.
const DefaultResultsPerPage = 8

// ProductService implements the business logic for product operations.
type ProductService struct {
	repo     repository.ProductRepository
	storage  storage.Storage
	producer *event.Producer
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(repo repository.ProductRepository, media storage.Storage, producer *event.Producer, logger *slog.Logger) *ProductService {
	return &ProductService{
		repo:     repo,
		storage:  media,
		producer: producer,
		logger:   logger,
	}
}

// CreateProductInput holds the parameters for creating a product.
// Images carries raw image payloads (base64 data URIs) to be uploaded.
type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
	Category    string
	Stock       int
	Images      []string
	UserID      string
}

// UpdateProductInput holds the parameters for updating a product.
// A non-nil Images replaces the entire image set.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *float64
	Category    *string
	Stock       *int
	Images      []string
}

// ProductListing is the result of a catalog query.
type ProductListing struct {
	Products      []domain.Product
	ProductCount  int
	ResultPerPage int
	FilteredCount int
}

// CreateProduct uploads the given images and creates a new product owned by userID.
func (s *ProductService) CreateProduct(ctx context.Context, input *CreateProductInput) (*domain.Product, error) {
	if input.Name == "" {
		return nil, apperrors.InvalidInput("product name is required")
	}
	if input.Price < 0 {
		return nil, apperrors.InvalidInput("price must not be negative")
	}
	if input.Stock < 0 {
		return nil, apperrors.InvalidInput("stock must not be negative")
	}

	images, err := s.uploadImages(ctx, input.Images)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	product := &domain.Product{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Slug:        slug.Generate(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Category:    input.Category,
		Stock:       input.Stock,
		Images:      images,
		Reviews:     []domain.Review{},
		UserID:      input.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}

	if err := s.producer.PublishProductCreated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.created event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
		// Do not fail the operation if event publishing fails.
	}

	s.logger.InfoContext(ctx, "product created",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// GetProduct retrieves a product by its ID.
func (s *ProductService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// GetProductBySlug retrieves a product by its slug.
func (s *ProductService) GetProductBySlug(ctx context.Context, productSlug string) (*domain.Product, error) {
	product, err := s.repo.GetBySlug(ctx, productSlug)
	if err != nil {
		return nil, fmt.Errorf("get product by slug: %w", err)
	}
	return product, nil
}

// ListProducts runs a catalog query: keyword search and field filters are
// applied first, the filtered set is counted, and pagination is applied last
// so the filtered count reflects the whole match set rather than one page.
func (s *ProductService) ListProducts(ctx context.Context, q *query.Builder) (*ProductListing, error) {
	total, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count products: %w", err)
	}

	filtered, err := s.repo.CountFiltered(ctx, q.Clone())
	if err != nil {
		return nil, fmt.Errorf("count filtered products: %w", err)
	}

	q.Paginate(DefaultResultsPerPage)

	products, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return &ProductListing{
		Products:      products,
		ProductCount:  total,
		ResultPerPage: DefaultResultsPerPage,
		FilteredCount: filtered,
	}, nil
}

// ListAllProducts returns every product without filtering or pagination.
func (s *ProductService) ListAllProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list all products: %w", err)
	}
	return products, nil
}

// UpdateProduct applies partial updates to an existing product. When new
// images are provided the old image set is deleted from storage and replaced.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, input *UpdateProductInput) (*domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get product for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("product name must not be empty")
		}
		product.Name = *input.Name
		product.Slug = slug.Generate(*input.Name)
	}

	if input.Description != nil {
		product.Description = *input.Description
	}

	if input.Price != nil {
		if *input.Price < 0 {
			return nil, apperrors.InvalidInput("price must not be negative")
		}
		product.Price = *input.Price
	}

	if input.Category != nil {
		product.Category = *input.Category
	}

	if input.Stock != nil {
		if *input.Stock < 0 {
			return nil, apperrors.InvalidInput("stock must not be negative")
		}
		product.Stock = *input.Stock
	}

	if input.Images != nil {
		s.deleteImages(ctx, product.Images)

		images, err := s.uploadImages(ctx, input.Images)
		if err != nil {
			return nil, err
		}
		product.Images = images
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("update product: %w", err)
	}

	if err := s.producer.PublishProductUpdated(ctx, product); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.updated event",
			slog.String("product_id", product.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product updated",
		slog.String("product_id", product.ID),
		slog.String("slug", product.Slug),
	)

	return product, nil
}

// DeleteProduct removes a product and its stored images.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get product for delete: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	s.deleteImages(ctx, product.Images)

	if err := s.producer.PublishProductDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.deleted event",
			slog.String("product_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product deleted", slog.String("product_id", id))

	return nil
}

// uploadImages stores each image payload and returns the resulting assets.
func (s *ProductService) uploadImages(ctx context.Context, payloads []string) ([]domain.ImageAsset, error) {
	assets := make([]domain.ImageAsset, 0, len(payloads))
	for _, payload := range payloads {
		asset, err := uploadImage(ctx, s.storage, "products", payload)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *asset)
	}
	return assets, nil
}

// deleteImages removes assets from storage, logging instead of failing on error.
func (s *ProductService) deleteImages(ctx context.Context, images []domain.ImageAsset) {
	for _, img := range images {
		if err := s.storage.Delete(ctx, img.PublicID); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete product image",
				slog.String("public_id", img.PublicID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// uploadImage decodes a base64 data URI (plain base64 is accepted too) and
// uploads it under the given prefix.
func uploadImage(ctx context.Context, media storage.Storage, prefix, payload string) (*domain.ImageAsset, error) {
	contentType := "application/octet-stream"
	data := payload

	if strings.HasPrefix(payload, "data:") {
		rest := strings.TrimPrefix(payload, "data:")
		meta, encoded, ok := strings.Cut(rest, ",")
		if !ok {
			return nil, apperrors.InvalidInput("malformed image data")
		}
		contentType = strings.TrimSuffix(meta, ";base64")
		data = encoded
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, apperrors.InvalidInput("image data is not valid base64")
	}

	key := fmt.Sprintf("%s/%s", prefix, uuid.New().String())

	result, err := media.Upload(ctx, &storage.UploadInput{
		Key:         key,
		ContentType: contentType,
		Size:        int64(len(raw)),
		Data:        bytes.NewReader(raw),
	})
	if err != nil {
		return nil, apperrors.Upstream("image upload failed", err)
	}

	return &domain.ImageAsset{PublicID: result.Key, URL: result.URL}, nil
}
