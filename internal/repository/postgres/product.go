package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/query"
	"github.com/oakmart/storefront/pkg/database"
	apperrors "github.com/oakmart/storefront/pkg/errors"
)

const productColumns = `id, name, slug, description, price, category, stock, images, reviews, num_of_reviews, ratings, user_id, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
// Images and reviews are stored as JSONB documents on the products row, so
// review mutations rewrite the whole array. Concurrent writers race with
// last-write-wins, matching the embedded-document model this schema mirrors.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	imagesJSON, reviewsJSON, err := marshalDocs(p)
	if err != nil {
		return err
	}

	sql := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err = r.pool.Exec(ctx, sql,
		p.ID,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.Category,
		p.Stock,
		imagesJSON,
		reviewsJSON,
		p.NumOfReviews,
		p.Ratings,
		p.UserID,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	sql := `
		SELECT ` + productColumns + `
		FROM products
		WHERE id = $1`

	return r.scanProduct(ctx, sql, id)
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	sql := `
		SELECT ` + productColumns + `
		FROM products
		WHERE slug = $1`

	return r.scanProduct(ctx, sql, slug)
}

// List returns products matching the builder's predicates, applying its
// pagination when present.
func (r *ProductRepository) List(ctx context.Context, q *query.Builder) ([]domain.Product, error) {
	where, args := q.Where()

	sql := fmt.Sprintf(`
		SELECT `+productColumns+`
		FROM products
		%s
		ORDER BY created_at DESC`, where)

	if q.Paginated() {
		sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
		args = append(args, q.Limit(), q.Offset())
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	return products, nil
}

// CountFiltered returns the number of products matching the builder's
// predicates, ignoring any pagination it carries.
func (r *ProductRepository) CountFiltered(ctx context.Context, q *query.Builder) (int, error) {
	where, args := q.Where()

	sql := fmt.Sprintf(`SELECT count(*) FROM products %s`, where)

	var count int
	if err := r.pool.QueryRow(ctx, strings.TrimSpace(sql), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count filtered products: %w", err)
	}
	return count, nil
}

// Count returns the total number of products.
func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	return count, nil
}

// ListAll returns every product without filtering or pagination.
func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	return r.List(ctx, query.NewBuilder(nil))
}

// Update modifies an existing product in the database.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) error {
	imagesJSON, reviewsJSON, err := marshalDocs(p)
	if err != nil {
		return err
	}

	p.UpdatedAt = time.Now().UTC()

	sql := `
		UPDATE products
		SET name = $1, slug = $2, description = $3, price = $4, category = $5,
		    stock = $6, images = $7, reviews = $8, num_of_reviews = $9,
		    ratings = $10, updated_at = $11
		WHERE id = $12`

	ct, err := r.pool.Exec(ctx, sql,
		p.Name,
		p.Slug,
		p.Description,
		p.Price,
		p.Category,
		p.Stock,
		imagesJSON,
		reviewsJSON,
		p.NumOfReviews,
		p.Ratings,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}

	return nil
}

// UpdateReviews persists only the review state of a product. Other columns
// are left untouched so unrelated fields are never re-validated or clobbered.
func (r *ProductRepository) UpdateReviews(ctx context.Context, productID string, reviews []domain.Review, ratings float64, numOfReviews int) error {
	if reviews == nil {
		reviews = []domain.Review{}
	}
	reviewsJSON, err := json.Marshal(reviews)
	if err != nil {
		return fmt.Errorf("marshal reviews: %w", err)
	}

	sql := `
		UPDATE products
		SET reviews = $1, ratings = $2, num_of_reviews = $3, updated_at = $4
		WHERE id = $5`

	ct, err := r.pool.Exec(ctx, sql, reviewsJSON, ratings, numOfReviews, time.Now().UTC(), productID)
	if err != nil {
		return fmt.Errorf("update product reviews: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", productID)
	}

	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ct, err := r.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}

	return nil
}

// scanProduct is a helper that executes a query expected to return a single product row.
func (r *ProductRepository) scanProduct(ctx context.Context, sql string, args ...any) (*domain.Product, error) {
	row := r.pool.QueryRow(ctx, sql, args...)
	p, err := scanProductFrom(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}
	return p, nil
}

func scanProductRow(rows pgx.Rows) (*domain.Product, error) {
	p, err := scanProductFrom(rows)
	if err != nil {
		return nil, fmt.Errorf("scan product row: %w", err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProductFrom(row rowScanner) (*domain.Product, error) {
	var (
		p           domain.Product
		imagesJSON  []byte
		reviewsJSON []byte
	)

	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Description,
		&p.Price,
		&p.Category,
		&p.Stock,
		&imagesJSON,
		&reviewsJSON,
		&p.NumOfReviews,
		&p.Ratings,
		&p.UserID,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	if err := unmarshalDoc(imagesJSON, &p.Images); err != nil {
		return nil, fmt.Errorf("unmarshal images: %w", err)
	}
	if err := unmarshalDoc(reviewsJSON, &p.Reviews); err != nil {
		return nil, fmt.Errorf("unmarshal reviews: %w", err)
	}
	if p.Images == nil {
		p.Images = []domain.ImageAsset{}
	}
	if p.Reviews == nil {
		p.Reviews = []domain.Review{}
	}

	return &p, nil
}

func marshalDocs(p *domain.Product) (imagesJSON, reviewsJSON []byte, err error) {
	if p.Images == nil {
		p.Images = []domain.ImageAsset{}
	}
	if p.Reviews == nil {
		p.Reviews = []domain.Review{}
	}
	imagesJSON, err = json.Marshal(p.Images)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal images: %w", err)
	}
	reviewsJSON, err = json.Marshal(p.Reviews)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal reviews: %w", err)
	}
	return imagesJSON, reviewsJSON, nil
}

func unmarshalDoc(data []byte, target any) error {
	if data == nil {
		return nil
	}
	return json.Unmarshal(data, target)
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
