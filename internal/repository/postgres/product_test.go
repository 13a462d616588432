package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmart/storefront/pkg/database"
	apperrors "github.com/oakmart/storefront/pkg/errors"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/query"
)

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	return mock
}

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// ─── Product column definitions ─────────────────────────────────────────────

var productCols = []string{
	"id", "name", "slug", "description", "price", "category", "stock",
	"images", "reviews", "num_of_reviews", "ratings", "user_id",
	"created_at", "updated_at",
}

func sampleProduct() domain.Product {
	return domain.Product{
		ID:          "prod-1",
		Name:        "Widget",
		Slug:        "widget",
		Description: "A fine widget",
		Price:       99.99,
		Category:    "tools",
		Stock:       7,
		Images: []domain.ImageAsset{
			{PublicID: "products/img-1", URL: "http://media.local/products/img-1"},
		},
		Reviews: []domain.Review{
			{ID: "rev-1", UserID: "user-1", Name: "Ada", Rating: 4, Comment: "solid"},
		},
		NumOfReviews: 1,
		Ratings:      4,
		UserID:       "admin-1",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func productRow(p domain.Product) []any {
	imagesJSON, _ := json.Marshal(p.Images)
	reviewsJSON, _ := json.Marshal(p.Reviews)
	return []any{
		p.ID, p.Name, p.Slug, p.Description, p.Price, p.Category, p.Stock,
		imagesJSON, reviewsJSON, p.NumOfReviews, p.Ratings, p.UserID,
		p.CreatedAt, p.UpdatedAt,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Create
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepository_Create_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	imagesJSON, _ := json.Marshal(p.Images)
	reviewsJSON, _ := json.Marshal(p.Reviews)

	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			p.ID, p.Name, p.Slug, p.Description, p.Price, p.Category, p.Stock,
			imagesJSON, reviewsJSON, p.NumOfReviews, p.Ratings, p.UserID,
			p.CreatedAt, p.UpdatedAt,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), &p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Create_DuplicateSlug(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()

	mock.ExpectExec("INSERT INTO products").
		WithArgs(
			p.ID, p.Name, p.Slug, p.Description, p.Price, p.Category, p.Stock,
			pgxmock.AnyArg(), pgxmock.AnyArg(), p.NumOfReviews, p.Ratings, p.UserID,
			p.CreatedAt, p.UpdatedAt,
		).
		WillReturnError(errors.New("ERROR: duplicate key value violates unique constraint (SQLSTATE 23505)"))

	err := repo.Create(context.Background(), &p)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─────────────────────────────────────────────────────────────────────────────
// GetByID / GetBySlug
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepository_GetByID_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()

	mock.ExpectQuery("SELECT .+ FROM products.+WHERE id").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(productRow(p)...))

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Images, got.Images)
	assert.Equal(t, p.Reviews, got.Reviews)
	assert.Equal(t, 4.0, got.Ratings)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery("SELECT .+ FROM products.+WHERE id").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := repo.GetByID(context.Background(), "missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_GetByID_NullDocuments(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	row := productRow(p)
	row[7] = nil // images
	row[8] = nil // reviews

	mock.ExpectQuery("SELECT .+ FROM products.+WHERE id").
		WithArgs(p.ID).
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(row...))

	got, err := repo.GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.Images)
	assert.NotNil(t, got.Reviews)
	assert.Empty(t, got.Images)
	assert.Empty(t, got.Reviews)
}

func TestProductRepository_GetBySlug_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()

	mock.ExpectQuery("SELECT .+ FROM products.+WHERE slug").
		WithArgs(p.Slug).
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(productRow(p)...))

	got, err := repo.GetBySlug(context.Background(), p.Slug)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ─────────────────────────────────────────────────────────────────────────────
// List / counts
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepository_List_FilteredAndPaginated(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	q := query.NewBuilder(url.Values{
		"keyword":    {"wid"},
		"price[gte]": {"50"},
		"page":       {"2"},
	}).Search().Filter().Paginate(8)

	p := sampleProduct()

	mock.ExpectQuery("SELECT .+ FROM products.+WHERE name ILIKE .+ AND price >= .+ LIMIT").
		WithArgs("%wid%", 50.0, 8, 8).
		WillReturnRows(pgxmock.NewRows(productCols).AddRow(productRow(p)...))

	got, err := repo.List(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, p.ID, got[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_List_Unpaginated(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()
	p2 := sampleProduct()
	p2.ID = "prod-2"
	p2.Slug = "widget-2"

	mock.ExpectQuery("SELECT .+ FROM products.+ORDER BY created_at DESC").
		WillReturnRows(pgxmock.NewRows(productCols).
			AddRow(productRow(p)...).
			AddRow(productRow(p2)...))

	got, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_CountFiltered(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	q := query.NewBuilder(url.Values{"category": {"tools"}}).Filter()

	mock.ExpectQuery(`SELECT count\(\*\) FROM products WHERE category`).
		WithArgs("tools").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))

	count, err := repo.CountFiltered(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Count(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectQuery(`SELECT count\(\*\) FROM products`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(42))

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

// ─────────────────────────────────────────────────────────────────────────────
// Update / UpdateReviews / Delete
// ─────────────────────────────────────────────────────────────────────────────

func TestProductRepository_Update_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()

	mock.ExpectExec("UPDATE products").
		WithArgs(
			p.Name, p.Slug, p.Description, p.Price, p.Category, p.Stock,
			pgxmock.AnyArg(), pgxmock.AnyArg(), p.NumOfReviews, p.Ratings,
			pgxmock.AnyArg(), p.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Update(context.Background(), &p)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Update_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	p := sampleProduct()

	mock.ExpectExec("UPDATE products").
		WithArgs(
			p.Name, p.Slug, p.Description, p.Price, p.Category, p.Stock,
			pgxmock.AnyArg(), pgxmock.AnyArg(), p.NumOfReviews, p.Ratings,
			pgxmock.AnyArg(), p.ID,
		).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.Update(context.Background(), &p)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProductRepository_UpdateReviews_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	reviews := []domain.Review{
		{ID: "rev-1", UserID: "user-1", Rating: 4},
		{ID: "rev-2", UserID: "user-2", Rating: 2},
	}
	reviewsJSON, _ := json.Marshal(reviews)

	mock.ExpectExec("UPDATE products").
		WithArgs(reviewsJSON, 3.0, 2, pgxmock.AnyArg(), "prod-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateReviews(context.Background(), "prod-1", reviews, 3.0, 2)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_UpdateReviews_NilBecomesEmptyArray(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectExec("UPDATE products").
		WithArgs([]byte("[]"), 0.0, 0, pgxmock.AnyArg(), "prod-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.UpdateReviews(context.Background(), "prod-1", nil, 0, 0)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_Delete_Success(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectExec("DELETE FROM products WHERE").
		WithArgs("prod-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.Delete(context.Background(), "prod-1")
	assert.NoError(t, err)
}

func TestProductRepository_Delete_NotFound(t *testing.T) {
	mock := newMock(t)
	defer mock.Close()
	repo := NewProductRepository(mock)

	mock.ExpectExec("DELETE FROM products WHERE").
		WithArgs("missing").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.Delete(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
