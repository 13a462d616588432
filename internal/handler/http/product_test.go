package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/oakmart/storefront/pkg/errors"

	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/service"
)

func productRouter(handler *ProductHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/products", handler.ListProducts)
		r.Get("/products/{idOrSlug}", handler.GetProduct)
		r.Route("/admin/products", func(r chi.Router) {
			r.Use(stubAuth("550e8400-e29b-41d4-a716-446655440010", domain.RoleAdmin))
			r.Get("/", handler.ListAdminProducts)
			r.Post("/", handler.CreateProduct)
			r.Put("/{id}", handler.UpdateProduct)
			r.Delete("/{id}", handler.DeleteProduct)
		})
	})
	return r
}

func newProductTestRouter(repo *mockProductRepo) *chi.Mux {
	svc := newProductService(repo)
	return productRouter(NewProductHandler(svc, handlerTestLogger()))
}

// =============================================================================
// GET /api/v1/products - ListProducts
// =============================================================================

func TestListProducts_Success(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	products := []domain.Product{*sampleProduct()}
	repo.On("Count", mock.Anything).Return(40, nil)
	repo.On("CountFiltered", mock.Anything, mock.AnythingOfType("*query.Builder")).Return(11, nil)
	repo.On("List", mock.Anything, mock.AnythingOfType("*query.Builder")).Return(products, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?keyword=test&page=2", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assertSuccess(t, body)

	var count, resultPerPage, filtered int
	require.NoError(t, json.Unmarshal(body["product_count"], &count))
	require.NoError(t, json.Unmarshal(body["result_per_page"], &resultPerPage))
	require.NoError(t, json.Unmarshal(body["filtered_products_count"], &filtered))
	assert.Equal(t, 40, count)
	assert.Equal(t, service.DefaultResultsPerPage, resultPerPage)
	assert.Equal(t, 11, filtered)

	var listed []domain.Product
	require.NoError(t, json.Unmarshal(body["products"], &listed))
	assert.Len(t, listed, 1)
	repo.AssertExpectations(t)
}

func TestListProducts_ServiceError(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	repo.On("Count", mock.Anything).Return(0, apperrors.Internal(nil))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	e := decodeErr(t, rec)
	assert.False(t, e.Success)
	repo.AssertExpectations(t)
}

// =============================================================================
// GET /api/v1/products/{idOrSlug} - GetProduct
// =============================================================================

func TestGetProduct_ByUUID_Success(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	p := sampleProduct()
	repo.On("GetByID", mock.Anything, p.ID).Return(p, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+p.ID, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assertSuccess(t, body)

	var got domain.Product
	require.NoError(t, json.Unmarshal(body["product"], &got))
	assert.Equal(t, p.ID, got.ID)
	repo.AssertExpectations(t)
}

func TestGetProduct_BySlug_Success(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	p := sampleProduct()
	repo.On("GetBySlug", mock.Anything, p.Slug).Return(p, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+p.Slug, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestGetProduct_NotFound(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	id := "550e8400-e29b-41d4-a716-446655440099"
	repo.On("GetByID", mock.Anything, id).Return(nil, apperrors.NotFound("product", id))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/"+id, nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	e := decodeErr(t, rec)
	assert.False(t, e.Success)
	repo.AssertExpectations(t)
}

// =============================================================================
// POST /api/v1/admin/products - CreateProduct
// =============================================================================

func TestCreateProduct_Success(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Product")).Return(nil)

	body := CreateProductRequest{
		Name:        "New Product",
		Description: "Fresh off the line",
		Price:       19.99,
		Category:    "tools",
		Stock:       5,
		Images:      ImageList{imagePayload()},
	}
	b, _ := json.Marshal(body)

	req := asBearer(httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewReader(b)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	respBody := decodeBody(t, rec)
	assertSuccess(t, respBody)

	var created domain.Product
	require.NoError(t, json.Unmarshal(respBody["product"], &created))
	assert.Equal(t, "new-product", created.Slug)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440010", created.UserID)
	repo.AssertExpectations(t)
}

func TestCreateProduct_SingleImageString(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Product")).Return(nil)

	// images may be a bare string instead of an array
	raw := `{"name":"Solo","description":"one image","price":5,"category":"tools","stock":1,"images":"` + imagePayload() + `"}`

	req := asBearer(httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewReader([]byte(raw))))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	var created domain.Product
	require.NoError(t, json.Unmarshal(decodeBody(t, rec)["product"], &created))
	assert.Len(t, created.Images, 1)
	repo.AssertExpectations(t)
}

func TestCreateProduct_NoImagesField(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	repo.On("Create", mock.Anything, mock.AnythingOfType("*domain.Product")).Return(nil)

	// an absent images field normalizes to an empty image set
	raw := `{"name":"Bare","description":"no pictures yet","price":12.5,"category":"tools","stock":3}`

	req := asBearer(httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewReader([]byte(raw))))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	respBody := decodeBody(t, rec)
	assertSuccess(t, respBody)

	var created domain.Product
	require.NoError(t, json.Unmarshal(respBody["product"], &created))
	assert.NotNil(t, created.Images)
	assert.Empty(t, created.Images)
	repo.AssertExpectations(t)
}

func TestCreateProduct_InvalidJSON(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	req := asBearer(httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewReader([]byte(`{invalid`))))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeErr(t, rec)
	assert.Contains(t, e.Message, "invalid request body")
}

func TestCreateProduct_ValidationError(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	// missing name, description, and images
	body := CreateProductRequest{Price: 19.99, Category: "tools"}
	b, _ := json.Marshal(body)

	req := asBearer(httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewReader(b)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeErr(t, rec)
	assert.Equal(t, "request validation failed", e.Message)
	assert.Contains(t, e.Errors, "Name")
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateProduct_Unauthenticated(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	b, _ := json.Marshal(CreateProductRequest{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/products", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// =============================================================================
// PUT /api/v1/admin/products/{id} - UpdateProduct
// =============================================================================

func TestUpdateProduct_Success(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	p := sampleProduct()
	repo.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	repo.On("Update", mock.Anything, mock.AnythingOfType("*domain.Product")).Return(nil)

	newName := "Updated Product"
	body := UpdateProductRequest{Name: &newName}
	b, _ := json.Marshal(body)

	req := asBearer(httptest.NewRequest(http.MethodPut, "/api/v1/admin/products/"+p.ID, bytes.NewReader(b)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var updated domain.Product
	require.NoError(t, json.Unmarshal(decodeBody(t, rec)["product"], &updated))
	assert.Equal(t, "Updated Product", updated.Name)
	repo.AssertExpectations(t)
}

func TestUpdateProduct_InvalidUUID(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	b, _ := json.Marshal(UpdateProductRequest{})

	req := asBearer(httptest.NewRequest(http.MethodPut, "/api/v1/admin/products/not-a-uuid", bytes.NewReader(b)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	e := decodeErr(t, rec)
	assert.Contains(t, e.Message, "invalid UUID")
}

// =============================================================================
// DELETE /api/v1/admin/products/{id} - DeleteProduct
// =============================================================================

func TestDeleteProduct_Success(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	p := sampleProduct()
	repo.On("GetByID", mock.Anything, p.ID).Return(p, nil)
	repo.On("Delete", mock.Anything, p.ID).Return(nil)

	req := asBearer(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/products/"+p.ID, nil))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assertSuccess(t, body)
	repo.AssertExpectations(t)
}

func TestDeleteProduct_NotFound(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	id := "550e8400-e29b-41d4-a716-446655440099"
	repo.On("GetByID", mock.Anything, id).Return(nil, apperrors.NotFound("product", id))

	req := asBearer(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/products/"+id, nil))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	repo.AssertExpectations(t)
}

// =============================================================================
// GET /api/v1/admin/products - ListAdminProducts
// =============================================================================

func TestListAdminProducts_ReturnsAll(t *testing.T) {
	repo := new(mockProductRepo)
	router := newProductTestRouter(repo)

	repo.On("ListAll", mock.Anything).Return([]domain.Product{*sampleProduct()}, nil)

	req := asBearer(httptest.NewRequest(http.MethodGet, "/api/v1/admin/products", nil))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	var listed []domain.Product
	require.NoError(t, json.Unmarshal(decodeBody(t, rec)["products"], &listed))
	assert.Len(t, listed, 1)
	repo.AssertExpectations(t)
}
