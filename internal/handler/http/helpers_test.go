package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	pkgkafka "github.com/oakmart/storefront/pkg/kafka"
	"github.com/oakmart/storefront/pkg/middleware"

	"github.com/oakmart/storefront/internal/auth"
	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/event"
	"github.com/oakmart/storefront/internal/mailer"
	"github.com/oakmart/storefront/internal/query"
	"github.com/oakmart/storefront/internal/service"
	"github.com/oakmart/storefront/internal/storage"
)

// =============================================================================
// Mock ProductRepository
// =============================================================================

type mockProductRepo struct {
	mock.Mock
}

func (m *mockProductRepo) Create(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepo) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepo) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

func (m *mockProductRepo) List(ctx context.Context, q *query.Builder) ([]domain.Product, error) {
	args := m.Called(ctx, q)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepo) CountFiltered(ctx context.Context, q *query.Builder) (int, error) {
	args := m.Called(ctx, q)
	return args.Int(0), args.Error(1)
}

func (m *mockProductRepo) Count(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *mockProductRepo) ListAll(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepo) Update(ctx context.Context, product *domain.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *mockProductRepo) UpdateReviews(ctx context.Context, productID string, reviews []domain.Review, ratings float64, numOfReviews int) error {
	args := m.Called(ctx, productID, reviews, ratings, numOfReviews)
	return args.Error(0)
}

func (m *mockProductRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// =============================================================================
// Mock UserRepository
// =============================================================================

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) GetByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepo) List(ctx context.Context) ([]domain.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.User), args.Error(1)
}

func (m *mockUserRepo) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// =============================================================================
// Stub collaborators
// =============================================================================

// stubStorage accepts every upload and delete. Handler tests exercise the
// HTTP surface; storage behavior is covered by the service tests.
type stubStorage struct{}

func (stubStorage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	_, _ = io.Copy(io.Discard, input.Data)
	return &storage.UploadResult{Key: input.Key, URL: "http://media.local/" + input.Key}, nil
}

func (stubStorage) Delete(context.Context, string) error { return nil }

func (stubStorage) GetURL(_ context.Context, key string) (string, error) {
	return "http://media.local/" + key, nil
}

type stubMailer struct{}

func (stubMailer) Name() string { return "stub" }

func (stubMailer) Send(context.Context, *mailer.Message) error { return nil }

// =============================================================================
// Test helpers
// =============================================================================

func handlerTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func handlerTestProducer() *event.Producer {
	logger := handlerTestLogger()
	cfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(cfg, logger), logger)
}

func handlerTestJWT() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-for-testing", 15*time.Minute)
}

func newProductService(repo *mockProductRepo) *service.ProductService {
	return service.NewProductService(repo, stubStorage{}, handlerTestProducer(), handlerTestLogger())
}

func newUserService(repo *mockUserRepo) *service.UserService {
	return service.NewUserService(
		repo,
		stubStorage{},
		stubMailer{},
		handlerTestJWT(),
		handlerTestProducer(),
		"http://localhost:3000",
		handlerTestLogger(),
	)
}

// stubAuth mounts the auth middleware with a validator that trusts any
// bearer token and returns the given identity.
func stubAuth(userID, role string) func(http.Handler) http.Handler {
	return middleware.Auth(func(string) (*middleware.Claims, error) {
		return &middleware.Claims{UserID: userID, Role: role}, nil
	})
}

func asBearer(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer test-token")
	return req
}

// errEnvelope mirrors the error half of the response envelope.
type errEnvelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func decodeErr(t *testing.T, rec *httptest.ResponseRecorder) errEnvelope {
	t.Helper()
	var e errEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&e))
	return e
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var body map[string]json.RawMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func assertSuccess(t *testing.T, body map[string]json.RawMessage) {
	t.Helper()
	var ok bool
	require.NoError(t, json.Unmarshal(body["success"], &ok))
	require.True(t, ok)
}

func imagePayload() string {
	return base64.StdEncoding.EncodeToString([]byte("fake-image-bytes"))
}

func hashedPassword(t *testing.T, plain string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func sampleProduct() *domain.Product {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Product{
		ID:          "550e8400-e29b-41d4-a716-446655440001",
		Name:        "Test Product",
		Slug:        "test-product",
		Description: "A test product",
		Price:       49.99,
		Category:    "tools",
		Stock:       3,
		Images:      []domain.ImageAsset{},
		Reviews:     []domain.Review{},
		UserID:      "550e8400-e29b-41d4-a716-446655440010",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func sampleUser(t *testing.T) *domain.User {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return &domain.User{
		ID:           "550e8400-e29b-41d4-a716-446655440010",
		Name:         "Ada Lovelace",
		Email:        "ada@example.com",
		PasswordHash: hashedPassword(t, "SecurePass123"),
		Role:         domain.RoleCustomer,
		Avatar: domain.ImageAsset{
			PublicID: "avatars/u1",
			URL:      "http://media.local/avatars/u1",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
