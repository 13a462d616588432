package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/oakmart/storefront/pkg/errors"

	"github.com/oakmart/storefront/internal/auth"
	"github.com/oakmart/storefront/internal/domain"
	"github.com/oakmart/storefront/internal/event"
	"github.com/oakmart/storefront/internal/mailer"
	"github.com/oakmart/storefront/internal/repository"
	"github.com/oakmart/storefront/internal/storage"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// resetTokenTTL is how long a password reset token stays valid.
const resetTokenTTL = 15 * time.Minute

// UserService implements the business logic for user and auth operations.
type UserService struct {
	repo         repository.UserRepository
	storage      storage.Storage
	mailer       mailer.Mailer
	jwtManager   *auth.JWTManager
	producer     *event.Producer
	resetURLBase string
	logger       *slog.Logger
}

// NewUserService creates a new user service. resetURLBase is the public
// frontend URL that password reset links are built on.
func NewUserService(
	repo repository.UserRepository,
	media storage.Storage,
	m mailer.Mailer,
	jwtManager *auth.JWTManager,
	producer *event.Producer,
	resetURLBase string,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		repo:         repo,
		storage:      media,
		mailer:       m,
		jwtManager:   jwtManager,
		producer:     producer,
		resetURLBase: resetURLBase,
		logger:       logger,
	}
}

// RegisterInput holds the parameters for registering a new user.
// Avatar carries the raw image payload (base64 data URI) to be uploaded.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Avatar   string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// UpdateProfileInput holds the parameters for updating a user's profile.
// A non-nil Avatar replaces the stored avatar image.
type UpdateProfileInput struct {
	Name   *string
	Email  *string
	Avatar *string
}

// UpdateUserInput holds the parameters for an admin user update.
type UpdateUserInput struct {
	Name  *string
	Email *string
	Role  *string
}

// Register creates a new user account with an uploaded avatar and returns
// the user along with a signed session token.
func (s *UserService) Register(ctx context.Context, input *RegisterInput) (*domain.User, string, error) {
	if input.Name == "" {
		return nil, "", apperrors.InvalidInput("name is required")
	}
	if input.Email == "" {
		return nil, "", apperrors.InvalidInput("email is required")
	}
	if input.Avatar == "" {
		return nil, "", apperrors.InvalidInput("avatar is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, "", err
	}

	avatar, err := uploadImage(ctx, s.storage, "avatars", input.Avatar)
	if err != nil {
		return nil, "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		Role:         domain.RoleCustomer,
		Avatar:       *avatar,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, token, nil
}

// Login authenticates a user with email and password, returning a session token.
func (s *UserService) Login(ctx context.Context, input *LoginInput) (*domain.User, string, error) {
	if input.Email == "" {
		return nil, "", apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, "", apperrors.InvalidInput("password is required")
	}

	user, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, "", apperrors.Unauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, "", apperrors.Unauthorized("invalid email or password")
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, token, nil
}

// ForgotPassword issues a time-limited reset token and mails the reset link.
// Only the SHA256 digest of the token is stored. If the mail cannot be sent
// the token is cleared again so a half-issued reset cannot linger.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.InvalidInput("email is required")
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("get user for password reset: %w", err)
	}

	rawToken, err := generateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := time.Now().UTC().Add(resetTokenTTL)
	user.ResetPasswordToken = hashToken(rawToken)
	user.ResetPasswordExpiresAt = &expiresAt

	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/password/reset/%s", s.resetURLBase, rawToken)
	msg := &mailer.Message{
		To:      user.Email,
		Subject: "Password Recovery",
		Body: fmt.Sprintf(
			"Your password reset link is:\n\n%s\n\nIf you have not requested this email then please ignore it.",
			resetURL,
		),
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		// Roll the token back so a reset the user never received cannot be used.
		user.ResetPasswordToken = ""
		user.ResetPasswordExpiresAt = nil
		if updateErr := s.repo.Update(ctx, user); updateErr != nil {
			s.logger.ErrorContext(ctx, "failed to clear reset token after mail failure",
				slog.String("user_id", user.ID),
				slog.String("error", updateErr.Error()),
			)
		}
		return apperrors.Upstream("failed to send password reset email", err)
	}

	if err := s.producer.PublishPasswordResetRequested(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.password-reset-requested event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "password reset requested",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return nil
}

// ResetPassword sets a new password for the user matching the reset token
// and logs them in by returning a fresh session token.
func (s *UserService) ResetPassword(ctx context.Context, rawToken, newPassword, confirmPassword string) (*domain.User, string, error) {
	if rawToken == "" {
		return nil, "", apperrors.InvalidInput("reset token is required")
	}
	if newPassword != confirmPassword {
		return nil, "", apperrors.InvalidInput("password does not match confirmation")
	}
	if err := validatePassword(newPassword); err != nil {
		return nil, "", err
	}

	user, err := s.repo.GetByResetToken(ctx, hashToken(rawToken))
	if err != nil {
		return nil, "", apperrors.Unauthorized("reset password token is invalid or has expired")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	user.ResetPasswordToken = ""
	user.ResetPasswordExpiresAt = nil

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, "", fmt.Errorf("update user password: %w", err)
	}

	token, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, "", fmt.Errorf("generate token: %w", err)
	}

	s.logger.InfoContext(ctx, "password reset completed",
		slog.String("user_id", user.ID),
	)

	return user, token, nil
}

// ChangePassword allows an authenticated user to change their password.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword, confirmPassword string) error {
	if currentPassword == "" {
		return apperrors.InvalidInput("current password is required")
	}
	if newPassword != confirmPassword {
		return apperrors.InvalidInput("password does not match confirmation")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	if currentPassword == newPassword {
		return apperrors.InvalidInput("new password must be different from current password")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for password change: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash new password: %w", err)
	}

	user.PasswordHash = string(hashedPassword)
	if err := s.repo.Update(ctx, user); err != nil {
		return fmt.Errorf("update user password: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed",
		slog.String("user_id", user.ID),
	)

	return nil
}

// GetProfile retrieves a user by their ID.
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user profile: %w", err)
	}
	return user, nil
}

// UpdateProfile updates a user's profile fields. When a new avatar payload
// is given the old avatar is deleted from storage and replaced.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input *UpdateProfileInput) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		user.Name = *input.Name
	}

	if input.Email != nil {
		if *input.Email == "" {
			return nil, apperrors.InvalidInput("email must not be empty")
		}
		user.Email = *input.Email
	}

	if input.Avatar != nil && *input.Avatar != "" {
		if user.Avatar.PublicID != "" {
			if err := s.storage.Delete(ctx, user.Avatar.PublicID); err != nil {
				s.logger.ErrorContext(ctx, "failed to delete old avatar",
					slog.String("public_id", user.Avatar.PublicID),
					slog.String("error", err.Error()),
				)
			}
		}

		avatar, err := uploadImage(ctx, s.storage, "avatars", *input.Avatar)
		if err != nil {
			return nil, err
		}
		user.Avatar = *avatar
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "user profile updated",
		slog.String("user_id", user.ID),
	)

	return user, nil
}

// ListUsers returns all users. Admin only.
func (s *UserService) ListUsers(ctx context.Context) ([]domain.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// GetUser retrieves any user by ID. Admin only.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// UpdateUser applies an admin update to a user's name, email, or role.
func (s *UserService) UpdateUser(ctx context.Context, id string, input *UpdateUserInput) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user for admin update: %w", err)
	}

	if input.Name != nil {
		if *input.Name == "" {
			return nil, apperrors.InvalidInput("name must not be empty")
		}
		user.Name = *input.Name
	}

	if input.Email != nil {
		if *input.Email == "" {
			return nil, apperrors.InvalidInput("email must not be empty")
		}
		user.Email = *input.Email
	}

	if input.Role != nil {
		if !domain.IsValidRole(*input.Role) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid role %q", *input.Role))
		}
		user.Role = *input.Role
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.InfoContext(ctx, "user updated by admin",
		slog.String("user_id", user.ID),
		slog.String("role", user.Role),
	)

	return user, nil
}

// DeleteUser removes a user and their stored avatar. Admin only.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get user for delete: %w", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if user.Avatar.PublicID != "" {
		if err := s.storage.Delete(ctx, user.Avatar.PublicID); err != nil {
			s.logger.ErrorContext(ctx, "failed to delete avatar",
				slog.String("public_id", user.Avatar.PublicID),
				slog.String("error", err.Error()),
			)
		}
	}

	if err := s.producer.PublishUserDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.deleted event",
			slog.String("user_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user deleted", slog.String("user_id", id))

	return nil
}

// generateResetToken returns a 32-byte random token encoded as hex.
func generateResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// hashToken returns the SHA256 hex digest of the given token string.
func hashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
