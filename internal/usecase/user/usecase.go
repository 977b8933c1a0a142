package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	domain "finance-account-service/internal/domain/user"
	apperrors "finance-account-service/pkg/errors"
	"finance-account-service/pkg/logger"
)

// Repository defines the user data access the service depends on.
// It abstracts the data layer, allowing different implementations
// (e.g., PostgreSQL, an in-memory stub) to be used interchangeably.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error) // nil user when absent
	ExistsByEmail(ctx context.Context, email string) (bool, error)      // true iff a user holds the email
	Create(ctx context.Context, u *domain.User) (int64, error)           // persist a new user
}

// Service implements user authentication, email validation and registration.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	repo     Repository          // Repository for data access
	log      *zap.Logger         // Logger for structured logging
	validate *validator.Validate // Validator for request validation
}

var _ Usecase = (*Service)(nil)

// New creates a new Service with the provided repository and logger.
func New(r Repository, log *zap.Logger) *Service {
	return &Service{repo: r, log: log, validate: validator.New()}
}

// formatValidationError converts validator.ValidationErrors into a ValidationError.
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperrors.NewValidationError("", err.Error())
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", e.Field()))
		case "email":
			messages = append(messages, fmt.Sprintf("%s must be a valid email", e.Field()))
		case "min":
			messages = append(messages, fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param()))
		case "max":
			messages = append(messages, fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", e.Field()))
		}
	}
	return apperrors.NewValidationError("", strings.Join(messages, ", "))
}

// Authenticate verifies an email/password pair against the stored user.
// The stored password is compared to the supplied one by exact equality.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	log := logger.WithContext(ctx, s.log)

	u, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		log.Error("failed to find user by email", zap.String("email", email), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to find user", err)
	}
	if u == nil {
		log.Warn("authentication failed", zap.String("email", email), zap.String("reason", "user not found"))
		return nil, apperrors.NewAuthenticationError(apperrors.MsgUserNotFound)
	}

	if u.Password != password {
		log.Warn("authentication failed", zap.String("email", email), zap.String("reason", "invalid password"))
		return nil, apperrors.NewAuthenticationError(apperrors.MsgInvalidPassword)
	}

	log.Info("user authenticated", zap.Int64("id", u.ID))
	return u, nil
}

// ValidateEmail fails when the email is already registered.
// It is the precondition gate for registration.
func (s *Service) ValidateEmail(ctx context.Context, email string) error {
	log := logger.WithContext(ctx, s.log)

	exists, err := s.repo.ExistsByEmail(ctx, email)
	if err != nil {
		log.Error("failed to check existing email", zap.String("email", email), zap.Error(err))
		return apperrors.NewInternalError("failed to validate email uniqueness", err)
	}
	if exists {
		log.Warn("email already registered", zap.String("email", email))
		return apperrors.NewBusinessRuleError(apperrors.MsgEmailRegistered)
	}

	return nil
}

// RegisterUser creates a new user after validating the request and checking email uniqueness.
func (s *Service) RegisterUser(ctx context.Context, in RegisterUserRequest) (*RegisterUserResponse, error) {
	log := logger.WithContext(ctx, s.log)
	log.Info("registering user", zap.String("name", in.Name), zap.String("email", in.Email))

	if err := s.validate.Struct(in); err != nil {
		log.Warn("validate failed", zap.Error(err))
		return nil, formatValidationError(err)
	}

	if err := s.ValidateEmail(ctx, in.Email); err != nil {
		return nil, err
	}

	id, err := s.repo.Create(ctx, &domain.User{
		Name:     in.Name,
		Email:    in.Email,
		Password: in.Password,
	})
	if errors.Is(err, domain.ErrDuplicateEmail) {
		// lost a race with a concurrent registration of the same email
		log.Warn("email already registered", zap.String("email", in.Email))
		return nil, apperrors.NewBusinessRuleError(apperrors.MsgEmailRegistered)
	}
	if err != nil {
		log.Error("failed to create user", zap.String("email", in.Email), zap.Error(err))
		return nil, apperrors.NewInternalError("failed to create user", err)
	}

	return &RegisterUserResponse{ID: id}, nil
}
