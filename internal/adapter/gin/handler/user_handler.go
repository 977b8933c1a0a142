package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"finance-account-service/internal/usecase/user"
	apperrors "finance-account-service/pkg/errors"
	"finance-account-service/pkg/logger"
)

// UserHandler handles HTTP requests for user operations
type UserHandler struct {
	uc  user.Usecase
	log *zap.Logger
}

// NewUserHandler creates a new UserHandler instance
func NewUserHandler(uc user.Usecase, log *zap.Logger) *UserHandler {
	return &UserHandler{
		uc:  uc,
		log: log,
	}
}

// RegisterUserRequest represents the HTTP request body for registering a user
type RegisterUserRequest struct {
	Name     string `json:"name" binding:"required,min=3,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthenticateRequest represents the HTTP request body for authenticating a user
type AuthenticateRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password"`
}

// UserResponse represents the HTTP response for user data. It never carries the password.
type UserResponse struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RegisterUserResponse represents the HTTP response after registering a user
type RegisterUserResponse struct {
	ID int64 `json:"id"`
}

// EmailAvailabilityResponse represents the HTTP response of an email check
type EmailAvailabilityResponse struct {
	Email     string `json:"email"`
	Available bool   `json:"available"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RegisterUser handles POST /v1/users
func (h *UserHandler) RegisterUser(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid register user request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.uc.RegisterUser(c.Request.Context(), user.RegisterUserRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		log.Info("Gin RegisterUser failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, RegisterUserResponse{ID: resp.ID})
}

// Authenticate handles POST /v1/users/authenticate
func (h *UserHandler) Authenticate(c *gin.Context) {
	log := logger.WithContext(c.Request.Context(), h.log)

	var req AuthenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid authenticate request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	u, err := h.uc.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		log.Info("Gin Authenticate failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, UserResponse{
		ID:    u.ID,
		Name:  u.Name,
		Email: u.Email,
	})
}

// EmailAvailability handles GET /v1/users/email-availability?email=
func (h *UserHandler) EmailAvailability(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "email query parameter is required",
		})
		return
	}

	if err := h.uc.ValidateEmail(c.Request.Context(), email); err != nil {
		logger.WithContext(c.Request.Context(), h.log).Info("Gin EmailAvailability failed", zap.Error(err))
		h.handleError(c, err)
		return
	}

	c.JSON(http.StatusOK, EmailAvailabilityResponse{Email: email, Available: true})
}

// handleError converts use case errors to HTTP responses
func (h *UserHandler) handleError(c *gin.Context, err error) {
	var (
		authErr       *apperrors.AuthenticationError
		ruleErr       *apperrors.BusinessRuleError
		validationErr *apperrors.ValidationError
	)

	switch {
	case errors.As(err, &authErr):
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "authentication_failed",
			Message: authErr.Message,
		})
	case errors.As(err, &ruleErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "business_rule_violation",
			Message: ruleErr.Message,
		})
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: validationErr.Error(),
		})
	default:
		h.log.Error("unexpected error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
	}
}
