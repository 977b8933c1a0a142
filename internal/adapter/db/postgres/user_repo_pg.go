package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"finance-account-service/internal/domain/user"
)

// UserRepoPG implements the user repository using GORM.
// It runs against PostgreSQL in production and SQLite locally.
type UserRepoPG struct {
	db  *gorm.DB    // GORM database connection
	log *zap.Logger // Structured logger for database operations
}

// NewUserRepoPG creates a new instance of UserRepoPG.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger) *UserRepoPG {
	return &UserRepoPG{db: db, log: log}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"` // Unique identifier with auto-increment
	Name     string `gorm:"not null"`                 // Display name
	Email    string `gorm:"not null;uniqueIndex"`     // Logical unique key
	Password string `gorm:"not null"`                 // Compared as given
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return "users"
}

func (s UserSchema) toDomain() *user.User {
	return &user.User{
		ID:       s.ID,
		Name:     s.Name,
		Email:    s.Email,
		Password: s.Password,
	}
}

// Migrate creates or updates the users table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserSchema{})
}

// Create inserts a new user into the database.
func (r *UserRepoPG) Create(ctx context.Context, u *user.User) (int64, error) {
	if u == nil {
		return 0, errors.New("user cannot be nil")
	}

	model := UserSchema{
		Name:     u.Name,
		Email:    u.Email,
		Password: u.Password,
	}

	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		// requires gorm.Config.TranslateError
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warn("duplicate email on insert", zap.String("email", u.Email))
			return 0, fmt.Errorf("failed to create user: %w", user.ErrDuplicateEmail)
		}
		r.log.Error("failed to create user in db", zap.Error(err), zap.String("email", u.Email))
		return 0, fmt.Errorf("failed to create user: %w", err)
	}

	r.log.Info("user created in db", zap.Int64("id", model.ID))
	return model.ID, nil
}

// FindByEmail retrieves a user by exact email match.
// It returns nil when no user has the email.
func (r *UserRepoPG) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var model UserSchema
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.Debug("user not found by email", zap.String("email", email))
			return nil, nil
		}
		r.log.Error("failed to get user by email from db", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return model.toDomain(), nil
}

// ExistsByEmail reports whether a user with the email is stored.
func (r *UserRepoPG) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&UserSchema{}).Where("email = ?", email).Count(&count).Error; err != nil {
		r.log.Error("failed to check user email in db", zap.Error(err), zap.String("email", email))
		return false, fmt.Errorf("failed to check user email: %w", err)
	}

	return count > 0, nil
}
