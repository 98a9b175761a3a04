// Package users provides the credential store: user records looked up by
// username or email and created under database-enforced uniqueness.
//
// # Usage
//
//	repo := users.NewRepository(db)
//	user, err := repo.FindByIdentifier(ctx, "alice")
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"

	"github.com/mrlokans/authsvc/internal/entities"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrExists   = errors.New("user already exists")
)

// Repository handles all user database operations on gorm (SQLite).
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new users repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByIdentifier returns the user whose username or email equals
// identifier exactly. A username match wins over an email match.
func (r *Repository) FindByIdentifier(ctx context.Context, identifier string) (*entities.User, error) {
	var found []entities.User
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		Limit(2).
		Find(&found).Error
	if err != nil {
		return nil, fmt.Errorf("find user by identifier: %w", err)
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	for i := range found {
		if found[i].Username == identifier {
			return &found[i], nil
		}
	}
	return &found[0], nil
}

// GetByID retrieves a user by ID.
func (r *Repository) GetByID(ctx context.Context, id string) (*entities.User, error) {
	var user entities.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}
	return &user, nil
}

// Create inserts a new user. A username or email collision yields ErrExists;
// the check is the unique index itself, so concurrent creates cannot both win.
func (r *Repository) Create(ctx context.Context, username, email, passwordHash string) (*entities.User, error) {
	now := time.Now().UTC()
	user := &entities.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// isUniqueViolation recognises both gorm's translated error and the raw
// driver error, whichever the dialector surfaces.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
