package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/mindfuly/internal/models"
	"github.com/diewo77/mindfuly/validation"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	minPasswordLen   = 6
	maxPasswordBytes = 72
)

// NewUser is the input for Create. Password is plain text and hashed before storage.
type NewUser struct {
	Name     string
	Email    string
	Password string
	Tier     int
}

// UserSettings lists the account fields a user may change. Nil fields keep their value.
type UserSettings struct {
	Email    *string
	Password *string
}

type UserRepository struct {
	db   *gorm.DB
	cost int
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db, cost: bcrypt.DefaultCost}
}

// WithHashCost returns a copy using the given bcrypt cost. Tests use bcrypt.MinCost.
func (r *UserRepository) WithHashCost(cost int) *UserRepository {
	clone := *r
	clone.cost = cost
	return &clone
}

// validatePassword enforces the minimum length and bcrypt's 72 byte input limit.
func validatePassword(pw string, v validation.Violations) {
	validation.MinLen("password", pw, minPasswordLen, v)
	validation.MaxBytes("password", pw, maxPasswordBytes, v)
}

func (r *UserRepository) hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Create registers a user. A taken name or email yields ErrConflict.
func (r *UserRepository) Create(ctx context.Context, in NewUser) (*models.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Tier == 0 {
		in.Tier = models.TierBasic
	}

	v := validation.Violations{}
	validation.Required("name", in.Name, v)
	validation.MaxLen("name", in.Name, 255, v)
	validation.Required("email", in.Email, v)
	validation.Email("email", in.Email, v)
	validation.Required("password", in.Password, v)
	if in.Password != "" {
		validatePassword(in.Password, v)
	}
	if in.Tier < models.TierBasic || in.Tier > models.TierPremium {
		v["tier"] = "out_of_range"
	}
	if err := violationsErr(v); err != nil {
		return nil, err
	}

	var taken int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("name = ? OR email = ?", in.Name, in.Email).
		Count(&taken).Error; err != nil {
		return nil, storeErr("check existing user", err)
	}
	if taken > 0 {
		return nil, fmt.Errorf("create user %q: %w", in.Name, ErrConflict)
	}

	hashed, err := r.hash(in.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{Name: in.Name, Email: in.Email, HashedPassword: hashed, Tier: in.Tier}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, storeErr("create user", err)
	}
	return &user, nil
}

func (r *UserRepository) GetByName(ctx context.Context, name string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("name = ?", name).Take(&user).Error; err != nil {
		return nil, storeErr("get user "+name, err)
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Take(&user, id).Error; err != nil {
		return nil, storeErr(fmt.Sprintf("get user %d", id), err)
	}
	return &user, nil
}

// Exists reports whether a user with the given id is still present.
func (r *UserRepository) Exists(ctx context.Context, id uint) bool {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Limit(1).Count(&count).Error; err != nil {
		return false
	}
	return count > 0
}

// VerifyPassword compares password with the stored hash.
func VerifyPassword(user *models.User, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) == nil
}

// Authenticate returns the named user when password matches.
// Unknown users and wrong passwords both yield ErrInvalidCredentials.
func (r *UserRepository) Authenticate(ctx context.Context, name, password string) (*models.User, error) {
	user, err := r.GetByName(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !VerifyPassword(user, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// UpdateSettings changes email and/or password of the user with the given id.
func (r *UserRepository) UpdateSettings(ctx context.Context, id uint, s UserSettings) (*models.User, error) {
	v := validation.Violations{}
	updates := map[string]any{}
	if s.Email != nil {
		email := strings.TrimSpace(*s.Email)
		validation.Required("email", email, v)
		validation.Email("email", email, v)
		updates["email"] = email
	}
	if s.Password != nil {
		validatePassword(*s.Password, v)
	}
	if err := violationsErr(v); err != nil {
		return nil, err
	}
	if s.Password != nil {
		hashed, err := r.hash(*s.Password)
		if err != nil {
			return nil, err
		}
		updates["hashed_password"] = hashed
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
		if res.Error != nil {
			return nil, storeErr("update user settings", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, fmt.Errorf("update user %d: %w", id, ErrNotFound)
		}
	}
	return r.GetByID(ctx, id)
}

// Delete removes the user together with every mood log it owns.
func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.MoodLog{}).Error; err != nil {
			return storeErr("delete user mood logs", err)
		}
		res := tx.Delete(&models.User{}, id)
		if res.Error != nil {
			return storeErr("delete user", res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("delete user %d: %w", id, ErrNotFound)
		}
		return nil
	})
}
