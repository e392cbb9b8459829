package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/personality-predictor/backend/internal/constants"
	"github.com/personality-predictor/backend/internal/model"
	ctxutil "github.com/personality-predictor/backend/pkg/context"
	"github.com/personality-predictor/backend/pkg/logger"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// providerColumn maps a provider name onto its identifier column. Only known
// providers are accepted so the column name never comes from user input.
func providerColumn(provider string) (string, error) {
	switch provider {
	case constants.ProviderGoogle:
		return "google_id", nil
	case constants.ProviderFacebook:
		return "facebook_id", nil
	default:
		return "", fmt.Errorf("unknown provider %q", provider)
	}
}

func (r *UserRepository) GetByID(ctx context.Context, id uint) (*model.User, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "GetByID")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	if err := ctx.Err(); err != nil {
		logger.WarnWithContext(ctx, "Context cancelled before query").
			Err(err).
			Log()
		return nil, err
	}

	start := time.Now()
	var user model.User

	result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)
	duration := time.Since(start)

	if result.Error != nil {
		logger.DebugWithContext(ctx, "Failed to get user by ID").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return nil, result.Error
	}

	logger.DebugWithContext(ctx, "User retrieved successfully").
		Uint("user_id", id).
		Duration(duration).
		Log()

	return &user, nil
}

// GetByEmail finds user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "GetByEmail")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	start := time.Now()
	var user model.User

	result := r.db.WithContext(ctx).Where("email = ?", email).First(&user)
	duration := time.Since(start)

	if result.Error != nil {
		logger.DebugWithContext(ctx, "User not found by email").
			String("email", email).
			Duration(duration).
			Err(result.Error).
			Log()
		return nil, result.Error
	}

	logger.DebugWithContext(ctx, "User retrieved successfully by email").
		Uint("user_id", user.ID).
		Duration(duration).
		Log()

	return &user, nil
}

// FindByEmailOrProvider returns the account owning email or the provider
// identifier, preferring the provider match when both exist.
func (r *UserRepository) FindByEmailOrProvider(ctx context.Context, email, provider, providerID string) (*model.User, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "FindByEmailOrProvider")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	column, err := providerColumn(provider)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	var users []model.User

	result := r.db.WithContext(ctx).
		Where("email = ? OR "+column+" = ?", email, providerID).
		Limit(2).
		Find(&users)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to look up federated identity").
			String("provider", provider).
			Duration(duration).
			Err(result.Error).
			Log()
		return nil, result.Error
	}

	if len(users) == 0 {
		return nil, gorm.ErrRecordNotFound
	}

	user := &users[0]
	for i := range users {
		if users[i].ProviderID(provider) == providerID {
			user = &users[i]
			break
		}
	}

	logger.DebugWithContext(ctx, "Account found for federated identity").
		String("provider", provider).
		Uint("user_id", user.ID).
		Duration(duration).
		Log()

	return user, nil
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "Create")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	start := time.Now()
	result := r.db.WithContext(ctx).Create(user)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("email", user.Email).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.InfoWithContext(ctx, "User created successfully").
		Uint("user_id", user.ID).
		Duration(duration).
		Log()

	return nil
}

// LinkProvider attaches a provider identifier to an account that has none for
// that provider. profile_pic is only filled when empty. A row that already
// carries an identifier is left untouched and reported as not found.
func (r *UserRepository) LinkProvider(ctx context.Context, id uint, provider, providerID, picture string) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "LinkProvider")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	column, err := providerColumn(provider)
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		column: providerID,
	}
	if picture != "" {
		updates["profile_pic"] = gorm.Expr("CASE WHEN profile_pic IS NULL OR profile_pic = '' THEN ? ELSE profile_pic END", picture)
	}

	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND "+column+" IS NULL", id).
		Updates(updates)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to link provider").
			Uint("user_id", id).
			String("provider", provider).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		logger.WarnWithContext(ctx, "Provider already linked or user missing").
			Uint("user_id", id).
			String("provider", provider).
			Log()
		return gorm.ErrRecordNotFound
	}

	logger.InfoWithContext(ctx, "Provider linked successfully").
		Uint("user_id", id).
		String("provider", provider).
		Duration(duration).
		Log()

	return nil
}

// UpdateLastLogin updates the last login timestamp
func (r *UserRepository) UpdateLastLogin(ctx context.Context, id uint) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "UpdateLastLogin")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Update("last_login", time.Now().UTC())
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update last login").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	return nil
}

// SetVerificationToken stores the hash and expiry of a freshly issued
// verification token, replacing any previous one.
func (r *UserRepository) SetVerificationToken(ctx context.Context, id uint, tokenHash string, expiresAt time.Time) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "SetVerificationToken")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	return r.setToken(ctx, id, map[string]interface{}{
		"verification_token":         tokenHash,
		"verification_token_expires": expiresAt,
	})
}

// SetResetToken stores the hash and expiry of a freshly issued reset token.
func (r *UserRepository) SetResetToken(ctx context.Context, id uint, tokenHash string, expiresAt time.Time) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "SetResetToken")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	return r.setToken(ctx, id, map[string]interface{}{
		"reset_password_token":   tokenHash,
		"reset_password_expires": expiresAt,
	})
}

func (r *UserRepository) setToken(ctx context.Context, id uint, updates map[string]interface{}) error {
	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id).Updates(updates)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to store token").
			Uint("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.DebugWithContext(ctx, "Token stored").
		Uint("user_id", id).
		Duration(duration).
		Log()

	return nil
}

// ConsumeVerificationToken marks the account verified if tokenHash matches the
// stored, unexpired verification token. The match and the clearing happen in
// one statement so a token can only succeed once.
func (r *UserRepository) ConsumeVerificationToken(ctx context.Context, email, tokenHash string, now time.Time) error {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "ConsumeVerificationToken")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	start := time.Now()
	result := r.db.WithContext(ctx).Model(&model.User{}).
		Where("email = ? AND verification_token = ? AND verification_token_expires > ?", email, tokenHash, now).
		Updates(map[string]interface{}{
			"is_verified":                true,
			"verification_token":         nil,
			"verification_token_expires": nil,
		})
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to consume verification token").
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	logger.InfoWithContext(ctx, "Email verified").
		Duration(duration).
		Log()

	return nil
}

// ConsumeResetToken replaces the password of the account holding tokenHash,
// clears the token and bumps token_version so existing bearer tokens stop
// working. Returns the affected user id.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uint, error) {
	ctx = context.WithValue(ctx, ctxutil.FunctionKey, "ConsumeResetToken")
	ctx = context.WithValue(ctx, ctxutil.ModuleKey, "repository")

	start := time.Now()
	var userID uint

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user model.User
		if err := tx.Select("id").
			Where("reset_password_token = ? AND reset_password_expires > ?", tokenHash, now).
			First(&user).Error; err != nil {
			return err
		}

		result := tx.Model(&model.User{}).
			Where("id = ? AND reset_password_token = ?", user.ID, tokenHash).
			Updates(map[string]interface{}{
				"password":               passwordHash,
				"reset_password_token":   nil,
				"reset_password_expires": nil,
				"token_version":          gorm.Expr("token_version + 1"),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		userID = user.ID
		return nil
	})
	duration := time.Since(start)

	if err != nil {
		logger.DebugWithContext(ctx, "Reset token not consumed").
			Duration(duration).
			Err(err).
			Log()
		return 0, err
	}

	logger.InfoWithContext(ctx, "Password reset applied").
		Uint("user_id", userID).
		Duration(duration).
		Log()

	return userID, nil
}
