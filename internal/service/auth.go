package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/personality-predictor/backend/config"
	"github.com/personality-predictor/backend/internal/constants"
	"github.com/personality-predictor/backend/internal/dto"
	apperrors "github.com/personality-predictor/backend/internal/errors"
	"github.com/personality-predictor/backend/internal/model"
	ctxutil "github.com/personality-predictor/backend/pkg/context"
	"github.com/personality-predictor/backend/pkg/logger"
	"github.com/personality-predictor/backend/pkg/metrics"
)

type AuthService struct {
	users      UserStore
	jwtService *JWTService
	mailer     AccountMailer
	tokens     config.TokenConfig
	metrics    metrics.Recorder
	bcryptCost int
	now        func() time.Time
}

func NewAuthService(users UserStore, jwtService *JWTService, mailer AccountMailer, tokens config.TokenConfig, rec metrics.Recorder) *AuthService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthService{
		users:      users,
		jwtService: jwtService,
		mailer:     mailer,
		tokens:     tokens,
		metrics:    rec,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashPassword hashes password using bcrypt
func hashPassword(password string, cost int) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedPassword), nil
}

// checkPassword verifies password against hash
func checkPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// Signup registers an unverified account and mails the verification link.
// No bearer token is issued until the address is verified.
func (s *AuthService) Signup(ctx context.Context, req *dto.SignupRequest) (*dto.SignupResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Signup")

	email := normalizeEmail(req.Email)

	logger.InfoWithContext(ctx, "Signup attempt").
		String("email", email).
		Log()

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		logger.WarnWithContext(ctx, "Signup rejected: email already registered").
			String("email", email).
			Log()
		s.metrics.RecordAuthEvent("signup", false)
		return nil, apperrors.ErrEmailExists
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.ErrorWithContext(ctx, "Failed to check email availability").
			String("email", email).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	hashedPassword, err := hashPassword(req.Password, s.bcryptCost)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to hash password").
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	rawToken, tokenHash, err := newSingleUseToken()
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	expires := s.now().Add(s.tokens.VerificationTTL).UTC()

	user := &model.User{
		Name:                     strings.TrimSpace(req.Name),
		Email:                    email,
		Password:                 hashedPassword,
		IsVerified:               false,
		VerificationToken:        &tokenHash,
		VerificationTokenExpires: &expires,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.metrics.RecordAuthEvent("signup", false)
			return nil, apperrors.ErrEmailExists
		}
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("email", email).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.mailer.SendVerification(ctx, user.Email, user.Name, rawToken); err != nil {
		logger.ErrorWithContext(ctx, "Verification email not sent").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	s.metrics.RecordAuthEvent("signup", true)
	logger.InfoWithContext(ctx, "User signed up").
		Uint("user_id", user.ID).
		Log()

	return &dto.SignupResponse{
		ID:      user.ID,
		Name:    user.Name,
		Email:   user.Email,
		Message: constants.MsgSignupSuccess,
	}, nil
}

// Login checks the credentials and issues a bearer token. Unknown email and
// wrong password are indistinguishable; an unverified account is refused
// only after the password matched.
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Login")

	email := normalizeEmail(req.Email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.InfoWithContext(ctx, "Authentication failed: user not found").
				String("email", email).
				Log()
			s.metrics.RecordAuthEvent("login", false)
			return nil, apperrors.ErrInvalidCredentials
		}
		logger.ErrorWithContext(ctx, "Failed to get user for authentication").
			String("email", email).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if !checkPassword(user.Password, req.Password) {
		logger.WarnWithContext(ctx, "Authentication failed: incorrect password").
			Uint("user_id", user.ID).
			Log()
		s.metrics.RecordAuthEvent("login", false)
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsVerified {
		logger.InfoWithContext(ctx, "Authentication refused: email not verified").
			Uint("user_id", user.ID).
			Log()
		s.metrics.RecordAuthEvent("login", false)
		return nil, apperrors.ErrEmailNotVerified
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.WarnWithContext(ctx, "Failed to update last login timestamp").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	token, err := s.jwtService.GenerateToken(user)
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to generate JWT token").
			Uint("user_id", user.ID).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.metrics.RecordAuthEvent("login", true)
	logger.LogAuth(user.ID, "login", true)

	return &dto.LoginResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		ProfilePic: user.ProfilePic,
		Token:      token,
	}, nil
}

// ForgotPassword issues a reset token when the address is registered. The
// outcome is never reported to the caller.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) {
	ctx = ctxutil.WithFunction(ctx, "service", "ForgotPassword")
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.ErrorWithContext(ctx, "Failed to look up account for reset").
				Err(err).
				Log()
		}
		return
	}

	rawToken, tokenHash, err := newSingleUseToken()
	if err != nil {
		logger.ErrorWithContext(ctx, "Failed to generate reset token").
			Err(err).
			Log()
		return
	}

	if err := s.users.SetResetToken(ctx, user.ID, tokenHash, s.now().Add(s.tokens.ResetTTL).UTC()); err != nil {
		logger.ErrorWithContext(ctx, "Failed to store reset token").
			Uint("user_id", user.ID).
			Err(err).
			Log()
		return
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, rawToken, s.tokens.ResetTTL); err != nil {
		logger.ErrorWithContext(ctx, "Reset email not sent").
			Uint("user_id", user.ID).
			Err(err).
			Log()
		return
	}

	s.metrics.RecordAuthEvent("forgot_password", true)
	logger.InfoWithContext(ctx, "Reset link issued").
		Uint("user_id", user.ID).
		Log()
}

// ResetPassword consumes a reset token and replaces the password.
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	ctx = ctxutil.WithFunction(ctx, "service", "ResetPassword")

	hashedPassword, err := hashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	userID, err := s.users.ConsumeResetToken(ctx, hashToken(strings.TrimSpace(req.Token)), hashedPassword, s.now().UTC())
	if err != nil {
		s.metrics.RecordAuthEvent("reset_password", false)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.InfoWithContext(ctx, "Reset rejected: token invalid or expired").Log()
			return apperrors.ErrInvalidResetToken
		}
		logger.ErrorWithContext(ctx, "Failed to reset password").
			Err(err).
			Log()
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.metrics.RecordAuthEvent("reset_password", true)
	logger.LogAuth(userID, "reset_password", true)
	return nil
}

// VerifyEmail consumes the verification token of email.
func (s *AuthService) VerifyEmail(ctx context.Context, email, token string) error {
	ctx = ctxutil.WithFunction(ctx, "service", "VerifyEmail")

	email = normalizeEmail(email)
	token = strings.TrimSpace(token)
	if email == "" || token == "" {
		return apperrors.ErrInvalidInput
	}

	if err := s.users.ConsumeVerificationToken(ctx, email, hashToken(token), s.now().UTC()); err != nil {
		s.metrics.RecordAuthEvent("verify_email", false)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.InfoWithContext(ctx, "Verification rejected: token invalid or expired").
				String("email", email).
				Log()
			return apperrors.ErrInvalidVerificationToken
		}
		logger.ErrorWithContext(ctx, "Failed to verify email").
			Err(err).
			Log()
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	s.metrics.RecordAuthEvent("verify_email", true)
	return nil
}

// ResendVerification rotates and re-mails the token of an unverified
// account. Like ForgotPassword it reports nothing to the caller.
func (s *AuthService) ResendVerification(ctx context.Context, email string) {
	ctx = ctxutil.WithFunction(ctx, "service", "ResendVerification")
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil || user.IsVerified {
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.ErrorWithContext(ctx, "Failed to look up account for verification").
				Err(err).
				Log()
		}
		return
	}

	rawToken, tokenHash, err := newSingleUseToken()
	if err != nil {
		return
	}

	if err := s.users.SetVerificationToken(ctx, user.ID, tokenHash, s.now().Add(s.tokens.VerificationTTL).UTC()); err != nil {
		logger.ErrorWithContext(ctx, "Failed to store verification token").
			Uint("user_id", user.ID).
			Err(err).
			Log()
		return
	}

	if err := s.mailer.SendVerification(ctx, user.Email, user.Name, rawToken); err != nil {
		logger.ErrorWithContext(ctx, "Verification email not sent").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}
}

// Profile returns the public fields of the account.
func (s *AuthService) Profile(ctx context.Context, userID uint) (*dto.ProfileResponse, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Profile")

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return &dto.ProfileResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		ProfilePic: user.ProfilePic,
	}, nil
}

// Authenticate resolves a bearer token to its account. Tokens issued
// before the last password reset are rejected.
func (s *AuthService) Authenticate(ctx context.Context, tokenString string) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "Authenticate")

	claims, err := s.jwtService.ValidateToken(tokenString)
	if err != nil {
		logger.DebugWithContext(ctx, "Bearer token rejected").
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInvalidToken, err)
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if user.TokenVersion != claims.TokenVersion {
		logger.InfoWithContext(ctx, "Bearer token revoked").
			Uint("user_id", user.ID).
			Log()
		return nil, apperrors.ErrInvalidToken
	}

	return user, nil
}
