package service

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/personality-predictor/backend/internal/constants"
	apperrors "github.com/personality-predictor/backend/internal/errors"
	"github.com/personality-predictor/backend/internal/model"
	"github.com/personality-predictor/backend/pkg/cache"
	ctxutil "github.com/personality-predictor/backend/pkg/context"
	"github.com/personality-predictor/backend/pkg/logger"
	"github.com/personality-predictor/backend/pkg/metrics"
	"github.com/personality-predictor/backend/pkg/oauth"
)

// CallbackParams are the query parameters a provider redirects back with.
type CallbackParams struct {
	State string
	Code  string
	Error string
}

// FederatedService bridges provider logins onto local accounts.
type FederatedService struct {
	providers   *oauth.Registry
	states      cache.Store
	stateTTL    time.Duration
	users       UserStore
	jwtService  *JWTService
	frontendURL string
	metrics     metrics.Recorder
	bcryptCost  int
}

func NewFederatedService(providers *oauth.Registry, states cache.Store, stateTTL time.Duration, users UserStore, jwtService *JWTService, frontendURL string, rec metrics.Recorder) *FederatedService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &FederatedService{
		providers:   providers,
		states:      states,
		stateTTL:    stateTTL,
		users:       users,
		jwtService:  jwtService,
		frontendURL: frontendURL,
		metrics:     rec,
		bcryptCost:  bcrypt.DefaultCost,
	}
}

// LoginURL stores a fresh state value for provider and returns the consent
// URL to redirect the browser to.
func (s *FederatedService) LoginURL(ctx context.Context, providerName string) (string, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "LoginURL")

	provider, ok := s.providers.Get(providerName)
	if !ok {
		return "", apperrors.ErrUnknownProvider
	}

	state := uuid.NewString()
	if err := s.states.Set(ctx, constants.CacheKeyOAuthState+state, providerName, s.stateTTL); err != nil {
		logger.ErrorWithContext(ctx, "Failed to store login state").
			String("provider", providerName).
			Err(err).
			Log()
		return "", apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
	}

	return provider.GetLoginURL(state), nil
}

// FailureRedirect is where every failed callback lands.
func (s *FederatedService) FailureRedirect() string {
	return s.frontendURL + "/login?error=" + url.PathEscape(constants.MsgAuthFailed)
}

// HandleCallback completes a provider login and returns the frontend URL to
// redirect to. Failures never surface to the browser beyond the generic
// error redirect.
func (s *FederatedService) HandleCallback(ctx context.Context, providerName string, params CallbackParams) string {
	ctx = ctxutil.WithFunction(ctx, "service", "HandleCallback")

	user, token, err := s.completeLogin(ctx, providerName, params)
	if err != nil {
		s.metrics.RecordAuthEvent("federated_"+providerName, false)
		logger.WarnWithContext(ctx, "Federated login failed").
			String("provider", providerName).
			Err(err).
			Log()
		return s.FailureRedirect()
	}

	s.metrics.RecordAuthEvent("federated_"+providerName, true)
	logger.LogAuth(user.ID, "federated_"+providerName, true)

	q := url.Values{
		"token":  {token},
		"userId": {strconv.FormatUint(uint64(user.ID), 10)},
	}
	return s.frontendURL + "/auth/callback?" + q.Encode()
}

func (s *FederatedService) completeLogin(ctx context.Context, providerName string, params CallbackParams) (*model.User, string, error) {
	provider, ok := s.providers.Get(providerName)
	if !ok {
		return nil, "", apperrors.ErrUnknownProvider
	}

	if params.Error != "" {
		return nil, "", apperrors.WrapError(apperrors.ErrProviderExchange, errors.New(params.Error))
	}

	if params.State == "" {
		return nil, "", apperrors.ErrInvalidOAuthState
	}
	stored, found, err := s.states.Take(ctx, constants.CacheKeyOAuthState+params.State)
	if err != nil {
		return nil, "", apperrors.WrapError(apperrors.ErrServiceUnavailable, err)
	}
	if !found || stored != providerName {
		return nil, "", apperrors.ErrInvalidOAuthState
	}

	if params.Code == "" {
		return nil, "", apperrors.ErrProviderExchange
	}
	identity, err := provider.ExchangeCode(ctx, params.Code)
	if err != nil {
		return nil, "", apperrors.WrapError(apperrors.ErrProviderExchange, err)
	}

	user, err := s.FederatedLogin(ctx, identity)
	if err != nil {
		return nil, "", err
	}

	token, err := s.jwtService.GenerateToken(user)
	if err != nil {
		return nil, "", apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return user, token, nil
}

// FederatedLogin finds the account for a provider identity by email or
// provider id. A new identity creates a verified account with an unusable
// random password; an existing account without this provider gets the id
// linked and, if it has none, the picture. Nothing else is modified.
func (s *FederatedService) FederatedLogin(ctx context.Context, identity *oauth.Identity) (*model.User, error) {
	ctx = ctxutil.WithFunction(ctx, "service", "FederatedLogin")

	email := normalizeEmail(identity.Email)
	if email == "" {
		return nil, apperrors.ErrProviderEmailEmpty
	}

	user, err := s.users.FindByEmailOrProvider(ctx, email, identity.Provider, identity.ProviderID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = s.createFederatedUser(ctx, identity, email)
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	case user.ProviderID(identity.Provider) == "":
		if err := s.users.LinkProvider(ctx, user.ID, identity.Provider, identity.ProviderID, identity.Picture); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.WrapError(apperrors.ErrInternal, err)
		}
		logger.InfoWithContext(ctx, "Provider linked to existing account").
			Uint("user_id", user.ID).
			String("provider", identity.Provider).
			Log()
	}

	if err := s.users.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.WarnWithContext(ctx, "Failed to update last login timestamp").
			Uint("user_id", user.ID).
			Err(err).
			Log()
	}

	return user, nil
}

func (s *FederatedService) createFederatedUser(ctx context.Context, identity *oauth.Identity, email string) (*model.User, error) {
	// never revealed; the account can only sign in through a provider until a reset
	randomPassword, _, err := newSingleUseToken()
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	hashedPassword, err := hashPassword(randomPassword, s.bcryptCost)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	name := strings.TrimSpace(identity.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	providerID := identity.ProviderID
	user := &model.User{
		Name:       name,
		Email:      email,
		Password:   hashedPassword,
		ProfilePic: identity.Picture,
		IsVerified: true,
	}
	switch identity.Provider {
	case constants.ProviderGoogle:
		user.GoogleID = &providerID
	case constants.ProviderFacebook:
		user.FacebookID = &providerID
	default:
		return nil, apperrors.ErrUnknownProvider
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// lost a race with a concurrent first login
			existing, findErr := s.users.FindByEmailOrProvider(ctx, email, identity.Provider, identity.ProviderID)
			if findErr == nil {
				return existing, nil
			}
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.InfoWithContext(ctx, "Account created from provider identity").
		Uint("user_id", user.ID).
		String("provider", identity.Provider).
		Log()

	return user, nil
}
