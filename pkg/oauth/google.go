package oauth

import (
	"encoding/json"

	"golang.org/x/oauth2/endpoints"

	"github.com/personality-predictor/backend/internal/constants"
)

const defaultGoogleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

type googleUserInfo struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// NewGoogleProvider requests the profile and email scopes.
func NewGoogleProvider(cfg Config) Provider {
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultGoogleUserInfoURL
	}

	return &oauthProvider{
		name:        constants.ProviderGoogle,
		config:      newConfig(cfg, endpoints.Google, []string{"profile", "email"}),
		userInfoURL: userInfoURL,
		httpClient:  cfg.HTTPClient,
		decode: func(body []byte) (*Identity, error) {
			var info googleUserInfo
			if err := json.Unmarshal(body, &info); err != nil {
				return nil, err
			}
			return &Identity{
				ProviderID: info.Sub,
				Email:      info.Email,
				Name:       info.Name,
				Picture:    info.Picture,
			}, nil
		},
	}
}
