package oauth

import (
	"encoding/json"

	"golang.org/x/oauth2/endpoints"

	"github.com/personality-predictor/backend/internal/constants"
)

const defaultFacebookUserInfoURL = "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)"

type facebookUserInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// NewFacebookProvider requests the email and public_profile scopes.
func NewFacebookProvider(cfg Config) Provider {
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = defaultFacebookUserInfoURL
	}

	return &oauthProvider{
		name:        constants.ProviderFacebook,
		config:      newConfig(cfg, endpoints.Facebook, []string{"email", "public_profile"}),
		userInfoURL: userInfoURL,
		httpClient:  cfg.HTTPClient,
		decode: func(body []byte) (*Identity, error) {
			var info facebookUserInfo
			if err := json.Unmarshal(body, &info); err != nil {
				return nil, err
			}
			return &Identity{
				ProviderID: info.ID,
				Email:      info.Email,
				Name:       info.Name,
				Picture:    info.Picture.Data.URL,
			}, nil
		},
	}
}
