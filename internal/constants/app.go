package constants

// Application Information
const (
	AppName    = "Personality Predictor API"
	AppVersion = "1.0.0"
)

// Environment Types
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// Cache Key Prefixes
const (
	CacheKeyPrefix     = "pp:"
	CacheKeyOAuthState = CacheKeyPrefix + "oauth_state:"
	CacheKeyRateLimit  = CacheKeyPrefix + "rate_limit:"
)

// Federated identity providers
const (
	ProviderGoogle   = "google"
	ProviderFacebook = "facebook"
)

// Contact status values
const (
	ContactStatusPending   = "pending"
	ContactStatusResponded = "responded"
)
