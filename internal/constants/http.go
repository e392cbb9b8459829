package constants

// HTTP Header Names
const (
	HeaderContentType    = "Content-Type"
	HeaderAuthorization  = "Authorization"
	HeaderUserAgent      = "User-Agent"
	HeaderXRequestID     = "X-Request-ID"
	HeaderXCorrelationID = "X-Correlation-ID"
	HeaderXForwardedFor  = "X-Forwarded-For"
	HeaderXRealIP        = "X-Real-IP"
	HeaderRetryAfter     = "Retry-After"
)

// HTTP Content Types
const (
	ContentTypeJSON = "application/json"
)

// Common HTTP Error Messages
const (
	MsgUnauthorized       = "Unauthorized"
	MsgNotFound           = "Resource not found"
	MsgBadRequest         = "Invalid request"
	MsgValidationFailed   = "Validation failed"
	MsgInternalError      = "Internal server error"
	MsgServiceUnavailable = "Service temporarily unavailable"
	MsgTooManyRequests    = "Too many requests, please try again later"
	MsgAuthFailed         = "Authentication failed"
)

// Auth flow messages
const (
	MsgSignupSuccess        = "Signup successful. Please check your email to verify your account."
	MsgResetLinkSent        = "If that email is registered, a password reset link has been sent."
	MsgVerificationResent   = "If that account exists and is not yet verified, a new verification email has been sent."
	MsgPasswordResetSuccess = "Password has been reset successfully. You can now log in."
	MsgEmailVerified        = "Email verified successfully. You can now log in."
)
