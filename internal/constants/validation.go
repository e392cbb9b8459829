package constants

// Single-use token settings
const (
	TokenBytes = 32
)
