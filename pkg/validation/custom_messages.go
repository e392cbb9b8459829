package validation

// CustomMessage returns the per-tag messages of a request field, keyed by
// its JSON name.
func CustomMessage(field string) map[string]string {
	var customValidationMessages = map[string]map[string]string{
		"name": {
			"required": "Name is required",
			"notblank": "Name is required",
			"max":      "Name is too long",
		},
		"email": {
			"required": "Please provide a valid email",
			"email":    "Please provide a valid email",
		},
		"password": {
			"required": "Password is required",
			"min":      "Password must be at least 6 characters long",
		},
		"token": {
			"required": "Token is required",
			"notblank": "Token is required",
		},
		"firstName": {
			"required": "First name is required",
			"notblank": "First name is required",
		},
		"lastName": {
			"required": "Last name is required",
			"notblank": "Last name is required",
		},
		"subject": {
			"required": "Subject is required",
			"notblank": "Subject is required",
		},
		"message": {
			"required": "Message is required",
			"notblank": "Message is required",
		},
		"session_id": {
			"required": "Session id is required",
		},
		"answer": {
			"required": "Answer is required",
			"min":      "Please provide a more detailed response (at least 5 characters)",
		},
	}
	return customValidationMessages[field]
}
