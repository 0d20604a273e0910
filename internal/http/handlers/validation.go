package handlers

import "unicode"

// passwordViolations runs the password policy as an ordered list of checks
// and returns one message per violated rule. An empty slice means the
// password is acceptable.
func passwordViolations(password string) []string {
	var (
		messages  []string
		hasUpper  bool
		hasLower  bool
		hasNumber bool
	)

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsNumber(r):
			hasNumber = true
		}
	}

	if len(password) < 8 {
		messages = append(messages, "The password must be at least 8 characters.")
	}

	if !hasUpper || !hasLower {
		messages = append(messages, "The password must contain at least one uppercase and one lowercase letter.")
	}

	if !hasNumber {
		messages = append(messages, "The password must contain at least one number.")
	}

	return messages
}
