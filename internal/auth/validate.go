package auth

import "regexp"

// Validation patterns
var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,64}$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
)

// RFC 5321 limit
const maxEmailLength = 254

func validateRegistration(username, email, password string, maxPasswordBytes int) error {
	if username == "" {
		return ErrUsernameRequired
	}
	if email == "" {
		return ErrEmailRequired
	}
	if password == "" {
		return ErrPasswordRequired
	}

	// Usernames cannot contain '@', so they never collide with an email identifier.
	if !usernamePattern.MatchString(username) {
		return ErrUsernameInvalid
	}
	if len(email) > maxEmailLength || !emailPattern.MatchString(email) {
		return ErrEmailInvalid
	}
	if len(password) > maxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}
