package session

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// FieldErrors maps a form field to its validation message.
type FieldErrors map[string]string

var (
	emailPattern    = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// ValidateEmail returns a message for an invalid email, or "".
func ValidateEmail(email string) string {
	switch {
	case email == "":
		return "Email is required"
	case !emailPattern.MatchString(email):
		return "Please enter a valid email address"
	}
	return ""
}

// ValidatePassword checks password strength.
func ValidatePassword(password string) string {
	if password == "" {
		return "Password is required"
	}
	var missing []string
	if utf8.RuneCountInString(password) < 8 {
		missing = append(missing, "at least 8 characters")
	}
	var lower, upper, digit bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !lower {
		missing = append(missing, "one lowercase letter")
	}
	if !upper {
		missing = append(missing, "one uppercase letter")
	}
	if !digit {
		missing = append(missing, "one number")
	}
	if len(missing) > 0 {
		return "Password must contain " + strings.Join(missing, ", ")
	}
	return ""
}

// ValidateUsername checks length and allowed characters.
func ValidateUsername(username string) string {
	n := utf8.RuneCountInString(username)
	switch {
	case n < 3:
		return "Username must be at least 3 characters"
	case n > 30:
		return "Username must be no more than 30 characters"
	case !usernamePattern.MatchString(username):
		return "Username can only contain letters, numbers, underscore, and dash"
	}
	return ""
}

// Validate checks login form values.
func (c Credentials) Validate() FieldErrors {
	errs := FieldErrors{}
	errs.add("email", ValidateEmail(c.Email))
	if c.Password == "" {
		errs.add("password", "Password is required")
	}
	return errs.orNil()
}

// Validate checks sign-up form values.
func (r Registration) Validate() FieldErrors {
	errs := FieldErrors{}
	if strings.TrimSpace(r.Name) == "" {
		errs.add("name", "Name is required")
	}
	errs.add("email", ValidateEmail(r.Email))
	if r.Username != "" {
		errs.add("username", ValidateUsername(r.Username))
	}
	errs.add("password", ValidatePassword(r.Password))
	if r.ConfirmPassword != r.Password {
		errs.add("confirmPassword", "Passwords do not match")
	}
	return errs.orNil()
}

func (f FieldErrors) add(field, msg string) {
	if msg != "" {
		f[field] = msg
	}
}

func (f FieldErrors) orNil() FieldErrors {
	if len(f) == 0 {
		return nil
	}
	return f
}
