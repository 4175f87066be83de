package service

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var emailPattern = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

const (
	minNameLength     = 2
	minPasswordLength = 6
	// bcrypt only accepts inputs up to 72 bytes.
	maxPasswordBytes  = 72
)

type SignupInput struct {
	Name     string
	Email    string
	Password string
}

// normalize trims name and email and checks every field in a fixed order so
// the first failure is the one reported.
func (in SignupInput) normalize() (SignupInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)

	switch {
	case in.Name == "":
		return in, invalid("name", "Name is required")
	case utf8.RuneCountInString(in.Name) < minNameLength:
		return in, invalid("name", "Name must be at least 2 characters")
	case in.Email == "":
		return in, invalid("email", "Email is required")
	case !emailPattern.MatchString(in.Email):
		return in, invalid("email", "Invalid email format")
	case in.Password == "":
		return in, invalid("password", "Password is required")
	}
	if err := checkPassword(in.Password); err != nil {
		return in, err
	}
	return in, nil
}

func checkPassword(password string) error {
	if utf8.RuneCountInString(password) < minPasswordLength {
		return invalid("password", "Password must be at least 6 characters")
	}
	if len(password) > maxPasswordBytes {
		return invalid("password", "Password must be at most 72 bytes")
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			hasLetter = true
		case r >= '0' && r <= '9':
			hasDigit = true
		}
	}
	if !hasLetter {
		return invalid("password", "Password must contain at least one letter")
	}
	if !hasDigit {
		return invalid("password", "Password must contain at least one number")
	}
	return nil
}
