package identity

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

const (
	maxEmailLength = 254
	maxNameLength  = 100
	specialChars   = "!@#$%^&*(),.?\":{}|<>"
)

var (
	phonePattern = regexp.MustCompile(`^\+?\d{10,15}$`)
	phoneStrip   = regexp.MustCompile(`[^\d+]`)
	emailFolder  = cases.Fold()
)

// NormalizeEmail trims and case-folds an email address. Stores must look up
// and persist emails in this form.
func NormalizeEmail(email string) string {
	return emailFolder.String(strings.TrimSpace(email))
}

func validateEmail(raw string) (string, error) {
	email := NormalizeEmail(raw)
	if email == "" {
		return "", invalid("email", "is required")
	}
	if len(email) > maxEmailLength {
		return "", invalid("email", "is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return "", invalid("email", "is not a valid address")
	}
	at := strings.LastIndexByte(email, '@')
	if at < 1 || !strings.Contains(email[at+1:], ".") {
		return "", invalid("email", "is not a valid address")
	}
	return email, nil
}

func (e *Engine) validatePassword(pw string) error {
	n := utf8.RuneCountInString(pw)
	if n < e.config.Password.MinLength {
		return invalid("password", "is too short")
	}
	if n > e.config.Password.MaxLength {
		return invalid("password", "is too long")
	}
	if !e.config.Password.RequireComplexity {
		return nil
	}

	var upper, lower, digit, special bool
	for _, r := range pw {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}
	switch {
	case !upper:
		return invalid("password", "must contain an uppercase letter")
	case !lower:
		return invalid("password", "must contain a lowercase letter")
	case !digit:
		return invalid("password", "must contain a digit")
	case !special:
		return invalid("password", "must contain a special character")
	}
	return nil
}

func validateName(field, raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", invalid(field, "is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", invalid(field, "is too long")
	}
	return name, nil
}

// normalizePhone strips formatting characters. An empty input is allowed.
func normalizePhone(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	phone := phoneStrip.ReplaceAllString(raw, "")
	if !phonePattern.MatchString(phone) {
		return "", invalid("phone", "is not a valid phone number")
	}
	return phone, nil
}

// validateRegistration returns the account to create, without id, hash or
// timestamps.
func (e *Engine) validateRegistration(req RegisterRequest) (Account, error) {
	email, err := validateEmail(req.Email)
	if err != nil {
		return Account{}, err
	}
	if err := e.validatePassword(req.Password); err != nil {
		return Account{}, err
	}
	first, err := validateName("first_name", req.FirstName)
	if err != nil {
		return Account{}, err
	}
	last, err := validateName("last_name", req.LastName)
	if err != nil {
		return Account{}, err
	}
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return Account{}, err
	}

	role := req.Role
	if role == "" {
		role = e.config.Account.DefaultRole
	}
	if !role.Valid() {
		return Account{}, invalid("role", "must be one of rider, driver, admin")
	}

	return Account{
		Email:     email,
		FirstName: first,
		LastName:  last,
		Phone:     phone,
		Role:      role,
	}, nil
}
