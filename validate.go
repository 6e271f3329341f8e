package adminGate

import (
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

func normalizeEmail(email string) string {
	return strings.TrimSpace(email)
}

func (g *Gate) validateCredentials(email, password string) *Failure {
	if email == "" {
		return validationFailure("Email is required.")
	}
	if len(email) > g.config.Credentials.MaxEmailLength {
		return validationFailure("Email is too long.")
	}
	if err := validate.Var(email, "email"); err != nil {
		return validationFailure("Enter a valid email address.")
	}
	if password == "" {
		return validationFailure("Password is required.")
	}
	if utf8.RuneCountInString(password) < g.config.Credentials.MinPasswordLength {
		return validationFailure("Password is too short.")
	}
	return nil
}

// validCode reports whether code is exactly n ASCII digits.
func validCode(code string, n int) bool {
	if len(code) != n {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func validationFailure(msg string) *Failure {
	return &Failure{Kind: KindValidation, Message: msg}
}
