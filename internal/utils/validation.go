package contextutils

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// matiere codes are short uppercase identifiers like "TCP" or "SYD"
var matiereCodePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,31}$`)

// IsValidEmail checks if an email address is valid using go-playground/validator
func IsValidEmail(email string) bool {
	return validate.Var(email, "email") == nil
}

// IsValidMatiereCode checks whether a string is usable as a subject code.
func IsValidMatiereCode(code string) bool {
	return matiereCodePattern.MatchString(strings.TrimSpace(code))
}
