package service

import (
	"regexp"
	"unicode/utf8"
)

var (
	specialCharRe = regexp.MustCompile(`\W`)
	digitRe       = regexp.MustCompile(`\d`)
	upperRe       = regexp.MustCompile(`[A-Z]`)
)

const minPasswordLengthFloor = 4

// PasswordPolicy is read from the security configuration category.
type PasswordPolicy struct {
	MinLength        int  `json:"password_min_length"`
	RequireSpecial   bool `json:"password_require_special"`
	RequireNumbers   bool `json:"password_require_numbers"`
	RequireUppercase bool `json:"password_require_uppercase"`
}

func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{MinLength: 8, RequireSpecial: true, RequireNumbers: true, RequireUppercase: true}
}

// Validate checks length, then special character, digit and uppercase, reporting the first failure.
func (p PasswordPolicy) Validate(field, password string) error {
	minLen := p.MinLength
	if minLen < minPasswordLengthFloor {
		minLen = minPasswordLengthFloor
	}
	if utf8.RuneCountInString(password) < minLen {
		return invalid(field, "password must be at least %d characters long", minLen)
	}
	if p.RequireSpecial && !specialCharRe.MatchString(password) {
		return invalid(field, "password must contain at least one special character")
	}
	if p.RequireNumbers && !digitRe.MatchString(password) {
		return invalid(field, "password must contain at least one number")
	}
	if p.RequireUppercase && !upperRe.MatchString(password) {
		return invalid(field, "password must contain at least one uppercase letter")
	}
	return nil
}
