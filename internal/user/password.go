package user

import (
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 6

const (
	StrengthWeak   = "Weak"
	StrengthMedium = "Medium"
	StrengthStrong = "Strong"
)

type StrengthResult struct {
	Score int    `json:"score"`
	Label string `json:"label"`
}

// PasswordStrength scores one point each for length over 5, an uppercase
// letter, a digit and a non-alphanumeric character.
func PasswordStrength(p string) StrengthResult {
	var upper, digit, symbol bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			symbol = true
		}
	}

	score := 0
	for _, ok := range []bool{len([]rune(p)) > 5, upper, digit, symbol} {
		if ok {
			score++
		}
	}

	label := StrengthWeak
	switch {
	case score >= 4:
		label = StrengthStrong
	case score >= 2:
		label = StrengthMedium
	}
	return StrengthResult{Score: score, Label: label}
}

func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
