package identity

import (
	"regexp"
	"strings"
)

type Strength string

const (
	StrengthWeak   Strength = "weak"
	StrengthMedium Strength = "medium"
	StrengthStrong Strength = "strong"
)

const (
	minPasswordLength = 6
	minUsernameLength = 3
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// PasswordCheck is the outcome of scoring a password.
type PasswordCheck struct {
	Valid    bool     `json:"valid"`
	Strength Strength `json:"strength"`
	Messages []string `json:"messages"`
}

// CheckPassword scores length (8, 12) and character classes (lower, upper,
// digit, other). Below 3 is weak and rejected, below 5 medium.
func CheckPassword(password string) PasswordCheck {
	res := PasswordCheck{Strength: StrengthWeak, Messages: []string{}}
	if len([]rune(password)) < minPasswordLength {
		res.Messages = append(res.Messages, "Password must be at least 6 characters long")
		return res
	}

	score := 0
	if len([]rune(password)) >= 8 {
		score++
	}
	if len([]rune(password)) >= 12 {
		score++
	}
	var lower, upper, digit, other bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			other = true
		}
	}
	for _, ok := range []bool{lower, upper, digit, other} {
		if ok {
			score++
		}
	}

	switch {
	case score < 3:
		res.Messages = append(res.Messages, "Use a mix of letters, numbers, and special characters")
	case score < 5:
		res.Strength = StrengthMedium
		res.Valid = true
	default:
		res.Strength = StrengthStrong
		res.Valid = true
	}
	return res
}

func ValidEmail(email string) bool {
	return emailPattern.MatchString(strings.TrimSpace(email))
}
