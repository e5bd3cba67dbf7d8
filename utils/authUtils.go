package utils

import (
	"slices"

	"golang.org/x/crypto/bcrypt"
)

const PasswordCost = 12

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func ComparePassword(givenPassword string, hashedPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(givenPassword)) == nil
}

// HasRole reports whether role is one of the allowed roles.
func HasRole(role string, allowed ...string) bool {
	return slices.Contains(allowed, role)
}
