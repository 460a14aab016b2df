package auth

import "golang.org/x/crypto/bcrypt"

// HashPassword applies a salted bcrypt hash with the default work factor.
// Two calls with the same input produce different outputs.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword recomputes and compares using bcrypt's constant-time
// comparison. A mismatch returns false, never an error surfaced upward.
func VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
