package crypto

import "golang.org/x/crypto/bcrypt"

// passwordCost trades hash strength against signup latency.
const passwordCost = 12

// HashPassword derives a bcrypt hash from the plaintext password.
func HashPassword(plain string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
}

// ComparePassword reports whether plain matches the stored hash. The
// error is bcrypt.ErrMismatchedHashAndPassword on mismatch.
func ComparePassword(hash []byte, plain string) error {
	return bcrypt.CompareHashAndPassword(hash, []byte(plain))
}
