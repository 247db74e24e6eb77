package identity

import "tock/cmd/security/password"

// HashPassword hashes a plaintext password with the canonical Argon2id settings.
func HashPassword(plain string) (string, error) {
	return password.Hash(plain, password.DefaultParams())
}

// VerifyPassword checks a plaintext password against an encoded Argon2id hash.
func VerifyPassword(plain, encodedHash string) (bool, error) {
	return password.Verify(plain, encodedHash)
}
