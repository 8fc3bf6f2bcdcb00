package auth

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var errEmptyPassword = errors.New("password must not be empty")

// HashPassword derives a bcrypt hash from a cleartext password.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errEmptyPassword
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

var dummyHash = sync.OnceValue(func() string {
	h, _ := bcrypt.GenerateFromPassword([]byte("prompthub-dummy-password"), bcrypt.DefaultCost)
	return string(h)
})

// burnPasswordCheck spends the same time as a real comparison so that
// unknown emails and wrong passwords are indistinguishable by latency.
func burnPasswordCheck(password string) {
	_ = bcrypt.CompareHashAndPassword([]byte(dummyHash()), []byte(password))
}
