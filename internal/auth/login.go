package auth

import (
	"crypto/subtle"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin is the only role the service knows.
const RoleAdmin = "admin"

var ErrBadCredentials = errors.New("invalid username or password")

// Admin is the single configured operator account.
type Admin struct {
	User         string
	PasswordHash string
}

// Login checks the credentials and issues a token pair.
func (a Admin) Login(s *Signer, user, password string) (TokenPair, error) {
	if a.PasswordHash == "" || subtle.ConstantTimeCompare([]byte(user), []byte(a.User)) != 1 {
		return TokenPair{}, ErrBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)); err != nil {
		return TokenPair{}, ErrBadCredentials
	}
	return s.Issue(a.User, RoleAdmin)
}

// HashPassword returns the bcrypt hash to put in ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(hash), nil
}
