// Package auth holds the login gate. The gate is a replaceable collaborator:
// handlers only see the Authenticator interface.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("неверный логин или пароль")

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) error
}

// Static checks against a single configured user. When a bcrypt hash is set
// it takes precedence over the plain password.
type Static struct {
	username     []byte
	password     []byte
	passwordHash []byte
}

type StaticOption func(*Static)

func WithPasswordHash(hash string) StaticOption {
	return func(s *Static) {
		if hash != "" {
			s.passwordHash = []byte(hash)
		}
	}
}

func NewStatic(username, password string, opts ...StaticOption) *Static {
	s := &Static{
		username: []byte(username),
		password: []byte(password),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Static) Authenticate(_ context.Context, username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(username), s.username) == 1

	var passOK bool
	if s.passwordHash != nil {
		passOK = bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password)) == nil
	} else {
		passOK = subtle.ConstantTimeCompare([]byte(password), s.password) == 1
	}

	if !userOK || !passOK || len(s.username) == 0 {
		return ErrInvalidCredentials
	}
	return nil
}
