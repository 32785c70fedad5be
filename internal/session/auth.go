package session

import (
	"context"
	"fmt"

	"futmap/internal/domain"
	"futmap/internal/models"
	"futmap/internal/seed"

	"golang.org/x/crypto/bcrypt"
)

// DemoAuthenticator accepts a single fixed credential pair and returns
// the demo profile.
type DemoAuthenticator struct {
	email   string
	hash    []byte
	profile models.User
}

func NewDemoAuthenticator() (*DemoAuthenticator, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(models.DemoPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("hash demo password: %w", err)
	}
	return &DemoAuthenticator{
		email:   models.DemoEmail,
		hash:    hash,
		profile: seed.DemoUser(),
	}, nil
}

func (a *DemoAuthenticator) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	if email != a.email {
		return nil, domain.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(password)); err != nil {
		return nil, domain.ErrInvalidCredentials
	}
	u := a.profile.Clone()
	return &u, nil
}
