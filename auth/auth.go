// Package auth resolves the caller of an API request from its bearer token.
//
// Tokens have the form "<user id>.<secret>". The secret is compared with the
// bcrypt hash stored on the user row.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"juriscite-backend/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrMalformed    = errors.New("malformed bearer token")
)

const bearerPrefix = "Bearer "

// UserLookup is the subset of the user store the authenticator needs
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// TokenAuthenticator verifies bearer tokens against stored secret hashes
type TokenAuthenticator struct {
	users UserLookup
}

func NewTokenAuthenticator(users UserLookup) *TokenAuthenticator {
	return &TokenAuthenticator{users: users}
}

// Authenticate returns the user id carried by a valid Authorization header value
func (a *TokenAuthenticator) Authenticate(ctx context.Context, header string) (string, error) {
	id, secret, err := ParseBearer(header)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	user, err := a.users.GetByID(ctx, id)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.SecretHash), []byte(secret)); err != nil {
		return "", ErrUnauthorized
	}
	return user.ID.String(), nil
}

// ParseBearer splits "Bearer <uuid>.<secret>" into its parts
func ParseBearer(header string) (uuid.UUID, string, error) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return uuid.Nil, "", ErrMalformed
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))
	idPart, secret, ok := strings.Cut(token, ".")
	if !ok || secret == "" {
		return uuid.Nil, "", ErrMalformed
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return uuid.Nil, "", ErrMalformed
	}
	return id, secret, nil
}

// NewSecret returns a random URL-safe secret and its bcrypt hash
func NewSecret() (secret, hash string, err error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	secret = base64.RawURLEncoding.EncodeToString(buf)
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", "", fmt.Errorf("failed to hash secret: %w", err)
	}
	return secret, string(hashed), nil
}

// Token joins a user id and secret into a bearer token
func Token(id uuid.UUID, secret string) string {
	return id.String() + "." + secret
}
