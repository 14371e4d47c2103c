// Package auth signs users in and out through an identity provider. The
// camera screen signs everyone in anonymously; an anonymous account can later
// be upgraded by linking an email and password to it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
)

var (
	// ErrEmailExists is returned when the email is linked to another account.
	ErrEmailExists = errors.New("email already in use")
	// ErrInvalidCredentials is returned when the email or password is wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrWeakPassword is returned when the password is too short.
	ErrWeakPassword = errors.New("password should be at least 6 characters")
	// ErrInvalidEmail is returned when the email address is malformed.
	ErrInvalidEmail = errors.New("invalid email")
	// ErrTokenExpired is returned when the token is no longer valid.
	ErrTokenExpired = errors.New("token expired")
	// ErrNotSignedIn is returned when no account matches the token.
	ErrNotSignedIn = errors.New("not signed in")
	// ErrAlreadyLinked is returned when linking an email to an account that
	// already has one.
	ErrAlreadyLinked = errors.New("account already has an email")
	// ErrPasswordMismatch is returned by SignUp when the confirmation differs.
	ErrPasswordMismatch = errors.New("password doesn't match")
)

// MinPasswordLength matches the identity provider's password rule.
const MinPasswordLength = 6

// User is an account as reported by the provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Anonymous reports whether no email has been linked to the account.
func (u User) Anonymous() bool {
	return u.Email == ""
}

// Session is a signed in user and the bearer token identifying them.
type Session struct {
	Token     string    `json:"token"`
	User      User      `json:"user"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Provider is an identity backend.
type Provider interface {
	SignInAnonymously(ctx context.Context) (Session, error)
	// LinkEmail attaches email credentials to the account behind token.
	LinkEmail(ctx context.Context, token, email, password string) (Session, error)
	SignIn(ctx context.Context, email, password string) (Session, error)
	SignOut(ctx context.Context, token string) error
	Lookup(ctx context.Context, token string) (User, error)
}

func normalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return strings.ToLower(addr.Address), nil
}

func validatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return ErrWeakPassword
	}
	return nil
}
