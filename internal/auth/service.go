package auth

import (
	"context"
	"errors"
)

// Button labels for the account action on the camera screen.
const (
	ActionSignUp  = "Sign Up"
	ActionSignOut = "Sign Out"
)

// Service implements the sign in flows on top of a Provider.
type Service struct {
	provider Provider
}

func NewService(p Provider) *Service {
	return &Service{provider: p}
}

// Ensure returns the session for token, signing in anonymously when token is
// empty or no longer valid.
func (s *Service) Ensure(ctx context.Context, token string) (Session, error) {
	if token != "" {
		u, err := s.provider.Lookup(ctx, token)
		if err == nil {
			return Session{Token: token, User: u}, nil
		}
		if !errors.Is(err, ErrNotSignedIn) && !errors.Is(err, ErrTokenExpired) {
			return Session{}, err
		}
	}
	return s.provider.SignInAnonymously(ctx)
}

// SignUp links email credentials to the current account. The confirmation
// is checked before anything reaches the provider. With no token a new
// anonymous account is created first.
func (s *Service) SignUp(ctx context.Context, token, email, password, confirm string) (Session, error) {
	if password != confirm {
		return Session{}, ErrPasswordMismatch
	}
	if token == "" {
		anon, err := s.provider.SignInAnonymously(ctx)
		if err != nil {
			return Session{}, err
		}
		token = anon.Token
	}
	return s.provider.LinkEmail(ctx, token, email, password)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	return s.provider.SignIn(ctx, email, password)
}

func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return ErrNotSignedIn
	}
	return s.provider.SignOut(ctx, token)
}

// Current returns the user behind token, or nil when nobody is signed in.
func (s *Service) Current(ctx context.Context, token string) (*User, error) {
	if token == "" {
		return nil, nil
	}
	u, err := s.provider.Lookup(ctx, token)
	if errors.Is(err, ErrNotSignedIn) || errors.Is(err, ErrTokenExpired) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Action is the label of the account button for u.
func Action(u *User) string {
	if u == nil || u.Anonymous() {
		return ActionSignUp
	}
	return ActionSignOut
}
