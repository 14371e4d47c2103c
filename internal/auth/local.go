package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/banshee-data/pushup.report/internal/db"
	"github.com/banshee-data/pushup.report/internal/monitoring"
	"github.com/banshee-data/pushup.report/internal/timeutil"
)

var logf = monitoring.Component("auth")

// LocalProvider keeps accounts in the application database. It is meant for
// development and offline deployments.
type LocalProvider struct {
	db    *db.DB
	ttl   time.Duration
	clock timeutil.Clock
	cost  int
}

// LocalOption configures a LocalProvider.
type LocalOption func(*LocalProvider)

// WithClock overrides the clock used for token expiry.
func WithClock(c timeutil.Clock) LocalOption {
	return func(p *LocalProvider) { p.clock = c }
}

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) LocalOption {
	return func(p *LocalProvider) { p.cost = cost }
}

func NewLocalProvider(database *db.DB, ttl time.Duration, opts ...LocalOption) *LocalProvider {
	p := &LocalProvider{
		db:    database,
		ttl:   ttl,
		clock: timeutil.RealClock{},
		cost:  bcrypt.DefaultCost,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func toUser(u db.User) User {
	return User{ID: u.ID, Email: u.Email}
}

// issue mints a token for u. Tokens that have already expired are pruned
// first so the table does not grow with abandoned anonymous sessions.
func (p *LocalProvider) issue(ctx context.Context, u db.User) (Session, error) {
	now := p.clock.Now()
	if n, err := p.db.DeleteExpiredTokens(ctx, now); err != nil {
		return Session{}, fmt.Errorf("prune tokens: %w", err)
	} else if n > 0 {
		logf("pruned %d expired tokens", n)
	}
	token := uuid.NewString()
	expires := now.Add(p.ttl).UTC().Truncate(time.Second)
	if err := p.db.CreateToken(ctx, token, u.ID, expires); err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: toUser(u), ExpiresAt: expires}, nil
}

func (p *LocalProvider) SignInAnonymously(ctx context.Context) (Session, error) {
	now := p.clock.Now().UTC()
	u := db.User{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if err := p.db.CreateUser(ctx, &u); err != nil {
		return Session{}, err
	}
	return p.issue(ctx, u)
}

// resolve returns the user and expiry behind a live token.
func (p *LocalProvider) resolve(ctx context.Context, token string) (db.User, time.Time, error) {
	u, expires, err := p.db.TokenUser(ctx, token)
	if errors.Is(err, db.ErrNotFound) {
		return db.User{}, time.Time{}, ErrNotSignedIn
	}
	if err != nil {
		return db.User{}, time.Time{}, err
	}
	if timeutil.Expired(p.clock, expires) {
		if err := p.db.DeleteToken(ctx, token); err != nil {
			return db.User{}, time.Time{}, err
		}
		return db.User{}, time.Time{}, ErrTokenExpired
	}
	return u, expires, nil
}

func (p *LocalProvider) LinkEmail(ctx context.Context, token, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if err := validatePassword(password); err != nil {
		return Session{}, err
	}
	u, expires, err := p.resolve(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if !u.Anonymous() {
		return Session{}, ErrAlreadyLinked
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return Session{}, fmt.Errorf("failed to hash password: %w", err)
	}
	err = p.db.SetUserCredentials(ctx, u.ID, email, string(hash))
	if errors.Is(err, db.ErrConflict) {
		return Session{}, ErrEmailExists
	}
	if err != nil {
		return Session{}, err
	}
	u.Email = email
	return Session{Token: token, User: toUser(u), ExpiresAt: expires}, nil
}

func (p *LocalProvider) SignIn(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	u, err := p.db.UserByEmail(ctx, email)
	if errors.Is(err, db.ErrNotFound) {
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, ErrInvalidCredentials
	}
	return p.issue(ctx, u)
}

func (p *LocalProvider) SignOut(ctx context.Context, token string) error {
	return p.db.DeleteToken(ctx, token)
}

func (p *LocalProvider) Lookup(ctx context.Context, token string) (User, error) {
	u, _, err := p.resolve(ctx, token)
	if err != nil {
		return User{}, err
	}
	return toUser(u), nil
}

var _ Provider = (*LocalProvider)(nil)
