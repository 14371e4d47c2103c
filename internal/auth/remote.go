package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/pushup.report/internal/httputil"
	"github.com/banshee-data/pushup.report/internal/timeutil"
)

// DefaultIdentityToolkitURL is the hosted identity toolkit REST endpoint.
const DefaultIdentityToolkitURL = "https://identitytoolkit.googleapis.com"

// RemoteProvider talks to an identity toolkit compatible REST API.
type RemoteProvider struct {
	client  httputil.HTTPClient
	baseURL string
	apiKey  string
	clock   timeutil.Clock
}

// NewRemoteProvider creates a provider for apiKey. An empty baseURL uses
// DefaultIdentityToolkitURL.
func NewRemoteProvider(client httputil.HTTPClient, baseURL, apiKey string) *RemoteProvider {
	if baseURL == "" {
		baseURL = DefaultIdentityToolkitURL
	}
	return &RemoteProvider{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		clock:   timeutil.RealClock{},
	}
}

type tokenResponse struct {
	IDToken   string `json:"idToken"`
	LocalID   string `json:"localId"`
	Email     string `json:"email"`
	ExpiresIn string `json:"expiresIn"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// providerError maps an identity toolkit error message, such as
// "WEAK_PASSWORD : Password should be at least 6 characters", to a sentinel.
func providerError(status int, body []byte) error {
	var e errorResponse
	if err := json.Unmarshal(body, &e); err != nil || e.Error.Message == "" {
		return fmt.Errorf("identity provider returned status %d", status)
	}
	code, _, _ := strings.Cut(e.Error.Message, " ")
	switch code {
	case "EMAIL_EXISTS":
		return ErrEmailExists
	case "EMAIL_NOT_FOUND", "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS", "USER_DISABLED":
		return ErrInvalidCredentials
	case "WEAK_PASSWORD":
		return ErrWeakPassword
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return ErrInvalidEmail
	case "TOKEN_EXPIRED", "CREDENTIAL_TOO_OLD_LOGIN_AGAIN":
		return ErrTokenExpired
	case "INVALID_ID_TOKEN", "USER_NOT_FOUND":
		return ErrNotSignedIn
	case "PROVIDER_ALREADY_LINKED":
		return ErrAlreadyLinked
	}
	return fmt.Errorf("identity provider error %d: %s", e.Error.Code, e.Error.Message)
}

func (p *RemoteProvider) call(ctx context.Context, method string, in, out any) error {
	u := fmt.Sprintf("%s/v1/accounts:%s?key=%s", p.baseURL, method, url.QueryEscape(p.apiKey))
	status, body, err := httputil.PostJSON(ctx, p.client, u, in)
	if err != nil {
		return fmt.Errorf("identity provider %s: %w", method, err)
	}
	if status != http.StatusOK {
		return providerError(status, body)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}

func (p *RemoteProvider) session(r tokenResponse) Session {
	s := Session{Token: r.IDToken, User: User{ID: r.LocalID, Email: r.Email}}
	if secs, err := strconv.Atoi(r.ExpiresIn); err == nil {
		s.ExpiresAt = p.clock.Now().Add(time.Duration(secs) * time.Second).UTC()
	}
	return s
}

func (p *RemoteProvider) SignInAnonymously(ctx context.Context) (Session, error) {
	var r tokenResponse
	if err := p.call(ctx, "signUp", map[string]any{"returnSecureToken": true}, &r); err != nil {
		return Session{}, err
	}
	return p.session(r), nil
}

func (p *RemoteProvider) LinkEmail(ctx context.Context, token, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	if err := validatePassword(password); err != nil {
		return Session{}, err
	}
	var r tokenResponse
	req := map[string]any{
		"idToken":           token,
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	if err := p.call(ctx, "update", req, &r); err != nil {
		return Session{}, err
	}
	if r.IDToken == "" {
		r.IDToken = token
	}
	return p.session(r), nil
}

func (p *RemoteProvider) SignIn(ctx context.Context, email, password string) (Session, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return Session{}, err
	}
	var r tokenResponse
	req := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	if err := p.call(ctx, "signInWithPassword", req, &r); err != nil {
		return Session{}, err
	}
	return p.session(r), nil
}

// SignOut forgets the token. ID tokens are self-contained and expire on
// their own, so nothing is sent to the provider.
func (p *RemoteProvider) SignOut(ctx context.Context, token string) error {
	return nil
}

func (p *RemoteProvider) Lookup(ctx context.Context, token string) (User, error) {
	var r struct {
		Users []struct {
			LocalID string `json:"localId"`
			Email   string `json:"email"`
		} `json:"users"`
	}
	if err := p.call(ctx, "lookup", map[string]any{"idToken": token}, &r); err != nil {
		return User{}, err
	}
	if len(r.Users) == 0 {
		return User{}, ErrNotSignedIn
	}
	return User{ID: r.Users[0].LocalID, Email: r.Users[0].Email}, nil
}

var _ Provider = (*RemoteProvider)(nil)
