// Package auth owns the client's authentication context: the single bearer token,
// its lifecycle (set on login/signup, cleared on logout or expiry) and the claims
// the client reads from it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"surflog-cli/internal/apiclient"
	"surflog-cli/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// TokenStore persists the token between runs.
type TokenStore interface {
	LoadToken(ctx context.Context) (string, error)
	SaveToken(ctx context.Context, token string) error
	DeleteToken(ctx context.Context) error
}

// Authenticator performs the credential exchange against the API.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (model.LoginResult, error)
	Signup(ctx context.Context, req model.SignupRequest) error
}

// ProfileFetcher resolves the viewer's profile; used to verify a stored token.
type ProfileFetcher interface {
	Profile(ctx context.Context, userID string) (model.UserProfile, error)
}

// Claims are the unverified claims the client reads from the token. The API is the
// only party that validates the signature.
type Claims struct {
	Subject   string
	ExpiresAt time.Time
}

func (c Claims) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// Service is the only writer of the stored token. It satisfies apiclient.Credentials.
type Service struct {
	store TokenStore
	log   *zap.Logger
	now   func() time.Time

	mu    sync.Mutex
	token string
}

var _ apiclient.Credentials = (*Service)(nil)

// New loads the stored token (if any).
func New(ctx context.Context, store TokenStore, log *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: token store is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	tok, err := store.LoadToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("auth: load token: %w", err)
	}
	return &Service{store: store, log: log, now: time.Now, token: strings.TrimSpace(tok)}, nil
}

func (s *Service) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Service) Authenticated() bool { return s.Token() != "" }

// Expire clears the credential if it is still token. Only the first caller for a
// given token gets true.
func (s *Service) Expire(token string) bool {
	token = strings.TrimSpace(token)
	s.mu.Lock()
	if token == "" || s.token != token {
		s.mu.Unlock()
		return false
	}
	s.token = ""
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.DeleteToken(ctx); err != nil {
		s.log.Warn("delete expired token", zap.Error(err))
	}
	return true
}

func (s *Service) set(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return errors.New("auth: server returned an empty access token")
	}
	if err := s.store.SaveToken(ctx, token); err != nil {
		return fmt.Errorf("auth: save token: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Login exchanges credentials for a token and stores it.
func (s *Service) Login(ctx context.Context, a Authenticator, email, password string) (model.UserProfile, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return model.UserProfile{}, errors.New("email and password are required")
	}
	res, err := a.Login(ctx, email, password)
	if err != nil {
		return model.UserProfile{}, err
	}
	if err := s.set(ctx, res.AccessToken); err != nil {
		return model.UserProfile{}, err
	}
	s.log.Info("logged in", zap.String("user_id", res.User.UserID))
	return res.User, nil
}

// Signup creates the account and then logs in with the same credentials.
func (s *Service) Signup(ctx context.Context, a Authenticator, req model.SignupRequest) (model.UserProfile, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	if req.Email == "" || req.Password == "" {
		return model.UserProfile{}, errors.New("email and password are required")
	}
	if err := a.Signup(ctx, req); err != nil {
		return model.UserProfile{}, err
	}
	return s.Login(ctx, a, req.Email, req.Password)
}

// Logout clears the token locally. There is no server-side logout call.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	if err := s.store.DeleteToken(ctx); err != nil {
		return fmt.Errorf("auth: delete token: %w", err)
	}
	return nil
}

// Claims parses the current token without verifying its signature.
func (s *Service) Claims() (Claims, bool) {
	return ParseClaims(s.Token())
}

// UserID returns the token subject, or "" when unknown.
func (s *Service) UserID() string {
	c, ok := s.Claims()
	if !ok {
		return ""
	}
	return c.Subject
}

// ParseClaims reads sub/exp from a JWT. Opaque (non-JWT) tokens report ok=false.
func ParseClaims(token string) (Claims, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, false
	}
	mc := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, mc); err != nil {
		return Claims{}, false
	}
	var c Claims
	if sub, err := mc.GetSubject(); err == nil {
		c.Subject = sub
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		c.ExpiresAt = exp.Time
	}
	return c, true
}

// Verify checks the stored token at startup by resolving the viewer's profile.
//
// A token whose exp has passed is expired locally without a request. An
// authorization failure from the API has already cleared the token (the client
// calls Expire). Other failures (network) keep the token.
func (s *Service) Verify(ctx context.Context, p ProfileFetcher) (model.UserProfile, error) {
	tok := s.Token()
	if tok == "" {
		return model.UserProfile{}, apiclient.ErrNotAuthenticated
	}
	if c, ok := ParseClaims(tok); ok && c.Expired(s.now()) {
		s.Expire(tok)
		return model.UserProfile{}, apiclient.ErrSessionExpired
	}
	prof, err := p.Profile(ctx, apiclient.MeUserID)
	if err != nil {
		s.log.Warn("session verification failed", zap.Error(err))
		return model.UserProfile{}, err
	}
	return prof, nil
}
