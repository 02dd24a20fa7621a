// Package session gates access to the family data behind a shared
// passphrase. A successful login issues a signed token with an expiry that is
// kept in the state directory, so later runs stay signed in until it lapses.
package session

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vanderheijden86/familytree/pkg/debug"
)

var (
	ErrBadPassphrase = errors.New("incorrect passphrase")
	ErrExpired       = errors.New("session has expired")
	ErrInvalidToken  = errors.New("invalid session token")
	ErrNoToken       = errors.New("not signed in")
)

// DefaultTTL is how long a login lasts.
const DefaultTTL = 24 * time.Hour

// TokenFileName is the token file inside the state directory.
const TokenFileName = "auth_token"

const issuer = "ftv"

// Gate is the capability the views need: they ask whether to render and can
// trigger login or logout, but never look at tokens themselves.
type Gate interface {
	IsAuthenticated() bool
	UserName() string
	Login(name, passphrase string) error
	Logout() error
}

// Open is a Gate for families that do not require a login.
type Open struct{}

func (Open) IsAuthenticated() bool { return true }
func (Open) UserName() string { return "" }
func (Open) Login(string, string) error { return nil }
func (Open) Logout() error { return nil }

// Claims are carried in the session token.
type Claims struct {
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Options configures a Session.
type Options struct {
	Passphrase string
	TTL        time.Duration
	// Dir is where the token file lives. Empty keeps the session in memory.
	Dir string
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Session is a passphrase-backed Gate with a persisted token.
type Session struct {
	mu         sync.Mutex
	passphrase string
	key        []byte
	ttl        time.Duration
	path       string
	now        func() time.Time

	token  string
	claims *Claims
	loaded bool
}

var _ Gate = (*Session)(nil)

// New creates a session. The signing key is derived from the passphrase, so
// changing the passphrase signs everyone out.
func New(opts Options) *Session {
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sum := sha256.Sum256([]byte("ftv-session:" + opts.Passphrase))
	s := &Session{
		passphrase: opts.Passphrase,
		key:        sum[:],
		ttl:        ttl,
		now:        now,
	}
	if opts.Dir != "" {
		s.path = filepath.Join(opts.Dir, TokenFileName)
	}
	return s
}

// CheckPassphrase reports ErrBadPassphrase unless passphrase matches. An
// unset passphrase matches nothing.
func (s *Session) CheckPassphrase(passphrase string) error {
	if s.passphrase == "" || subtle.ConstantTimeCompare([]byte(passphrase), []byte(s.passphrase)) != 1 {
		return ErrBadPassphrase
	}
	return nil
}

// Login checks passphrase and, on success, issues and stores a new token.
func (s *Session) Login(name, passphrase string) error {
	if err := s.CheckPassphrase(passphrase); err != nil {
		return err
	}
	token, claims, err := s.issue(strings.TrimSpace(name))
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store(token); err != nil {
		return err
	}
	s.token, s.claims, s.loaded = token, claims, true
	debug.Log("session: signed in %q until %s", claims.Name, claims.ExpiresAt.Time.Format(time.RFC3339))
	return nil
}

// Logout forgets the token in memory and on disk.
func (s *Session) Logout() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token, s.claims, s.loaded = "", nil, true
	return s.remove()
}

// IsAuthenticated reports whether a valid, unexpired token is held. A stored
// token that is expired or cannot be verified is deleted.
func (s *Session) IsAuthenticated() bool {
	return s.Check() == nil
}

// Check is IsAuthenticated with the reason for a negative answer.
func (s *Session) Check() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, _, err := s.check()
	return err
}

// check loads and verifies the stored token. s.mu must be held.
func (s *Session) check() (string, *Claims, error) {
	if !s.loaded {
		s.loaded = true
		token, err := s.read()
		if err != nil {
			debug.Log("session: %v", err)
			return "", nil, err
		}
		s.token = token
	}
	if s.token == "" {
		return "", nil, ErrNoToken
	}
	claims, err := s.Verify(s.token)
	if err != nil {
		debug.Log("session: dropping token: %v", err)
		s.token, s.claims = "", nil
		_ = s.remove()
		return "", nil, err
	}
	s.claims = claims
	return s.token, claims, nil
}

// UserName is the name given at login, or "" when signed out.
func (s *Session) UserName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, claims, err := s.check()
	if err != nil {
		return ""
	}
	return claims.Name
}

// ExpiresAt returns when the current token lapses, or the zero time.
func (s *Session) ExpiresAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, claims, err := s.check()
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

// Token returns the current signed token, or "" when signed out.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, _, err := s.check()
	if err != nil {
		return ""
	}
	return token
}

// Verify parses and validates a token string, accepting an optional
// "Bearer " prefix.
func (s *Session) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return nil, ErrNoToken
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// Issue signs a token for name without checking a passphrase or storing it.
func (s *Session) Issue(name string) (string, error) {
	token, _, err := s.issue(name)
	return token, err
}

func (s *Session) issue(name string) (string, *Claims, error) {
	now := s.now()
	claims := &Claims{
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
	if err != nil {
		return "", nil, fmt.Errorf("signing session token: %w", err)
	}
	return token, claims, nil
}

func (s *Session) read() (string, error) {
	if s.path == "" {
		return "", ErrNoToken
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("reading session token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func (s *Session) store(token string) error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing session token: %w", err)
	}
	return nil
}

func (s *Session) remove() error {
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing session token: %w", err)
	}
	return nil
}
