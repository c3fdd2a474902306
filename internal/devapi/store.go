// Package devapi is an in-memory identity API for local development and
// integration tests. It speaks the same endpoints the auth screens call.
package devapi

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// CodeTTL is how long a verification code stays valid.
const CodeTTL = 10 * time.Minute

// Store errors.
var (
	ErrUserExists     = errors.New("user already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrBadCredentials = errors.New("wrong email or password")
	ErrCodeInvalid    = errors.New("invalid or expired code")
	ErrNotVerified    = errors.New("email not verified")
)

// Purpose separates signup codes from password reset codes.
type Purpose string

const (
	PurposeSignup Purpose = "signup"
	PurposeReset  Purpose = "reset"
)

// User is a registered account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Social       bool
	CreatedAt    time.Time
}

type verification struct {
	Code      string
	ExpiresAt time.Time
	Verified  bool
}

type codeKey struct {
	email   string
	purpose Purpose
}

// Store holds users and pending verification codes.
type Store struct {
	mu    sync.Mutex
	users map[string]*User
	codes map[codeKey]*verification
	now   func() time.Time
	cost  int
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users: make(map[string]*User),
		codes: make(map[codeKey]*verification),
		now:   time.Now,
		cost:  bcrypt.DefaultCost,
	}
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Lookup returns the user registered under email.
func (s *Store) Lookup(email string) (*User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[normalize(email)]
	if !ok {
		return nil, false
	}
	cp := *u
	return &cp, true
}

// IssueCode creates a fresh six-digit code for email, replacing any earlier
// one for the same purpose.
func (s *Store) IssueCode(email string, purpose Purpose) (string, error) {
	code, err := sixDigits()
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[codeKey{normalize(email), purpose}] = &verification{
		Code:      code,
		ExpiresAt: s.now().Add(CodeTTL),
	}
	return code, nil
}

// VerifyCode marks the pending code for email as verified when code matches
// and has not expired.
func (s *Store) VerifyCode(email string, purpose Purpose, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.codes[codeKey{normalize(email), purpose}]
	if !ok || v.Code != strings.TrimSpace(code) || !s.now().Before(v.ExpiresAt) {
		return ErrCodeInvalid
	}
	v.Verified = true
	return nil
}

// consumeVerified removes a verified code. Caller holds s.mu.
func (s *Store) consumeVerified(email string, purpose Purpose) error {
	key := codeKey{email, purpose}
	v, ok := s.codes[key]
	if !ok || !v.Verified || !s.now().Before(v.ExpiresAt) {
		return ErrNotVerified
	}
	delete(s.codes, key)
	return nil
}

// Register creates an account for an email whose signup code was verified.
func (s *Store) Register(email, password string) (*User, error) {
	return s.create(email, password, false)
}

// RegisterSocial creates an account for a social sign-in. The identity
// provider has already verified the email.
func (s *Store) RegisterSocial(email, password string) (*User, error) {
	return s.create(email, password, true)
}

func (s *Store) create(email, password string, social bool) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	key := normalize(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[key]; exists {
		return nil, ErrUserExists
	}
	if !social {
		if err := s.consumeVerified(key, PurposeSignup); err != nil {
			return nil, err
		}
	}
	u := &User{
		ID:           uuid.NewString(),
		Email:        key,
		PasswordHash: string(hash),
		Social:       social,
		CreatedAt:    s.now(),
	}
	s.users[key] = u
	cp := *u
	return &cp, nil
}

// Authenticate checks email and password.
func (s *Store) Authenticate(email, password string) (*User, error) {
	u, ok := s.Lookup(email)
	if !ok {
		return nil, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, ErrBadCredentials
	}
	return u, nil
}

// SetPassword replaces the password of email.
func (s *Store) SetPassword(email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[normalize(email)]
	if !ok {
		return ErrUserNotFound
	}
	u.PasswordHash = string(hash)
	return nil
}

// ResetPassword sets a new password after a verified reset code.
func (s *Store) ResetPassword(email, password string) error {
	key := normalize(email)
	s.mu.Lock()
	if _, ok := s.users[key]; !ok {
		s.mu.Unlock()
		return ErrUserNotFound
	}
	err := s.consumeVerified(key, PurposeReset)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	return s.SetPassword(email, password)
}

// Delete removes the account of email.
func (s *Store) Delete(email string) error {
	key := normalize(email)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[key]; !ok {
		return ErrUserNotFound
	}
	delete(s.users, key)
	delete(s.codes, codeKey{key, PurposeReset})
	return nil
}

func sixDigits() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
