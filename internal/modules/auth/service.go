package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"hotelbooking/internal/pkg/jwt"
)

const (
	maxFailedLoginAttempts = 5
	lockoutDuration        = 15 * time.Minute
	adminUserID            = 1
)

type tokenIssuer interface {
	GenerateToken(userID int64, email, role string) (string, error)
	TTL() time.Duration
}

type loginAttempts struct {
	failures    int
	lockedUntil time.Time
}

// Service authenticates the single hotel administrator configured through
// ADMIN_EMAIL and ADMIN_PASSWORD_HASH.
type Service struct {
	adminEmail   string
	passwordHash []byte
	jwt          tokenIssuer
	now          func() time.Time

	mu       sync.Mutex
	attempts map[string]*loginAttempts
}

func NewService(adminEmail, passwordHash string, issuer tokenIssuer) *Service {
	return &Service{
		adminEmail:   strings.ToLower(strings.TrimSpace(adminEmail)),
		passwordHash: []byte(passwordHash),
		jwt:          issuer,
		now:          time.Now,
		attempts:     make(map[string]*loginAttempts),
	}
}

func (s *Service) Login(_ context.Context, req LoginRequest) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	now := s.now()

	if s.locked(email, now) {
		return nil, ErrAccountLocked
	}

	if email != s.adminEmail || len(s.passwordHash) == 0 ||
		bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)) != nil {
		s.recordFailure(email, now)
		return nil, ErrInvalidCredentials
	}
	s.reset(email)

	token, err := s.jwt.GenerateToken(adminUserID, email, jwt.RoleAdmin)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwt.TTL().Seconds()),
		Email:       email,
		Role:        jwt.RoleAdmin,
	}, nil
}

func (s *Service) locked(email string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[email]
	return ok && now.Before(a.lockedUntil)
}

func (s *Service) recordFailure(email string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.attempts[email]
	if !ok {
		a = &loginAttempts{}
		s.attempts[email] = a
	}
	a.failures++
	if a.failures >= maxFailedLoginAttempts {
		a.failures = 0
		a.lockedUntil = now.Add(lockoutDuration)
	}
}

func (s *Service) reset(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.attempts, email)
}
