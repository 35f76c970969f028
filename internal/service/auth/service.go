// Package auth is the access gate: it checks operator credentials against bcrypt hashes
// and issues/verifies HS256 bearer tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tinoosan/tesouraria/internal/errs"
	"github.com/tinoosan/tesouraria/internal/ledger"
)

// DefaultTTL is the lifetime of issued tokens.
const DefaultTTL = time.Hour

// DefaultRole is assigned to users created without an explicit role.
const DefaultRole = "tesoureiro"

type Repo interface {
	// UserByUsername returns errs.ErrNotFound when no such user exists.
	UserByUsername(ctx context.Context, username string) (ledger.User, error)
}

type Writer interface {
	// CreateUser returns errs.ErrConflict when the username is taken.
	CreateUser(ctx context.Context, u ledger.User) (ledger.User, error)
}

// Claims is the token payload.
type Claims struct {
	UserID   string `json:"id"`
	Username string `json:"nome_usuario"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type Service interface {
	Login(ctx context.Context, username, password string) (string, ledger.User, error)
	Verify(token string) (Claims, error)
	HashPassword(password string) (string, error)
	CreateUser(ctx context.Context, username, password, role string) (ledger.User, error)
}

// Option customizes the service.
type Option func(*service)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock replaces time.Now for issuing and validating tokens.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

type service struct {
	repo   Repo
	writer Writer
	secret []byte
	ttl    time.Duration
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

func New(repo Repo, writer Writer, secret []byte, opts ...Option) Service {
	s := &service{repo: repo, writer: writer, secret: secret, ttl: DefaultTTL, now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *service) Login(ctx context.Context, username, password string) (string, ledger.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", ledger.User{}, errs.Invalid("nome_usuario", "nome de usuário e senha são obrigatórios")
	}
	u, err := s.repo.UserByUsername(ctx, username)
	if errors.Is(err, errs.ErrNotFound) {
		// compare anyway so unknown users cost the same as wrong passwords
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		return "", ledger.User{}, errs.ErrInvalidCredentials
	}
	if err != nil {
		return "", ledger.User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", ledger.User{}, errs.ErrInvalidCredentials
	}
	tok, err := s.issue(u)
	if err != nil {
		return "", ledger.User{}, err
	}
	return tok, u, nil
}

func (s *service) issue(u ledger.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   u.ID.String(),
		Username: u.Username,
		Role:     u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *service) Verify(token string) (Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Claims{}, errs.ErrMissingToken
	}
	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", errs.ErrInvalidToken, err)
	}
	return claims, nil
}

func (s *service) HashPassword(password string) (string, error) {
	if password == "" {
		return "", errs.Invalid("senha", "obrigatória")
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (s *service) CreateUser(ctx context.Context, username, password, role string) (ledger.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return ledger.User{}, errs.Invalid("nome_usuario", "obrigatório")
	}
	if role = strings.TrimSpace(role); role == "" {
		role = DefaultRole
	}
	hash, err := s.HashPassword(password)
	if err != nil {
		return ledger.User{}, err
	}
	return s.writer.CreateUser(ctx, ledger.User{ID: uuid.New(), Username: username, PasswordHash: hash, Role: role})
}

func (s *service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("tesouraria-dummy"), bcrypt.DefaultCost)
	})
	return s.dummyHash
}
