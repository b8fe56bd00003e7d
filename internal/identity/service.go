package identity

import (
	"context"
	"errors"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// Roles a user can sign up with.
const (
	RoleStudent = "student"
	RoleTeacher = "teacher"
)

// ErrAuthFailed is the single outcome for every login failure. Missing
// credential, missing user and wrong password are indistinguishable to the
// caller on purpose; the cause is only logged server-side.
var ErrAuthFailed = errors.New("login failed")

// ErrInvalidSignup is returned when signup input is unusable.
var ErrInvalidSignup = errors.New("invalid signup")

// User is a registered classroom member.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Credential is the stored login secret for an email. PasswordHash is a bcrypt
// hash; the plaintext never leaves the signup request.
type Credential struct {
	Email        string
	PasswordHash string
	Role         string
}

// Store persists users and credentials.
type Store interface {
	UpsertUser(ctx context.Context, user User) error
	UpsertCredential(ctx context.Context, cred Credential) error
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetCredential(ctx context.Context, email string) (*Credential, error)
}

// Service owns signup and authentication.
type Service struct {
	store Store
}

// NewService creates an identity service over a store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// SignUp registers a user and their credential. Signing up again with the same
// email replaces both records.
func (s *Service) SignUp(ctx context.Context, name, role, email, password string) (User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return User{}, ErrInvalidSignup
	}
	if role != RoleStudent && role != RoleTeacher {
		return User{}, ErrInvalidSignup
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{Name: name, Email: email, Role: role}
	if err := s.store.UpsertUser(ctx, user); err != nil {
		return User{}, err
	}
	if err := s.store.UpsertCredential(ctx, Credential{
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate verifies email/password and returns the matching user. Every
// failure collapses to ErrAuthFailed.
func (s *Service) Authenticate(ctx context.Context, email, password string) (User, error) {
	cred, err := s.store.GetCredential(ctx, email)
	if err != nil || cred == nil {
		logAuthFailure(email, "credential lookup", err)
		return User{}, ErrAuthFailed
	}
	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		logAuthFailure(email, "password mismatch", nil)
		return User{}, ErrAuthFailed
	}
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil || user == nil {
		logAuthFailure(email, "user lookup", err)
		return User{}, ErrAuthFailed
	}
	return *user, nil
}

func logAuthFailure(email, stage string, err error) {
	if err != nil {
		log.Printf("auth failure for %s at %s: %v", email, stage, err)
		return
	}
	log.Printf("auth failure for %s at %s", email, stage)
}
