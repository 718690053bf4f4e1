package services

import (
	"strings"

	"github.com/lacocina/comanda/app/models"
	"github.com/lacocina/comanda/pkg/auth"
)

// AuthService handles account registration and login.
type AuthService struct {
	users UserStore
}

func NewAuthService(users UserStore) *AuthService {
	return &AuthService{users: users}
}

// RegisterInput is a new account request.
type RegisterInput struct {
	Name     string `json:"name"     validate:"required,min=2,max=255"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// LoginInput carries credentials.
type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair is what a successful login or registration returns.
type TokenPair struct {
	Token        string      `json:"token"`
	RefreshToken string      `json:"refreshToken"`
	User         models.User `json:"user"`
}

// Register creates an account with a bcrypt-hashed password and returns
// a signed token pair. Email addresses are unique, compared lowercased.
func (s *AuthService) Register(in RegisterInput) (TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.users.FindByEmail(email); err == nil {
		return TokenPair{}, Conflict("an account with email %s already exists", email)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return TokenPair{}, Internal(err, "could not hash password")
	}

	user := models.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    email,
		Password: hash,
		Role:     "user",
	}
	if err := s.users.Create(&user); err != nil {
		return TokenPair{}, Internal(err, "could not create account")
	}

	return s.issue(user)
}

// Login checks credentials and returns a token pair. A missing account
// and a wrong password produce the same error, so callers cannot probe
// which addresses are registered.
func (s *AuthService) Login(in LoginInput) (TokenPair, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	user, err := s.users.FindByEmail(email)
	if err != nil {
		return TokenPair{}, Invalid("invalid credentials")
	}
	if !auth.CheckPassword(user.Password, in.Password) {
		return TokenPair{}, Invalid("invalid credentials")
	}
	return s.issue(user)
}

func (s *AuthService) issue(user models.User) (TokenPair, error) {
	token, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		return TokenPair{}, Internal(err, "could not sign token")
	}
	refresh, err := auth.GenerateRefreshToken(user.ID, user.Role)
	if err != nil {
		return TokenPair{}, Internal(err, "could not sign token")
	}
	return TokenPair{Token: token, RefreshToken: refresh, User: user}, nil
}
