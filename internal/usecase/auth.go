package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 10

type RegisterInput struct {
	Name, Email, Password string
}

type AuthResult struct {
	User  *domain.User
	Token string
}

type Auth struct {
	users  UserRepo
	tokens TokenIssuer
	cost   int
}

func NewAuth(users UserRepo, tokens TokenIssuer) *Auth {
	return &Auth{users: users, tokens: tokens, cost: bcryptCost}
}

func (a *Auth) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	}

	if _, err := a.users.GetByEmail(ctx, email); err == nil {
		return nil, fmt.Errorf("%w: email already exists", ErrConflict)
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), a.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, fmt.Errorf("%w: password must be at most 72 bytes", ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	u := &domain.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleCustomer,
	}
	// a concurrent register with the same email surfaces as ErrConflict from the repo
	if err := a.users.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	return a.issue(u)
}

func (a *Auth) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	u, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	}

	return a.issue(u)
}

func (a *Auth) Me(ctx context.Context, userID int64) (*domain.User, error) {
	u, err := a.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: user %d", ErrNotFound, userID)
		}
		return nil, fmt.Errorf("me: %w", err)
	}
	u.PasswordHash = ""
	return u, nil
}

func (a *Auth) issue(u *domain.User) (*AuthResult, error) {
	token, err := a.tokens.Issue(u.ID, u.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	out := *u
	out.PasswordHash = ""
	return &AuthResult{User: &out, Token: token}, nil
}
