package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"fatura/internal/api"
	"fatura/internal/core"
	"fatura/internal/ledger"
	"fatura/internal/log"
	"fatura/internal/session"
	"fatura/internal/validation"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameTaken      = errors.New("username already taken")
)

// AuthService signs users up and manages their sessions.
type AuthService struct {
	users    ledger.UserStore
	sessions *session.Store
	cost     int
}

func NewAuthService(users ledger.UserStore, sessions *session.Store) *AuthService {
	return &AuthService{users: users, sessions: sessions, cost: bcrypt.DefaultCost}
}

// WithHashCost lowers the bcrypt cost; tests use bcrypt.MinCost.
func (a *AuthService) WithHashCost(cost int) *AuthService {
	a.cost = cost
	return a
}

func (a *AuthService) SignUp(ctx context.Context, req api.SignUpRequest) (core.User, error) {
	if errs := validation.SignUp.ValidateForm(req.Form()); errs != nil {
		return core.User{}, errs
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(req.Password)), a.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := a.users.CreateUser(ctx, core.User{
		Username:     strings.TrimSpace(req.Username),
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.TrimSpace(req.Email),
		Doc:          strings.TrimSpace(req.Doc),
		PasswordHash: hash,
	})
	if errors.Is(err, ledger.ErrDuplicate) {
		return core.User{}, ErrUsernameTaken
	}
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	slog.InfoContext(ctx, "User signed up",
		log.FieldComponent, log.ComponentAuth,
		log.FieldUserID, user.ID)
	return user, nil
}

// SignIn checks the password and opens a session.
func (a *AuthService) SignIn(ctx context.Context, req api.SignInRequest) (session.Session, error) {
	if errs := validation.SignIn.ValidateForm(req.Form()); errs != nil {
		return session.Session{}, errs
	}
	user, err := a.users.GetUserByUsername(ctx, strings.TrimSpace(req.Username))
	if errors.Is(err, ledger.ErrNotFound) {
		return session.Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return session.Session{}, fmt.Errorf("get user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(strings.TrimSpace(req.Password))); err != nil {
		slog.WarnContext(ctx, "Sign in rejected",
			log.FieldComponent, log.ComponentAuth,
			log.FieldOperation, log.OpSignIn,
			log.FieldUserID, user.ID)
		return session.Session{}, ErrInvalidCredentials
	}

	sess := a.sessions.Create(user.ID, user.Username, user.Name)
	slog.InfoContext(ctx, "User signed in",
		log.FieldComponent, log.ComponentAuth,
		log.FieldUserID, user.ID)
	return sess, nil
}

func (a *AuthService) Refresh(_ context.Context, token string) (session.Session, error) {
	return a.sessions.Refresh(token)
}

func (a *AuthService) SignOut(ctx context.Context, token string) {
	a.sessions.Delete(token)
	slog.DebugContext(ctx, "Session closed",
		log.FieldComponent, log.ComponentAuth,
		log.FieldOperation, log.OpSignOut)
}

// Authenticate resolves a session token.
func (a *AuthService) Authenticate(token string) (session.Session, error) {
	return a.sessions.Get(token)
}
