package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/pr-poehali-dev/messenger-db-hosting/internal/auth"
	"github.com/pr-poehali-dev/messenger-db-hosting/internal/database"
	"github.com/pr-poehali-dev/messenger-db-hosting/internal/models"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6

	msgAllFieldsRequired   = "Все поля обязательны"
	msgUsernameLength      = "Никнейм должен быть от 3 до 50 символов"
	msgPasswordLength      = "Пароль должен быть минимум 6 символов"
	msgUsernameTaken       = "Этот никнейм уже занят"
	msgEmailTaken          = "Этот email уже используется"
	msgRegistrationFailed  = "Ошибка регистрации"
	msgCredentialsRequired = "Email и пароль обязательны"
	msgInvalidCredentials  = "Неверный email или пароль"
	msgTokenNotProvided    = "Token not provided"
)

// AuthHandler handles registration, login and token checks
type AuthHandler struct {
	DB     database.DBInterface
	Tokens *auth.TokenManager
	fn     function
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(db database.DBInterface, tokens *auth.TokenManager, opts Options) *AuthHandler {
	return &AuthHandler{
		DB:     db,
		Tokens: tokens,
		fn: newFunction("auth", corsPolicy{
			methods: "POST, OPTIONS",
			headers: "Content-Type, X-Auth-Token",
		}, opts),
	}
}

func (h *AuthHandler) Handle(ctx context.Context, req *Request) *Response {
	return h.fn.serve(ctx, req, h.dispatch)
}

func (h *AuthHandler) dispatch(ctx context.Context, req *Request) (interface{}, error) {
	if !strings.EqualFold(req.HTTPMethod, http.MethodPost) {
		return nil, MethodNotAllowedError()
	}

	action, err := decodeAction(req)
	if err != nil {
		return nil, err
	}

	switch action {
	case "register":
		var input models.RegisterRequest
		if err := decodeBody(req, &input); err != nil {
			return nil, err
		}
		return h.Register(ctx, input)
	case "login":
		var input models.LoginRequest
		if err := decodeBody(req, &input); err != nil {
			return nil, err
		}
		return h.Login(ctx, input)
	case "verify":
		return h.Verify(ctx, req.Header(HeaderAuthToken))
	default:
		return nil, ValidationError(msgInvalidAction)
	}
}

// Register creates an account and returns it with a fresh token
func (h *AuthHandler) Register(ctx context.Context, input models.RegisterRequest) (*models.AuthResponse, error) {
	email := strings.TrimSpace(input.Email)
	username := strings.TrimSpace(input.Username)
	password := strings.TrimSpace(input.Password)

	if email == "" || username == "" || password == "" {
		return nil, ValidationError(msgAllFieldsRequired)
	}

	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return nil, ValidationError(msgUsernameLength)
	}

	if utf8.RuneCountInString(password) < minPasswordLen {
		return nil, ValidationError(msgPasswordLength)
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to process password: %w", err)
	}

	user, err := h.DB.CreateUser(ctx, username, email, passwordHash, models.AvatarURLFor(username))
	switch {
	case errors.Is(err, database.ErrUsernameTaken):
		return nil, ConflictError(msgUsernameTaken, err)
	case errors.Is(err, database.ErrEmailTaken):
		return nil, ConflictError(msgEmailTaken, err)
	case errors.Is(err, database.ErrUserConflict):
		return nil, ConflictError(msgRegistrationFailed, err)
	case err != nil:
		return nil, err
	}

	token, _, err := h.Tokens.GenerateToken(ctx, user)
	if err != nil {
		return nil, err
	}

	h.fn.log.Info("Registered user %d (%s)", user.ID, user.Username)
	return &models.AuthResponse{Token: token, User: user.Public()}, nil
}

// Login checks credentials, marks the user as seen and returns a new token
func (h *AuthHandler) Login(ctx context.Context, input models.LoginRequest) (*models.AuthResponse, error) {
	email := strings.TrimSpace(input.Email)
	password := strings.TrimSpace(input.Password)

	if email == "" || password == "" {
		return nil, ValidationError(msgCredentialsRequired)
	}

	user, err := h.DB.GetUserByEmail(ctx, email)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, AuthenticationError(msgInvalidCredentials)
	}
	if err != nil {
		return nil, err
	}

	if !auth.CheckPasswordHash(password, user.PasswordHash) {
		return nil, AuthenticationError(msgInvalidCredentials)
	}

	if err := h.DB.UpdateLastSeen(ctx, user.ID); err != nil {
		return nil, err
	}

	token, _, err := h.Tokens.GenerateToken(ctx, user)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{Token: token, User: user.Public()}, nil
}

// Verify reports whether the caller sent a token. Without ValidateTokens
// this is only a presence check: tokens are not looked up anywhere.
func (h *AuthHandler) Verify(ctx context.Context, token string) (*models.VerifyResponse, error) {
	if token == "" {
		return nil, AuthenticationError(msgTokenNotProvided)
	}

	if !h.fn.opts.ValidateTokens {
		return &models.VerifyResponse{Valid: true}, nil
	}

	_, err := h.Tokens.ValidateToken(ctx, token)
	switch {
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenRevoked):
		return &models.VerifyResponse{Valid: false}, nil
	case err != nil:
		return nil, err
	}
	return &models.VerifyResponse{Valid: true}, nil
}
