package services

import (
	"context"
	"log"
	"strings"

	"codeduel/internal/apperr"
	"codeduel/internal/auth"
	"codeduel/internal/models"
	"codeduel/internal/repository"
)

// AuthService handles the find-or-create login flow
type AuthService struct {
	users *repository.UserRepository
}

func NewAuthService(users *repository.UserRepository) *AuthService {
	return &AuthService{users: users}
}

// Login finds or creates the user for a username and mints a token. There
// is no password: the username IS the account, which is all a duel arcade
// needs.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResponse, error) {
	username := strings.TrimSpace(req.Username)
	if len(username) < 3 || len(username) > 64 {
		return nil, apperr.Validation("username must be 3 to 64 characters")
	}
	if strings.ContainsAny(username, " \t\n") {
		return nil, apperr.Validation("username must not contain whitespace")
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to look up user %s", username)
	}

	if user == nil {
		user = &models.User{
			Username:    username,
			DisplayName: req.DisplayName,
		}
		if err := s.users.CreateUser(ctx, user); err != nil {
			return nil, apperr.Infrastructure(err, "failed to create user %s", username)
		}
		log.Printf("[Auth] new user %s (ID: %d)", username, user.ID)
	} else {
		log.Printf("[Auth] user %s logged in (ID: %d)", username, user.ID)
	}

	token, err := auth.GenerateToken(user.ID, user.Username)
	if err != nil {
		return nil, apperr.Infrastructure(err, "failed to mint token for user %d", user.ID)
	}

	return &models.AuthResponse{Token: token, User: *user}, nil
}

// Profile returns the user row behind a token's claims
func (s *AuthService) Profile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, apperr.NotFound("user %d not found", userID)
	}
	return user, nil
}
