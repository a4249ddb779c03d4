package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"anoa.com/peerlink/internal/entity"
	"anoa.com/peerlink/internal/modules/user/dto"
	"anoa.com/peerlink/internal/modules/user/repository"
	"anoa.com/peerlink/pkg/apperror"
	"anoa.com/peerlink/pkg/sanitizer"
	"anoa.com/peerlink/pkg/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var errInvalidCredentials = fmt.Errorf("invalid credentials: %w", apperror.ErrUnauthorized)

type AuthService interface {
	Signup(ctx context.Context, input dto.SignupInput) (*dto.AuthResult, error)
	Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResult, error)
	Logout(ctx context.Context, refreshToken string) error
	Refresh(ctx context.Context, refreshToken string) (*dto.AuthResult, error)
	UserInfo(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error)
	GoogleLoginURL(role string) (string, error)
	GoogleCallback(ctx context.Context, code, state string) (*dto.AuthResult, error)
}

type Options struct {
	AccessTTL          time.Duration
	RefreshedAccessTTL time.Duration
	RefreshTTL         time.Duration
	GoogleConfig       *oauth2.Config
	// OnUserCreated runs after a new account and its empty profile are stored.
	OnUserCreated func(ctx context.Context, user *entity.User)
}

type authService struct {
	repo   repository.UserRepository
	tokens *token.Manager
	opts   Options
}

func NewAuthService(repo repository.UserRepository, tokens *token.Manager, opts Options) AuthService {
	return &authService{
		repo:   repo,
		tokens: tokens,
		opts:   opts,
	}
}

// NewGoogleConfig returns nil when google sign-in is not configured.
func NewGoogleConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

func (s *authService) Signup(ctx context.Context, input dto.SignupInput) (*dto.AuthResult, error) {
	role := entity.Role(input.Role)
	if !role.Valid() {
		return nil, fmt.Errorf("role must be student or sponsor: %w", apperror.ErrInvalidInput)
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.repo.FindByEmailAndRole(ctx, email, role); err == nil {
		return nil, fmt.Errorf("user already exists: %w", apperror.ErrConflict)
	} else if !errors.Is(err, apperror.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		Email:        email,
		Name:         sanitizer.Text(input.Name),
		PasswordHash: string(hash),
		Role:         role,
	}
	if user.Name == "" {
		return nil, fmt.Errorf("name is required: %w", apperror.ErrInvalidInput)
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	log.Printf("👤 New %s signed up: %s", user.Role, user.ID)
	s.created(ctx, user)

	return s.startSession(ctx, user)
}

func (s *authService) Login(ctx context.Context, input dto.LoginInput) (*dto.AuthResult, error) {
	user, err := s.repo.FindByEmailAndRole(ctx, strings.ToLower(strings.TrimSpace(input.Email)), entity.Role(input.Role))
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, errInvalidCredentials
	}

	return s.startSession(ctx, user)
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return fmt.Errorf("no refresh token provided: %w", apperror.ErrBadRequest)
	}

	user, err := s.repo.FindByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// already logged out
			return nil
		}
		return err
	}

	return s.repo.UpdateRefreshToken(ctx, user.ID, nil)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResult, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token provided: %w", apperror.ErrUnauthorized)
	}

	claims, err := s.tokens.Parse(refreshToken, token.TypeRefresh)
	if err != nil {
		return nil, fmt.Errorf("invalid or expired refresh token: %w", apperror.ErrForbidden)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", apperror.ErrForbidden)
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, fmt.Errorf("invalid refresh token: %w", apperror.ErrForbidden)
		}
		return nil, err
	}
	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return nil, fmt.Errorf("invalid refresh token: %w", apperror.ErrForbidden)
	}

	access, accessExp, err := s.tokens.Issue(user.ID, string(user.Role), token.TypeAccess, s.opts.RefreshedAccessTTL)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResult{
		User:            dto.NewUserResponse(user),
		AccessToken:     access,
		AccessExpiresAt: accessExp,
	}, nil
}

func (s *authService) UserInfo(ctx context.Context, userID uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	res := dto.NewUserResponse(user)
	return &res, nil
}

func (s *authService) GoogleLoginURL(role string) (string, error) {
	if s.opts.GoogleConfig == nil {
		return "", fmt.Errorf("google sign-in is not configured: %w", apperror.ErrBadRequest)
	}
	if !entity.Role(role).Valid() {
		return "", fmt.Errorf("role must be student or sponsor: %w", apperror.ErrInvalidInput)
	}

	// the requested role travels in the signed state
	state, _, err := s.tokens.Issue(uuid.Nil, role, "oauth-state", 10*time.Minute)
	if err != nil {
		return "", err
	}
	return s.opts.GoogleConfig.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

func (s *authService) GoogleCallback(ctx context.Context, code, state string) (*dto.AuthResult, error) {
	if s.opts.GoogleConfig == nil {
		return nil, fmt.Errorf("google sign-in is not configured: %w", apperror.ErrBadRequest)
	}

	claims, err := s.tokens.Parse(state, "oauth-state")
	if err != nil {
		return nil, fmt.Errorf("invalid oauth state: %w", apperror.ErrBadRequest)
	}
	role := entity.Role(claims.Role)

	oauthToken, err := s.opts.GoogleConfig.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %v: %w", err, apperror.ErrUnauthorized)
	}

	resp, err := s.opts.GoogleConfig.Client(ctx, oauthToken).Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	defer resp.Body.Close()

	var googleUser struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&googleUser); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	if !googleUser.VerifiedEmail {
		return nil, fmt.Errorf("google email is not verified: %w", apperror.ErrUnauthorized)
	}

	user, err := s.repo.FindByEmailAndRole(ctx, strings.ToLower(googleUser.Email), role)
	switch {
	case errors.Is(err, apperror.ErrNotFound):
		// password login stays disabled until the user sets one
		hash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user = &entity.User{
			Email:        strings.ToLower(googleUser.Email),
			Name:         sanitizer.Text(googleUser.Name),
			PasswordHash: string(hash),
			Role:         role,
			GoogleID:     &googleUser.ID,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return nil, err
		}
		s.created(ctx, user)
	case err != nil:
		return nil, err
	case user.GoogleID == nil || *user.GoogleID != googleUser.ID:
		if err := s.repo.UpdateGoogleID(ctx, user.ID, googleUser.ID); err != nil {
			log.Printf("Failed to update GoogleID for user %s: %v", user.ID, err)
		}
	}

	return s.startSession(ctx, user)
}

func (s *authService) created(ctx context.Context, user *entity.User) {
	if s.opts.OnUserCreated != nil {
		s.opts.OnUserCreated(ctx, user)
	}
}

func (s *authService) startSession(ctx context.Context, user *entity.User) (*dto.AuthResult, error) {
	access, accessExp, err := s.tokens.Issue(user.ID, string(user.Role), token.TypeAccess, s.opts.AccessTTL)
	if err != nil {
		return nil, err
	}
	refresh, refreshExp, err := s.tokens.Issue(user.ID, string(user.Role), token.TypeRefresh, s.opts.RefreshTTL)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateRefreshToken(ctx, user.ID, &refresh); err != nil {
		return nil, err
	}

	return &dto.AuthResult{
		User:             dto.NewUserResponse(user),
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}
