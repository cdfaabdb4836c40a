package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"student-performance/internal/dto"
	"student-performance/internal/models"
	"student-performance/internal/repository"
	"student-performance/pkg/auth"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type AuthService struct {
	userRepo    UserStore
	jwtManager  *auth.JWTManager
	revocations *auth.RevocationList
	logger      *zap.Logger
}

func NewAuthService(userRepo UserStore, jwtManager *auth.JWTManager, revocations *auth.RevocationList, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:    userRepo,
		jwtManager:  jwtManager,
		revocations: revocations,
		logger:      logger,
	}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	existingUser, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existingUser != nil {
		return nil, ErrUserExists
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:        uuid.New(),
		Username:  req.Username,
		Email:     models.NormalizeEmail(req.Email),
		Password:  hashedPassword,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// lost a race with a concurrent sign-up
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID.String()))

	return s.issueTokens(user, uuid.NewString())
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !auth.CheckPasswordHash(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(user, uuid.NewString())
}

func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	revoked, err := s.revocations.Check(ctx, &auth.Identity{TokenID: claims.ID, SessionID: claims.SessionID})
	if err != nil {
		return nil, fmt.Errorf("check refresh token revocation: %w", err)
	}
	if revoked {
		return nil, ErrInvalidCredentials
	}

	// the new pair stays in the same session so a later Logout ends it too
	sessionID := claims.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.issueTokens(user, sessionID)
}

// Logout revokes the access token behind identity and the session it belongs
// to, so refresh tokens from the same sign-in stop working as well.
func (s *AuthService) Logout(ctx context.Context, identity *auth.Identity) error {
	if identity == nil {
		return ErrAuthRequired
	}
	if err := s.revocations.Revoke(ctx, identity.TokenID, identity.ExpiresAt); err != nil {
		return err
	}
	// refresh tokens of the session may have been issued up to now
	until := time.Now().Add(s.jwtManager.GetRefreshDuration())
	if err := s.revocations.RevokeSession(ctx, identity.SessionID, until); err != nil {
		return err
	}
	s.logger.Info("User signed out", zap.String("user_id", identity.UserID.String()))
	return nil
}

// Session reports who is signed in. The user must still exist.
func (s *AuthService) Session(ctx context.Context, identity *auth.Identity) (*dto.SessionResponse, error) {
	if identity == nil {
		return nil, ErrAuthRequired
	}

	user, err := s.userRepo.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return &dto.SessionResponse{
		User:      userResponse(user),
		ExpiresAt: identity.ExpiresAt.UTC().Format(time.RFC3339),
	}, nil
}

func (s *AuthService) issueTokens(user *models.User, sessionID string) (*dto.AuthResponse, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID.String(), user.Username, user.Email, sessionID)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID.String(), sessionID)
	if err != nil {
		return nil, err
	}

	return &dto.AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.jwtManager.GetTokenDuration().Seconds()),
		User:         userResponse(user),
	}, nil
}

func userResponse(user *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	}
}
