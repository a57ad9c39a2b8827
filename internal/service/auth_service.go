package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bizportal/internal/model"
	"bizportal/internal/repository"
	"bizportal/pkg/rbac"
	"bizportal/pkg/util"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type AuthService struct {
	userRepo   *repository.UserRepository
	clientRepo *repository.ClientRepository
	rdb        *redis.Client
	jwtSecret  string
	jwtTTL     time.Duration
	logger     *zap.Logger
}

func NewAuthService(
	userRepo *repository.UserRepository,
	clientRepo *repository.ClientRepository,
	rdb *redis.Client,
	jwtSecret string,
	jwtTTL time.Duration,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		clientRepo: clientRepo,
		rdb:        rdb,
		jwtSecret:  jwtSecret,
		jwtTTL:     jwtTTL,
		logger:     logger,
	}
}

func revokedKey(jti string) string {
	return "auth:revoked:" + jti
}

// CreateUser registers a login. Client users are linked to the client record
// with the same email.
func (s *AuthService) CreateUser(ctx context.Context, email, password, name, role string) (*model.User, error) {
	if !rbac.IsValidRole(role) {
		return nil, invalid("unknown role %q", role)
	}
	if len(password) < 8 {
		return nil, invalid("password must be at least 8 characters")
	}
	email = strings.ToLower(strings.TrimSpace(email))

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", ErrConflict)
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &model.User{Email: email, PasswordHash: hash, Name: name, Role: role}
	if err := s.userRepo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	if role == rbac.RoleClient {
		client, err := s.clientRepo.FindByEmail(ctx, email)
		switch {
		case err == nil:
			if err := s.clientRepo.SetUserID(ctx, client.ID, u.ID); err != nil {
				return nil, err
			}
			u.ClientID = &client.ID
		case !errors.Is(err, pgx.ErrNoRows):
			return nil, err
		}
	}

	s.logger.Info("User created", zap.Int("user_id", u.ID), zap.String("role", role))
	return u, nil
}

// Login checks credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	u, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		return "", nil, ErrInvalidCredentials
	}

	token, _, err := util.GenerateJWT(u.ID, u.Role, derefInt(u.ClientID), s.jwtSecret, s.jwtTTL)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("User logged in", zap.Int("user_id", u.ID), zap.String("role", u.Role))
	return token, u, nil
}

func (s *AuthService) Me(ctx context.Context, userID int) (*model.User, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user", userID)
	}
	return u, nil
}

// Logout deny-lists the token id until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, claims *util.Claims) error {
	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, revokedKey(claims.ID), 1, ttl).Err()
}

// IsRevoked fails open when Redis is unreachable.
func (s *AuthService) IsRevoked(ctx context.Context, jti string) bool {
	n, err := s.rdb.Exists(ctx, revokedKey(jti)).Result()
	if err != nil {
		s.logger.Warn("Revocation check failed", zap.Error(err))
		return false
	}
	return n > 0
}
