package authservice

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/internal/domain"
	"github.com/GlebRadaev/smswallet/pkg/auth"
)

const (
	DefaultAdminTTL = 12 * time.Hour
	DefaultUserTTL  = 30 * 24 * time.Hour
)

type Config struct {
	AdminLogin        string
	AdminPasswordHash string
	AdminTTL          time.Duration
	UserTTL           time.Duration
}

type Service struct {
	cfg         Config
	hashService auth.HashServiceInterface
	jwtService  auth.JWTServiceInterface
	now         func() time.Time
}

func New(cfg Config, hashService auth.HashServiceInterface, jwtService auth.JWTServiceInterface) *Service {
	if cfg.AdminTTL <= 0 {
		cfg.AdminTTL = DefaultAdminTTL
	}
	if cfg.UserTTL <= 0 {
		cfg.UserTTL = DefaultUserTTL
	}
	return &Service{
		cfg:         cfg,
		hashService: hashService,
		jwtService:  jwtService,
		now:         time.Now,
	}
}

// Login checks operator credentials and returns an admin token.
func (s *Service) Login(ctx context.Context, login, password string) (string, error) {
	if s.cfg.AdminLogin == "" || s.cfg.AdminPasswordHash == "" {
		zap.L().Warn("admin login attempted without configured credentials")
		return "", domain.ErrInvalidCredentials
	}
	loginOK := subtle.ConstantTimeCompare([]byte(login), []byte(s.cfg.AdminLogin)) == 1
	passwordOK := s.hashService.ComparePassword(s.cfg.AdminPasswordHash, password)
	if !loginOK || !passwordOK {
		zap.L().Warn("invalid admin credentials", zap.String("login", login))
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateJWT(login, auth.RoleAdmin, s.now().Add(s.cfg.AdminTTL))
	if err != nil {
		zap.L().Error("can't generate admin token", zap.Error(err))
		return "", err
	}
	zap.L().Info("admin authenticated", zap.String("login", login))
	return token, nil
}

// IssueUserToken returns a token the bot presents on behalf of userID.
func (s *Service) IssueUserToken(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("%w: user id is required", domain.ErrInvalidInput)
	}
	token, err := s.jwtService.GenerateJWT(userID, auth.RoleUser, s.now().Add(s.cfg.UserTTL))
	if err != nil {
		zap.L().Error("can't generate user token", zap.String("userID", userID), zap.Error(err))
		return "", err
	}
	return token, nil
}
