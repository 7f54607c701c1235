package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/d60-Lab/gin-blog/config"
	"github.com/d60-Lab/gin-blog/internal/model"
	"github.com/d60-Lab/gin-blog/internal/repository"
	"github.com/d60-Lab/gin-blog/pkg/logger"
)

type Credentials struct {
	Username string `json:"username" validate:"required,max=150,username"`
	Password string `json:"password" validate:"required,min=8,maxbytes=72"`
}

// Claims JWT 载荷
type Claims struct {
	UserID   uint   `json:"uid"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"admin,omitempty"`
	jwt.RegisteredClaims
}

// Session 登录结果
type Session struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      AuthorView `json:"user"`
}

type AuthService interface {
	Signup(ctx context.Context, in Credentials) (*Session, error)
	Login(ctx context.Context, in Credentials) (*Session, error)
	ParseToken(token string) (*Claims, error)
	// EnsureAdmin 启动时按配置创建或提升管理员
	EnsureAdmin(ctx context.Context, in Credentials) error
}

type authService struct {
	users  repository.UserRepository
	secret []byte
	expire time.Duration
	now    func() time.Time
}

func NewAuthService(users repository.UserRepository, cfg config.JWTConfig) AuthService {
	return &authService{users: users, secret: []byte(cfg.Secret), expire: cfg.Expire, now: time.Now}
}

func (s *authService) Signup(ctx context.Context, in Credentials) (*Session, error) {
	in.Username = strings.TrimSpace(in.Username)
	if err := validateStruct(&in); err != nil {
		return nil, err
	}
	_, err := s.users.GetByUsername(ctx, in.Username)
	if err == nil {
		return nil, invalid("username", "a user with that username already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "check username")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	u := &model.User{Username: in.Username, Password: string(hash)}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, invalid("username", "a user with that username already exists")
		}
		return nil, errors.Wrap(err, "create user")
	}
	logger.Info("user signed up", zap.Uint("user_id", u.ID), zap.String("username", u.Username))
	return s.issue(u)
}

func (s *authService) Login(ctx context.Context, in Credentials) (*Session, error) {
	u, err := s.users.GetByUsername(ctx, strings.TrimSpace(in.Username))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(ErrUnauthorized, "invalid username or password")
		}
		return nil, errors.Wrap(err, "load user")
	}
	if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(in.Password)) != nil {
		return nil, errors.Wrap(ErrUnauthorized, "invalid username or password")
	}
	return s.issue(u)
}

func (s *authService) ParseToken(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, errors.Wrap(ErrUnauthorized, err.Error())
	}
	return claims, nil
}

func (s *authService) EnsureAdmin(ctx context.Context, in Credentials) error {
	u, err := s.users.GetByUsername(ctx, in.Username)
	switch {
	case err == nil:
		if u.IsAdmin {
			return nil
		}
		return errors.Wrap(s.users.SetAdmin(ctx, u.ID, true), "promote admin")
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := validateStruct(&in); err != nil {
			return err
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
		if err != nil {
			return errors.Wrap(err, "hash password")
		}
		u = &model.User{Username: in.Username, Password: string(hash), IsAdmin: true}
		if err := s.users.Create(ctx, u); err != nil {
			return errors.Wrap(err, "create admin")
		}
		logger.Info("admin created", zap.String("username", u.Username))
		return nil
	default:
		return errors.Wrap(err, "load admin")
	}
}

func (s *authService) issue(u *model.User) (*Session, error) {
	now := s.now()
	exp := now.Add(s.expire)
	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		IsAdmin:  u.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(u.ID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, errors.Wrap(err, "sign token")
	}
	return &Session{Token: tok, ExpiresAt: exp, User: toAuthorView(u)}, nil
}
