package services

import (
	"errors"
	"strings"

	"github.com/simplim/backend-go/internal/auth"
	apperrors "github.com/simplim/backend-go/internal/errors"
	"github.com/simplim/backend-go/internal/logger"
	"github.com/simplim/backend-go/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserService 用户注册与登录
type UserService struct {
	db         *gorm.DB
	jwtService *auth.JWTService
}

// NewUserService 创建用户服务
func NewUserService(db *gorm.DB, jwtService *auth.JWTService) *UserService {
	return &UserService{
		db:         db,
		jwtService: jwtService,
	}
}

// Register 注册新用户
func (s *UserService) Register(username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if username == "" {
		return nil, apperrors.NewValidationError("username is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.NewValidationError("a valid email is required")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	// 用户名或邮箱已存在时拒绝注册
	var count int64
	if err := s.db.Model(&models.User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error; err != nil {
		return nil, apperrors.NewBackendUnavailableError("database", err)
	}
	if count > 0 {
		return nil, apperrors.NewConflictError("username or email already registered")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, apperrors.NewSystemError(apperrors.ErrCodeInternalServer, "failed to hash password")
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		IsActive:     true,
	}
	if err := s.db.Create(user).Error; err != nil {
		logger.Error("创建用户失败", zap.String("email", email), zap.Error(err))
		return nil, apperrors.NewBackendUnavailableError("database", err)
	}

	logger.Info("✅ 用户注册成功", zap.Uint("user_id", user.UserID), zap.String("username", username))
	return user, nil
}

// Login 校验凭据并签发JWT
// identifier可以是邮箱或用户名
func (s *UserService) Login(identifier, password string) (string, *models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return "", nil, apperrors.NewValidationError("credentials are required")
	}

	var user models.User
	err := s.db.Where("email = ? OR username = ?", strings.ToLower(identifier), identifier).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 不泄露用户是否存在
			return "", nil, apperrors.NewUnauthorizedError("invalid credentials")
		}
		return "", nil, apperrors.NewBackendUnavailableError("database", err)
	}

	if !user.IsActive {
		return "", nil, apperrors.NewUnauthorizedError("account is disabled")
	}
	if !auth.VerifyPassword(password, user.PasswordHash) {
		return "", nil, apperrors.NewUnauthorizedError("invalid credentials")
	}

	token, err := s.jwtService.GenerateToken(user.UserID, user.Username, user.Email)
	if err != nil {
		logger.Error("签发JWT失败", zap.Uint("user_id", user.UserID), zap.Error(err))
		return "", nil, apperrors.NewSystemError(apperrors.ErrCodeInternalServer, "failed to issue token")
	}

	return token, &user, nil
}

// GetUserByID 按ID查询用户
func (s *UserService) GetUserByID(userID uint) (*models.User, error) {
	var user models.User
	err := s.db.First(&user, "user_id = ?", userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("user")
		}
		return nil, apperrors.NewBackendUnavailableError("database", err)
	}
	return &user, nil
}
