package controllers

import (
	"net/http"

	"github.com/simplim/backend-go/app/bootstrap"
	"github.com/simplim/backend-go/internal/auth"
)

// AuthController 注册、登录与用户信息
type AuthController struct {
	BaseController
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type loginRequest struct {
	// 邮箱或用户名
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// Register POST /api/auth/register
func (c *AuthController) Register() {
	var req registerRequest
	if !c.bindAndValidate(&req) {
		return
	}

	app := bootstrap.GetApp()
	user, err := app.UserService().Register(req.Username, req.Email, req.Password)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"user_id":  user.UserID,
		"username": user.Username,
		"email":    user.Email,
	})
}

// Login POST /api/auth/login
func (c *AuthController) Login() {
	var req loginRequest
	if !c.bindAndValidate(&req) {
		return
	}

	app := bootstrap.GetApp()
	token, user, err := app.UserService().Login(req.Identifier, req.Password)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
		"user": map[string]interface{}{
			"user_id":  user.UserID,
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// Me GET /api/auth/me
func (c *AuthController) Me() {
	userID, ok := c.authenticatedUserID()
	if !ok {
		c.JSONError(http.StatusUnauthorized, "authentication required")
		return
	}

	app := bootstrap.GetApp()
	user, err := app.UserService().GetUserByID(userID)
	if err != nil {
		c.JSONAppError(err)
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"user_id":     user.UserID,
		"username":    user.Username,
		"email":       user.Email,
		"create_time": user.CreateTime,
	})
}

// Refresh POST /api/auth/refresh
func (c *AuthController) Refresh() {
	authHeader := c.Ctx.Input.Header("Authorization")
	tokenString, err := auth.ExtractTokenFromHeader(authHeader)
	if err != nil {
		c.JSONError(http.StatusUnauthorized, err.Error())
		return
	}

	app := bootstrap.GetApp()
	newToken, err := app.JWTService().RefreshToken(tokenString)
	if err != nil {
		c.JSONError(http.StatusUnauthorized, "token refresh failed")
		return
	}

	c.JSONSuccess(map[string]interface{}{
		"access_token": newToken,
		"token_type":   "bearer",
	})
}
