package middleware

import (
	"net/http"

	"github.com/beego/beego/v2/server/web/context"
	"github.com/simplim/backend-go/app/bootstrap"
	"github.com/simplim/backend-go/internal/auth"
)

// JWTAuthMiddleware 校验Bearer token并把用户身份写入请求上下文
func JWTAuthMiddleware(ctx *context.Context) {
	tokenString, err := auth.ExtractTokenFromHeader(ctx.Input.Header("Authorization"))
	if err != nil {
		unauthorized(ctx, "missing or malformed authorization header")
		return
	}

	app := bootstrap.GetApp()
	if app == nil {
		unauthorized(ctx, "service not ready")
		return
	}

	claims, err := app.JWTService().ValidateToken(tokenString)
	if err != nil {
		unauthorized(ctx, "invalid or expired token")
		return
	}

	ctx.Input.SetData("user_id", claims.UserID)
	ctx.Input.SetData("username", claims.Username)
}

func unauthorized(ctx *context.Context, message string) {
	ctx.Output.SetStatus(http.StatusUnauthorized)
	_ = ctx.Output.JSON(map[string]interface{}{
		"success": false,
		"error":   message,
	}, false, false)
}
