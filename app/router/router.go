package router

import (
	"github.com/beego/beego/v2/server/web"
	"github.com/simplim/backend-go/app/controllers"
	"github.com/simplim/backend-go/app/middleware"
)

// Init registers all routes. Must be called after bootstrap.Init.
func Init() {
	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")
	web.Router("/metrics", &controllers.MetricsController{}, "get:Metrics")

	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)

	// 认证路由不需要token
	authController := &controllers.AuthController{}
	web.Router("/api/auth/register", authController, "post:Register")
	web.Router("/api/auth/login", authController, "post:Login")
	web.Router("/api/auth/refresh", authController, "post:Refresh")
	web.Router("/api/auth/me", authController, "get:Me")

	// 除注册/登录外的/api路由要求JWT
	web.InsertFilter("/api/simplify/*", web.BeforeExec, middleware.JWTAuthMiddleware)
	web.InsertFilter("/api/pdf", web.BeforeExec, middleware.JWTAuthMiddleware)
	web.InsertFilter("/api/pdf/*", web.BeforeExec, middleware.JWTAuthMiddleware)
	web.InsertFilter("/api/auth/me", web.BeforeExec, middleware.JWTAuthMiddleware)

	simplifyController := &controllers.SimplifyController{}
	web.Router("/api/simplify/text", simplifyController, "post:SimplifyText")
	web.Router("/api/simplify/follow-up", simplifyController, "post:FollowUp")
	web.Router("/api/simplify/history", simplifyController, "get:History")
	web.Router("/api/simplify/similar", simplifyController, "post:Similar")

	pdfController := &controllers.PDFController{}
	web.Router("/api/pdf", pdfController, "get:List;post:Upload")
	web.Router("/api/pdf/:id", pdfController, "get:Get;delete:Delete")
	web.Router("/api/pdf/:id/simplify", pdfController, "post:Simplify")
}
