package controllers

import (
	"github.com/simplim/backend-go/app/bootstrap"
	"github.com/simplim/backend-go/internal/database"
)

// RootController 根控制器
type RootController struct {
	BaseController
}

func (c *RootController) Index() {
	c.JSONSuccess(map[string]string{"message": "Simplim API"})
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
}

func (c *HealthController) Health() {
	status := map[string]interface{}{"status": "healthy"}

	if app := bootstrap.GetApp(); app != nil {
		components := map[string]bool{
			"database": database.DB != nil,
			"redis":    database.RedisClient != nil,
		}
		if app.HistoryStore() != nil {
			components["history_store"] = app.HistoryStore().Ready()
		}
		if app.Engine() != nil {
			components["engine"] = app.Engine().Ready()
		}
		status["components"] = components
	}

	c.JSONSuccess(status)
}

// MetricsController Prometheus指标出口
type MetricsController struct {
	BaseController
}

func (c *MetricsController) Metrics() {
	app := bootstrap.GetApp()
	app.MetricsService().ServeHTTP(c.Ctx.ResponseWriter, c.Ctx.Request)
}
