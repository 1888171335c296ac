package bootstrap

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/simplim/backend-go/internal/auth"
	"github.com/simplim/backend-go/internal/config"
	"github.com/simplim/backend-go/internal/database"
	"github.com/simplim/backend-go/internal/history"
	"github.com/simplim/backend-go/internal/kafka"
	"github.com/simplim/backend-go/internal/logger"
	"github.com/simplim/backend-go/internal/services"
	"github.com/simplim/backend-go/internal/simplify"
	"github.com/simplim/backend-go/internal/storage"
	"go.uber.org/zap"
)

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	cleanupTasks []func() error

	jwtService      *auth.JWTService
	historyStore    *history.Store
	engine          simplify.Engine
	userService     *services.UserService
	simplifyService *services.SimplifyService
	pdfService      *services.PDFService
	metricsService  *services.MetricsService
}

// Global app instance for controllers to access
var globalApp *App

// GetApp returns the global app instance
func GetApp() *App {
	return globalApp
}

// SetGlobalApp sets the global app instance
func SetGlobalApp(app *App) {
	globalApp = app
}

func (a *App) JWTService() *auth.JWTService               { return a.jwtService }
func (a *App) HistoryStore() *history.Store               { return a.historyStore }
func (a *App) Engine() simplify.Engine                    { return a.engine }
func (a *App) UserService() *services.UserService         { return a.userService }
func (a *App) SimplifyService() *services.SimplifyService { return a.simplifyService }
func (a *App) PDFService() *services.PDFService           { return a.pdfService }
func (a *App) MetricsService() *services.MetricsService   { return a.metricsService }

// Init bootstraps configuration, logger, database connections and other shared
// infrastructure components required by the Beego application.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize structured logger.
	if err := logger.InitLogger(); err != nil {
		return nil, err
	}

	// Load dynamic configuration.
	if err := config.LoadConfig(); err != nil {
		return nil, err
	}
	cfg := config.AppConfig

	app := &App{}

	// Initialize database.
	db, err := database.InitDB()
	if err != nil {
		return nil, err
	}
	app.cleanupTasks = append(app.cleanupTasks, func() error {
		return database.CloseDB()
	})

	// Initialize Redis (optional). Failure shouldn't block the app.
	redisClient, err := database.InitRedis()
	if err != nil {
		logger.Warn("⚠️ Redis初始化失败，历史缓存停用", zap.Error(err))
		redisClient = nil
	} else {
		app.cleanupTasks = append(app.cleanupTasks, func() error {
			return database.CloseRedis()
		})
	}

	// Object storage for uploaded PDFs.
	objectStore, err := storage.NewObjectStorage(cfg.Storage)
	if err != nil {
		return nil, err
	}

	// Vector store backing the simplification history.
	vectorStore, err := newVectorStore(cfg)
	if err != nil {
		return nil, err
	}
	embedder := history.NewOpenAIEmbedder(cfg.AI.OpenAIAPIKey, cfg.History.EmbeddingModel)
	app.historyStore = history.NewStore(embedder, vectorStore, cfg.History.StoreTimeout, logger.GetLogger())

	// Simplification engine with retry/fallback policy.
	engine := simplify.NewOpenAIEngine(simplify.OpenAIEngineConfig{
		APIKey:      cfg.AI.OpenAIAPIKey,
		Model:       cfg.AI.Model,
		MaxTokens:   cfg.AI.MaxTokens,
		Temperature: float32(cfg.AI.Temperature),
	})
	app.engine = engine
	retry := simplify.RetryPolicy{
		MaxAttempts:    cfg.AI.MaxAttempts,
		BaseDelay:      cfg.AI.BaseDelay,
		MaxDelay:       cfg.AI.MaxDelay,
		AttemptTimeout: cfg.AI.Timeout,
	}

	// Kafka audit producer (optional).
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		if err := kafka.InitProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic); err != nil {
			logger.Warn("⚠️ Kafka初始化失败，审计事件停用", zap.Error(err))
		} else {
			app.cleanupTasks = append(app.cleanupTasks, func() error {
				return kafka.GetProducer().Close()
			})
		}
	}

	app.jwtService = auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpireMinutes)*time.Minute)
	app.userService = services.NewUserService(db, app.jwtService)
	app.simplifyService = services.NewSimplifyService(app.historyStore, engine, retry, db, redisClient)
	app.pdfService = services.NewPDFService(db, objectStore, app.simplifyService, cfg.FileUpload.MaxSize)
	app.metricsService = services.NewMetricsService()

	SetGlobalApp(app)
	logger.Info("✅ 应用初始化完成",
		zap.String("history_provider", cfg.History.Provider),
		zap.Bool("engine_ready", engine.Ready()))
	return app, nil
}

// newVectorStore 按配置选择向量存储实现
func newVectorStore(cfg *config.Config) (history.VectorStore, error) {
	switch cfg.History.Provider {
	case "qdrant":
		return history.NewQdrantVectorStore(history.QdrantOptions{
			Endpoint:   cfg.History.Qdrant.Endpoint,
			APIKey:     cfg.History.Qdrant.APIKey,
			Collection: cfg.History.Collection,
			VectorSize: cfg.History.VectorSize,
			UseTLS:     cfg.History.Qdrant.UseTLS,
		})
	case "milvus":
		return history.NewMilvusVectorStore(history.MilvusOptions{
			Address:    cfg.History.Milvus.Address,
			Username:   cfg.History.Milvus.Username,
			Password:   cfg.History.Milvus.Password,
			Collection: cfg.History.Collection,
			VectorSize: cfg.History.VectorSize,
			Database:   cfg.History.Milvus.Database,
			UseTLS:     cfg.History.Milvus.TLS,
		})
	default:
		logger.Warn("⚠️ 使用内存向量存储，重启后历史丢失")
		return history.NewMemoryVectorStore(), nil
	}
}

// Shutdown runs registered cleanup tasks in reverse order.
func (a *App) Shutdown() {
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			logger.Error("清理任务执行失败", zap.Error(err))
		}
	}
	logger.Sync()
}
