package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	apperrors "github.com/simplim/backend-go/internal/errors"
	"github.com/simplim/backend-go/internal/history"
	"github.com/simplim/backend-go/internal/kafka"
	"github.com/simplim/backend-go/internal/logger"
	"github.com/simplim/backend-go/internal/models"
	"github.com/simplim/backend-go/internal/simplify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// similarContextLimit 拼入提示词的相似历史条数
	similarContextLimit = 3
	// historyCacheCap 缓存的历史条数上限
	historyCacheCap = 50
	// historyCacheTTL 历史缓存过期时间
	historyCacheTTL = 30 * time.Second
)

// SimplifyResult 一次简化的最终结果
type SimplifyResult struct {
	OriginalText    string `json:"original_text"`
	SimplifiedText  string `json:"simplified_text"`
	RecordID        string `json:"record_id"`
	ComplexityLevel int    `json:"complexity_level"`
	UsedFallback    bool   `json:"used_fallback"`
}

// SimplifyService 简化编排服务
// 串联历史检索、引擎调用（带重试与降级）和结果持久化
type SimplifyService struct {
	historyStore *history.Store
	engine       simplify.Engine
	fallback     simplify.Engine
	retry        simplify.RetryPolicy
	db           *gorm.DB
	redisClient  *redis.Client
}

// NewSimplifyService 创建简化服务
// db和redisClient可以为nil，此时跳过关系库镜像和历史缓存
func NewSimplifyService(historyStore *history.Store, engine simplify.Engine, retry simplify.RetryPolicy, db *gorm.DB, redisClient *redis.Client) *SimplifyService {
	return &SimplifyService{
		historyStore: historyStore,
		engine:       engine,
		fallback:     simplify.NewFallbackEngine(),
		retry:        retry,
		db:           db,
		redisClient:  redisClient,
	}
}

// SimplifyText 处理一次全新的简化请求
// 流程：取相似历史作上下文 → 引擎调用（重试耗尽后降级）→ 持久化 → 审计事件
func (s *SimplifyService) SimplifyText(ctx context.Context, userID uint, text string) (result *SimplifyResult, err error) {
	defer func() { recordSimplifyRequest("fresh", err) }()

	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewEmptyTextError()
	}

	// 上下文是增强而非前提，索引不可用时带空上下文继续
	var engineContext []simplify.ContextEntry
	matches, ctxErr := s.historyStore.FindSimilar(ctx, text, userID, similarContextLimit)
	if ctxErr != nil {
		recordVectorStoreError("find_similar")
		logger.Warn("⚠️ 相似历史检索失败，继续处理",
			zap.Uint("user_id", userID),
			zap.Error(ctxErr))
	} else {
		for _, m := range matches {
			engineContext = append(engineContext, simplify.ContextEntry{
				OriginalText:   m.OriginalText,
				SimplifiedText: m.SimplifiedText,
			})
		}
	}

	simplified, usedFallback, err := s.runEngine(ctx, simplify.Request{
		Text:            text,
		ComplexityLevel: 1,
		Context:         engineContext,
	})
	if err != nil {
		return nil, err
	}

	return s.persist(ctx, userID, text, simplified, 1, usedFallback, "text")
}

// FollowUp 在上一条记录基础上继续简化
// 反馈文本作为指令而非新的原文，原文从上一条记录沿用
func (s *SimplifyService) FollowUp(ctx context.Context, userID uint, feedback string) (result *SimplifyResult, err error) {
	defer func() { recordSimplifyRequest("follow_up", err) }()

	if strings.TrimSpace(feedback) == "" {
		return nil, apperrors.NewEmptyTextError()
	}

	previous, err := s.latestRecord(ctx, userID)
	if err != nil {
		return nil, err
	}

	level := previous.ComplexityLevel + 1
	simplified, usedFallback, err := s.runEngine(ctx, simplify.Request{
		Text:            previous.OriginalText,
		ComplexityLevel: level,
		Feedback:        feedback,
		Context: []simplify.ContextEntry{
			{
				OriginalText:   previous.OriginalText,
				SimplifiedText: previous.SimplifiedText,
			},
		},
	})
	if err != nil {
		return nil, err
	}

	return s.persist(ctx, userID, previous.OriginalText, simplified, level, usedFallback, "follow_up")
}

// FindSimilar 按相似度查询用户历史
func (s *SimplifyService) FindSimilar(ctx context.Context, userID uint, text string, limit int) ([]history.SimilarMatch, error) {
	if limit <= 0 {
		limit = 5
	}
	return s.historyStore.FindSimilar(ctx, text, userID, limit)
}

// GetHistory 返回用户最近的简化记录，带短TTL缓存
func (s *SimplifyService) GetHistory(ctx context.Context, userID uint, limit int) ([]history.SimplificationRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > historyCacheCap {
		limit = historyCacheCap
	}

	if cached, ok := s.cachedHistory(ctx, userID); ok {
		if len(cached) > limit {
			cached = cached[:limit]
		}
		return cached, nil
	}

	records, err := s.historyStore.GetHistory(ctx, userID, historyCacheCap)
	if err != nil {
		return nil, err
	}

	s.cacheHistory(ctx, userID, records)

	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

// runEngine 带重试调用主引擎，重试耗尽后切换到规则降级
func (s *SimplifyService) runEngine(ctx context.Context, req simplify.Request) (string, bool, error) {
	var simplified string
	start := time.Now()
	err := s.retry.Do(ctx, func(attemptCtx context.Context) error {
		out, engineErr := s.engine.Simplify(attemptCtx, req)
		if engineErr != nil {
			return engineErr
		}
		simplified = out
		return nil
	})
	recordEngineDuration(s.engine.Name(), start)

	if err == nil {
		return simplified, false, nil
	}

	// 调用方已放弃，降级结果无人消费
	if errors.Is(err, context.Canceled) {
		return "", false, apperrors.NewEngineUnavailableError(err)
	}

	// 降级只兜底上游不可用，终态错误（如输入被拒）直接上抛
	if !apperrors.IsRetryable(err) {
		return "", false, err
	}

	logger.Warn("⚠️ 简化引擎不可用，切换规则降级",
		zap.String("engine", s.engine.Name()),
		zap.Error(err))
	recordFallbackActivation()

	simplified, fbErr := s.fallback.Simplify(ctx, req)
	if fbErr != nil {
		return "", false, apperrors.NewEngineUnavailableError(err)
	}
	return simplified, true, nil
}

// persist 持久化结果并发布审计事件
// 即使调用方断开连接，已产生的结果仍然完成落库
func (s *SimplifyService) persist(ctx context.Context, userID uint, originalText, simplified string, level int, usedFallback bool, source string) (*SimplifyResult, error) {
	persistCtx := context.WithoutCancel(ctx)

	recordID, err := s.historyStore.StoreSimplification(persistCtx, originalText, simplified, level, userID)
	if err != nil {
		recordVectorStoreError("upsert")
		logger.Error("简化结果持久化失败",
			zap.Uint("user_id", userID),
			zap.Error(err))
		return nil, apperrors.NewPersistenceError(simplified, err)
	}

	// 关系库镜像仅服务于后台查询，失败不影响请求结果
	if s.db != nil {
		mirror := &models.TextHistory{
			UserID:          userID,
			OriginalText:    originalText,
			SimplifiedText:  simplified,
			ComplexityLevel: level,
			VectorID:        recordID,
			UsedFallback:    usedFallback,
		}
		if dbErr := s.db.WithContext(persistCtx).Create(mirror).Error; dbErr != nil {
			logger.Warn("⚠️ 历史镜像写入失败",
				zap.Uint("user_id", userID),
				zap.String("record_id", recordID),
				zap.Error(dbErr))
		}
	}

	s.invalidateHistoryCache(persistCtx, userID)

	go func() {
		if kafkaErr := kafka.PublishSimplification(recordID, userID, level, usedFallback, originalText, simplified, source); kafkaErr != nil {
			logger.Warn("⚠️ 审计事件发送失败", zap.String("record_id", recordID), zap.Error(kafkaErr))
		}
	}()

	return &SimplifyResult{
		OriginalText:    originalText,
		SimplifiedText:  simplified,
		RecordID:        recordID,
		ComplexityLevel: level,
		UsedFallback:    usedFallback,
	}, nil
}

// latestRecord 取用户最近一条记录，没有历史时返回校验错误
func (s *SimplifyService) latestRecord(ctx context.Context, userID uint) (*history.SimplificationRecord, error) {
	records, err := s.historyStore.GetHistory(ctx, userID, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, apperrors.NewNoHistoryError(userID)
	}
	return &records[0], nil
}

func historyCacheKey(userID uint) string {
	return fmt.Sprintf("simplim:history:%d", userID)
}

func (s *SimplifyService) cachedHistory(ctx context.Context, userID uint) ([]history.SimplificationRecord, bool) {
	if s.redisClient == nil {
		return nil, false
	}
	data, err := s.redisClient.Get(ctx, historyCacheKey(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var records []history.SimplificationRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, false
	}
	return records, true
}

func (s *SimplifyService) cacheHistory(ctx context.Context, userID uint, records []history.SimplificationRecord) {
	if s.redisClient == nil {
		return
	}
	data, err := json.Marshal(records)
	if err != nil {
		return
	}
	if err := s.redisClient.Set(ctx, historyCacheKey(userID), data, historyCacheTTL).Err(); err != nil {
		logger.Debug("历史缓存写入失败", zap.Uint("user_id", userID), zap.Error(err))
	}
}

func (s *SimplifyService) invalidateHistoryCache(ctx context.Context, userID uint) {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Del(ctx, historyCacheKey(userID)).Err(); err != nil {
		logger.Debug("历史缓存失效失败", zap.Uint("user_id", userID), zap.Error(err))
	}
}
