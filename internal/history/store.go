package history

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/simplim/backend-go/internal/errors"
	"go.uber.org/zap"
)

// Store 简化历史存储
// 封装嵌入计算与向量索引，提供按用户隔离的写入、相似检索和历史查询
type Store struct {
	embedder    Embedder
	vectorStore VectorStore
	timeout     time.Duration
	logger      *zap.Logger
}

// NewStore 创建历史存储
func NewStore(embedder Embedder, vectorStore VectorStore, timeout time.Duration, logger *zap.Logger) *Store {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		embedder:    embedder,
		vectorStore: vectorStore,
		timeout:     timeout,
		logger:      logger,
	}
}

// StoreSimplification 写入一条简化记录，返回索引分配的记录ID
func (s *Store) StoreSimplification(ctx context.Context, originalText, simplifiedText string, complexityLevel int, userID uint) (string, error) {
	if strings.TrimSpace(originalText) == "" {
		return "", apperrors.NewEmptyTextError()
	}
	if complexityLevel < 1 {
		return "", apperrors.NewValidationError("complexity level must be at least 1")
	}

	embedding, err := s.embed(ctx, originalText)
	if err != nil {
		return "", err
	}

	storeCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	record := SimplificationRecord{
		UserID:          userID,
		OriginalText:    originalText,
		SimplifiedText:  simplifiedText,
		ComplexityLevel: complexityLevel,
		CreatedAt:       time.Now(),
	}

	recordID, err := s.vectorStore.Upsert(storeCtx, record, embedding)
	if err != nil {
		s.logger.Error("vector store upsert failed",
			zap.Uint("user_id", userID),
			zap.Error(err))
		return "", apperrors.NewBackendUnavailableError("vector index", err)
	}

	return recordID, nil
}

// FindSimilar 按余弦相似度降序返回该用户历史中与text最相似的记录
// 用户没有历史记录时返回空列表而非错误
func (s *Store) FindSimilar(ctx context.Context, text string, userID uint, limit int) ([]SimilarMatch, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.NewEmptyTextError()
	}

	embedding, err := s.embed(ctx, text)
	if err != nil {
		return nil, err
	}

	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	matches, err := s.vectorStore.Search(queryCtx, embedding, userID, limit)
	if err != nil {
		s.logger.Error("vector store search failed",
			zap.Uint("user_id", userID),
			zap.Error(err))
		return nil, apperrors.NewBackendUnavailableError("vector index", err)
	}
	if matches == nil {
		matches = []SimilarMatch{}
	}

	return matches, nil
}

// GetHistory 返回该用户最近的简化记录，最近优先
func (s *Store) GetHistory(ctx context.Context, userID uint, limit int) ([]SimplificationRecord, error) {
	queryCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	records, err := s.vectorStore.Scroll(queryCtx, userID, limit)
	if err != nil {
		s.logger.Error("vector store scroll failed",
			zap.Uint("user_id", userID),
			zap.Error(err))
		return nil, apperrors.NewBackendUnavailableError("vector index", err)
	}
	if records == nil {
		records = []SimplificationRecord{}
	}

	return records, nil
}

// Ready 检查嵌入服务和向量索引是否就绪
func (s *Store) Ready() bool {
	return s.embedder.Ready() && s.vectorStore.Ready()
}

func (s *Store) embed(ctx context.Context, text string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	embedding, err := s.embedder.Embed(embedCtx, text)
	if err != nil {
		s.logger.Error("embedding failed", zap.Error(err))
		return nil, apperrors.NewBackendUnavailableError("embedding", err)
	}
	return embedding, nil
}
