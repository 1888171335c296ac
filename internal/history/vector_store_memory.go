package history

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryVectorStore 进程内向量存储，用于开发和测试
type memoryVectorStore struct {
	mu      sync.RWMutex
	records []memoryRecord
}

type memoryRecord struct {
	record    SimplificationRecord
	embedding []float32
}

// NewMemoryVectorStore 创建内存向量存储
func NewMemoryVectorStore() VectorStore {
	return &memoryVectorStore{}
}

func (s *memoryVectorStore) Upsert(ctx context.Context, record SimplificationRecord, embedding []float32) (string, error) {
	if len(embedding) == 0 {
		return "", errors.New("embedding is empty")
	}

	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	stored := make([]float32, len(embedding))
	copy(stored, embedding)

	s.mu.Lock()
	s.records = append(s.records, memoryRecord{record: record, embedding: stored})
	s.mu.Unlock()

	return record.ID, nil
}

func (s *memoryVectorStore) Search(ctx context.Context, embedding []float32, userID uint, limit int) ([]SimilarMatch, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 5
	}

	queryNorm := vectorNorm(embedding)
	if queryNorm == 0 {
		return nil, errors.New("query embedding norm is zero")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]SimilarMatch, 0, limit)
	for _, entry := range s.records {
		if entry.record.UserID != userID {
			continue
		}
		matches = append(matches, SimilarMatch{
			OriginalText:    entry.record.OriginalText,
			SimplifiedText:  entry.record.SimplifiedText,
			ComplexityLevel: entry.record.ComplexityLevel,
			Score:           cosineSimilarity(embedding, entry.embedding, queryNorm),
		})
	}

	sortMatchesByScore(matches)
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

func (s *memoryVectorStore) Scroll(ctx context.Context, userID uint, limit int) ([]SimplificationRecord, error) {
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	// 插入顺序即时间顺序，倒序遍历得到最近优先
	records := make([]SimplificationRecord, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(records) < limit; i-- {
		if s.records[i].record.UserID == userID {
			records = append(records, s.records[i].record)
		}
	}
	return records, nil
}

func (s *memoryVectorStore) Ready() bool {
	return true
}
