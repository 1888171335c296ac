package history

import (
	"context"
	"math"
	"sort"
	"time"
)

// SimplificationRecord 向量索引中保存的简化记录
// 记录只追加，写入后original_text/simplified_text/embedding不再变更
type SimplificationRecord struct {
	ID              string    `json:"id"`
	UserID          uint      `json:"user_id"`
	OriginalText    string    `json:"original_text"`
	SimplifiedText  string    `json:"simplified_text"`
	ComplexityLevel int       `json:"complexity_level"`
	CreatedAt       time.Time `json:"created_at"`
}

// SimilarMatch 相似度检索结果
type SimilarMatch struct {
	OriginalText    string  `json:"original_text"`
	SimplifiedText  string  `json:"simplified_text"`
	ComplexityLevel int     `json:"complexity_level"`
	Score           float64 `json:"score"`
}

// VectorStore 向量存储抽象
// user_id过滤必须下推到索引查询层，禁止先取全量再过滤
type VectorStore interface {
	Upsert(ctx context.Context, record SimplificationRecord, embedding []float32) (string, error)
	Search(ctx context.Context, embedding []float32, userID uint, limit int) ([]SimilarMatch, error)
	Scroll(ctx context.Context, userID uint, limit int) ([]SimplificationRecord, error)
	Ready() bool
}

func vectorNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosineSimilarity(a, b []float32, aNorm float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	bNorm := vectorNorm(b)
	if aNorm == 0 || bNorm == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (aNorm * bNorm)
}

func sortMatchesByScore(matches []SimilarMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
}

func sortRecordsByRecency(records []SimplificationRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
}
