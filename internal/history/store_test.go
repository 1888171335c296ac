package history

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	apperrors "github.com/simplim/backend-go/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEmbedder 确定性嵌入实现
// 相同文本映射到相同向量，不同文本映射到不同方向的向量
type fakeEmbedder struct{}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r)
	}
	return vec, nil
}

func (f *fakeEmbedder) Dimensions() int { return 8 }
func (f *fakeEmbedder) Ready() bool     { return true }

type failingEmbedder struct{}

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding service down")
}

func (f *failingEmbedder) Dimensions() int { return 0 }
func (f *failingEmbedder) Ready() bool     { return false }

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(&fakeEmbedder{}, NewMemoryVectorStore(), 5*time.Second, nil)
}

func TestStoreSimplification(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	id, err := store.StoreSimplification(ctx, "The ramifications were deleterious", "The effects were bad", 1, 7)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	// 再次写入同一文本必须得到不同的记录ID
	id2, err := store.StoreSimplification(ctx, "The ramifications were deleterious", "The effects were bad", 2, 7)
	require.NoError(t, err)
	assert.NotEqual(t, id, id2)
}

func TestStoreSimplificationValidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.StoreSimplification(ctx, "   ", "simplified", 1, 7)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))

	_, err = store.StoreSimplification(ctx, "valid text", "simplified", 0, 7)
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestFindSimilarSelfMatch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	original := "Photosynthesis converts light energy into chemical energy"
	_, err := store.StoreSimplification(ctx, original, "Plants turn light into food", 1, 7)
	require.NoError(t, err)
	_, err = store.StoreSimplification(ctx, "Unrelated legalese about indemnification clauses", "Rules about who pays", 1, 7)
	require.NoError(t, err)

	matches, err := store.FindSimilar(ctx, original, 7, 5)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	// 查询自身文本时最佳匹配应为该记录，相似度接近1
	assert.Equal(t, original, matches[0].OriginalText)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-5)

	// 相似度降序排列
	for i := 1; i < len(matches); i++ {
		assert.GreaterOrEqual(t, matches[i-1].Score, matches[i].Score)
	}
}

func TestFindSimilarUserIsolation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	text := "Quantum entanglement links particle states"
	_, err := store.StoreSimplification(ctx, text, "Particles stay connected", 1, 1)
	require.NoError(t, err)

	// 另一个用户检索相同文本不能看到他人的记录
	matches, err := store.FindSimilar(ctx, text, 2, 5)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = store.FindSimilar(ctx, text, 1, 5)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestFindSimilarEmptyHistory(t *testing.T) {
	store := newTestStore(t)

	// 没有任何历史时返回空列表而非错误
	matches, err := store.FindSimilar(context.Background(), "anything at all", 99, 5)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestGetHistoryOrdering(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := store.StoreSimplification(ctx, fmt.Sprintf("original text %d", i), fmt.Sprintf("simple text %d", i), i, 7)
		require.NoError(t, err)
	}

	records, err := store.GetHistory(ctx, 7, 3)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// 最近的记录排在最前
	assert.Equal(t, "original text 5", records[0].OriginalText)
	assert.Equal(t, "original text 4", records[1].OriginalText)
	assert.Equal(t, "original text 3", records[2].OriginalText)
	assert.Equal(t, 5, records[0].ComplexityLevel)
}

func TestGetHistoryEmpty(t *testing.T) {
	store := newTestStore(t)

	records, err := store.GetHistory(context.Background(), 42, 10)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestStoreBackendFailureClassification(t *testing.T) {
	store := NewStore(&failingEmbedder{}, NewMemoryVectorStore(), 5*time.Second, nil)
	ctx := context.Background()

	_, err := store.StoreSimplification(ctx, "some text", "simpler text", 1, 7)
	require.Error(t, err)
	assert.True(t, apperrors.IsBackendUnavailable(err))
	assert.True(t, apperrors.IsRetryable(err))

	_, err = store.FindSimilar(ctx, "some text", 7, 5)
	require.Error(t, err)
	assert.True(t, apperrors.IsBackendUnavailable(err))
}

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	c := []float32{2, 0, 0}
	aNorm := vectorNorm(a)

	assert.InDelta(t, 0.0, cosineSimilarity(a, b, aNorm), 1e-6)
	assert.InDelta(t, 1.0, cosineSimilarity(a, c, aNorm), 1e-6)
	assert.True(t, math.Abs(cosineSimilarity(a, a, aNorm)-1.0) < 1e-6)
}
