package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	apperrors "github.com/simplim/backend-go/internal/errors"
	"github.com/simplim/backend-go/internal/history"
	"github.com/simplim/backend-go/internal/simplify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder 确定性嵌入
type stubEmbedder struct{}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, 8)
	for i, r := range text {
		vec[i%8] += float32(r)
	}
	return vec, nil
}

func (s *stubEmbedder) Dimensions() int { return 8 }
func (s *stubEmbedder) Ready() bool     { return true }

// stubEngine 可编程的简化引擎
type stubEngine struct {
	calls    int
	failAll  bool
	failWith error
	reply    string
}

func (e *stubEngine) Simplify(ctx context.Context, req simplify.Request) (string, error) {
	e.calls++
	if e.failWith != nil {
		return "", e.failWith
	}
	if e.failAll {
		return "", apperrors.NewEngineUnavailableError(fmt.Errorf("upstream timeout"))
	}
	if e.reply != "" {
		return e.reply, nil
	}
	return "simplified: " + req.Text, nil
}

func (e *stubEngine) Name() string { return "stub" }
func (e *stubEngine) Ready() bool  { return true }

func testRetryPolicy() simplify.RetryPolicy {
	return simplify.RetryPolicy{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		AttemptTimeout: time.Second,
	}
}

func newTestService(engine simplify.Engine) *SimplifyService {
	store := history.NewStore(&stubEmbedder{}, history.NewMemoryVectorStore(), 5*time.Second, nil)
	return NewSimplifyService(store, engine, testRetryPolicy(), nil, nil)
}

func TestSimplifyTextSuccess(t *testing.T) {
	engine := &stubEngine{reply: "Plants turn light into food."}
	svc := newTestService(engine)

	result, err := svc.SimplifyText(context.Background(), 1, "Photosynthesis converts light energy into chemical energy")
	require.NoError(t, err)

	assert.Equal(t, "Photosynthesis converts light energy into chemical energy", result.OriginalText)
	assert.Equal(t, "Plants turn light into food.", result.SimplifiedText)
	assert.NotEmpty(t, result.RecordID)
	assert.Equal(t, 1, result.ComplexityLevel)
	assert.False(t, result.UsedFallback)
	assert.Equal(t, 1, engine.calls)
}

func TestSimplifyTextEmptyInput(t *testing.T) {
	engine := &stubEngine{}
	svc := newTestService(engine)

	_, err := svc.SimplifyText(context.Background(), 1, "   \t\n")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	// 验证失败时引擎不应被调用
	assert.Equal(t, 0, engine.calls)
}

func TestSimplifyTextFallbackOnEngineFailure(t *testing.T) {
	engine := &stubEngine{failAll: true}
	svc := newTestService(engine)

	result, err := svc.SimplifyText(context.Background(), 1, "We utilize numerous components.")
	require.NoError(t, err)

	// 引擎重试耗尽后降级完成请求，而不是报错
	assert.True(t, result.UsedFallback)
	assert.NotEmpty(t, result.SimplifiedText)
	assert.NotEmpty(t, result.RecordID)
	assert.Equal(t, 3, engine.calls)
}

func TestSimplifyTextSurfacesTerminalEngineError(t *testing.T) {
	engine := &stubEngine{failWith: apperrors.NewValidationError("engine rejected input: prompt too long")}
	svc := newTestService(engine)

	_, err := svc.SimplifyText(context.Background(), 1, "Some perfectly ordinary text.")
	require.Error(t, err)

	// 终态错误不重试也不降级，原样上抛
	assert.True(t, apperrors.IsValidation(err))
	assert.Equal(t, 1, engine.calls)

	// 失败的请求不应留下历史记录
	records, histErr := svc.GetHistory(context.Background(), 1, 10)
	require.NoError(t, histErr)
	assert.Empty(t, records)
}

func TestFollowUpIncrementsComplexity(t *testing.T) {
	engine := &stubEngine{reply: "Mitochondria give cells energy."}
	svc := newTestService(engine)
	ctx := context.Background()

	first, err := svc.SimplifyText(ctx, 1, "The mitochondria is the powerhouse of the cell.")
	require.NoError(t, err)
	assert.Equal(t, 1, first.ComplexityLevel)

	engine.reply = "Tiny parts inside cells make power."
	second, err := svc.FollowUp(ctx, 1, "still too technical")
	require.NoError(t, err)

	// 原文沿用上一条记录，复杂度递增
	assert.Equal(t, first.OriginalText, second.OriginalText)
	assert.Equal(t, 2, second.ComplexityLevel)
	assert.Equal(t, "Tiny parts inside cells make power.", second.SimplifiedText)
	assert.NotEqual(t, first.RecordID, second.RecordID)
}

func TestFollowUpWithoutHistory(t *testing.T) {
	svc := newTestService(&stubEngine{})

	_, err := svc.FollowUp(context.Background(), 42, "make it simpler")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestFollowUpEmptyFeedback(t *testing.T) {
	svc := newTestService(&stubEngine{})

	_, err := svc.FollowUp(context.Background(), 1, "  ")
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestGetHistoryMostRecentFirst(t *testing.T) {
	engine := &stubEngine{}
	svc := newTestService(engine)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		_, err := svc.SimplifyText(ctx, 1, fmt.Sprintf("original input %d", i))
		require.NoError(t, err)
	}

	records, err := svc.GetHistory(ctx, 1, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "original input 4", records[0].OriginalText)
	assert.Equal(t, "original input 3", records[1].OriginalText)

	// 无写入时重复调用结果一致
	again, err := svc.GetHistory(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, records, again)
}

func TestFindSimilarCrossUserIsolation(t *testing.T) {
	engine := &stubEngine{}
	svc := newTestService(engine)
	ctx := context.Background()

	_, err := svc.SimplifyText(ctx, 1, "Quantum entanglement links particle states")
	require.NoError(t, err)

	matches, err := svc.FindSimilar(ctx, 2, "Quantum entanglement links particle states", 5)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestSimplifyPersistenceFailure(t *testing.T) {
	engine := &stubEngine{reply: "Simple version."}
	store := history.NewStore(&failingStoreEmbedder{}, history.NewMemoryVectorStore(), 5*time.Second, nil)
	svc := NewSimplifyService(store, engine, testRetryPolicy(), nil, nil)

	_, err := svc.SimplifyText(context.Background(), 1, "Some complex text")
	require.Error(t, err)

	// 落库失败必须携带已生成的简化文本
	assert.True(t, apperrors.IsPersistence(err))
	appErr := apperrors.GetAppError(err)
	details, ok := appErr.Details.(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "Simple version.", details["simplified_text"])
}

// failingStoreEmbedder 检索时返回空上下文，写入时失败
type failingStoreEmbedder struct {
	calls int
}

func (f *failingStoreEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("embedding service down")
}

func (f *failingStoreEmbedder) Dimensions() int { return 0 }
func (f *failingStoreEmbedder) Ready() bool     { return false }
