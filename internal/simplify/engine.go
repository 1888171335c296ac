package simplify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	apperrors "github.com/simplim/backend-go/internal/errors"
)

// systemPrompt 简化助手的系统提示词
const systemPrompt = `You are a text simplification expert. Your goal is to explain complex concepts in simple terms.
You should:
1. Break down complex ideas into smaller, understandable parts
2. Use analogies and examples
3. Avoid technical jargon
4. Adjust your explanation based on user feedback
5. Reference previous explanations when relevant`

// ContextEntry 用于提示词拼接的历史简化条目
type ContextEntry struct {
	OriginalText   string
	SimplifiedText string
}

// Request 一次简化请求
// Feedback非空表示追问场景：在上一轮解释的基础上按用户反馈继续简化
type Request struct {
	Text            string
	ComplexityLevel int
	Context         []ContextEntry
	Feedback        string
}

// Engine 文本简化引擎
type Engine interface {
	Simplify(ctx context.Context, req Request) (string, error)
	Name() string
	Ready() bool
}

// OpenAIEngine 基于OpenAI Chat Completions的简化引擎
type OpenAIEngine struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// OpenAIEngineConfig 引擎配置
type OpenAIEngineConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float32
}

// NewOpenAIEngine 创建OpenAI简化引擎
func NewOpenAIEngine(cfg OpenAIEngineConfig) *OpenAIEngine {
	engine := &OpenAIEngine{
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}
	if engine.model == "" {
		engine.model = openai.GPT4
	}
	if engine.maxTokens <= 0 {
		engine.maxTokens = 200
	}
	if engine.temperature <= 0 {
		engine.temperature = 0.7
	}

	if cfg.APIKey != "" {
		clientConfig := openai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
		engine.client = openai.NewClientWithConfig(clientConfig)
	}

	return engine
}

// Simplify 调用模型生成简化文本
func (e *OpenAIEngine) Simplify(ctx context.Context, req Request) (string, error) {
	if e.client == nil {
		return "", apperrors.NewEngineUnavailableError(fmt.Errorf("openai client not initialized"))
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserMessage(req)},
		},
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	})
	if err != nil {
		return "", classifyEngineError(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperrors.NewEngineUnavailableError(fmt.Errorf("empty completion response"))
	}

	simplified := strings.TrimSpace(resp.Choices[0].Message.Content)
	if simplified == "" {
		return "", apperrors.NewEngineUnavailableError(fmt.Errorf("blank completion content"))
	}

	return simplified, nil
}

// classifyEngineError 区分瞬时与终态的引擎调用失败
// 限流、服务端错误和超时可重试；请求被拒（4xx）是终态错误，直接上抛
func classifyEngineError(err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	// 取消由重试循环处理，保持原样
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.HTTPStatusCode == http.StatusTooManyRequests,
			apiErr.HTTPStatusCode >= http.StatusInternalServerError:
			return apperrors.NewEngineUnavailableError(err)
		case apiErr.HTTPStatusCode == http.StatusBadRequest,
			apiErr.HTTPStatusCode == http.StatusUnprocessableEntity:
			return apperrors.NewValidationError(fmt.Sprintf("engine rejected input: %s", apiErr.Message))
		default:
			return apperrors.NewSystemError(apperrors.ErrCodeInternalServer, "simplification engine request failed").WithCause(err)
		}
	}

	// 传输层失败和单次尝试超时按瞬时处理
	return apperrors.NewEngineUnavailableError(err)
}

func (e *OpenAIEngine) Name() string {
	return "openai"
}

func (e *OpenAIEngine) Ready() bool {
	return e.client != nil
}

// buildUserMessage 拼接用户消息
// 追问时携带上一轮解释和用户反馈，否则附带相似历史作为上下文
func buildUserMessage(req Request) string {
	var sb strings.Builder

	if req.Feedback != "" {
		sb.WriteString("Previous explanation:\n")
		sb.WriteString("Original: ")
		sb.WriteString(req.Text)
		sb.WriteString("\n")
		if len(req.Context) > 0 {
			sb.WriteString("Simplified: ")
			sb.WriteString(req.Context[0].SimplifiedText)
			sb.WriteString("\n")
		}
		sb.WriteString("\nUser feedback: ")
		sb.WriteString(req.Feedback)
		return sb.String()
	}

	if len(req.Context) > 0 {
		sb.WriteString("Previous similar explanations:\n")
		for _, entry := range req.Context {
			sb.WriteString("Original: ")
			sb.WriteString(entry.OriginalText)
			sb.WriteString("\n")
			sb.WriteString("Simplified: ")
			sb.WriteString(entry.SimplifiedText)
			sb.WriteString("\n\n")
		}
	}

	sb.WriteString("Please simplify this text for better understanding:\n")
	sb.WriteString(req.Text)
	sb.WriteString("\n\nProvide a simplified version that:\n")
	sb.WriteString("1. Maintains the core meaning\n")
	sb.WriteString("2. Uses simpler language\n")
	sb.WriteString("3. Includes examples if helpful\n")
	sb.WriteString("4. Is appropriate for a general audience")

	return sb.String()
}
