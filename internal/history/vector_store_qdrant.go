package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// QdrantOptions Qdrant客户端配置
type QdrantOptions struct {
	Endpoint   string
	APIKey     string
	Collection string
	VectorSize int
	Distance   string
	UseTLS     bool
	Timeout    time.Duration
}

type qdrantVectorStore struct {
	client     *http.Client
	endpoint   string
	apiKey     string
	collection string
	vectorSize int
	distance   string
}

// NewQdrantVectorStore 创建Qdrant向量存储
func NewQdrantVectorStore(opts QdrantOptions) (VectorStore, error) {
	if opts.Endpoint == "" {
		scheme := "http"
		if opts.UseTLS {
			scheme = "https"
		}
		opts.Endpoint = fmt.Sprintf("%s://localhost:6333", scheme)
	}

	if !strings.HasPrefix(opts.Endpoint, "http") {
		scheme := "http"
		if opts.UseTLS {
			scheme = "https"
		}
		opts.Endpoint = fmt.Sprintf("%s://%s", scheme, opts.Endpoint)
	}

	if opts.Collection == "" {
		opts.Collection = "text_simplifications"
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = 1536
	}
	if opts.Distance == "" {
		opts.Distance = "Cosine"
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &qdrantVectorStore{
		client: &http.Client{
			Timeout: timeout,
		},
		endpoint:   strings.TrimSuffix(opts.Endpoint, "/"),
		apiKey:     opts.APIKey,
		collection: opts.Collection,
		vectorSize: opts.VectorSize,
		distance:   formatDistance(opts.Distance),
	}, nil
}

func formatDistance(value string) string {
	switch strings.ToLower(value) {
	case "dot", "dotproduct":
		return "Dot"
	case "euclid", "l2":
		return "Euclid"
	default:
		return "Cosine"
	}
}

func (s *qdrantVectorStore) ensureCollection(ctx context.Context) error {
	resp, err := s.doRequest(ctx, http.MethodGet, fmt.Sprintf("/collections/%s", s.collection), nil)
	if err == nil && resp.StatusCode == http.StatusOK {
		resp.Body.Close()
		return nil
	}
	if resp != nil {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}

	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     s.vectorSize,
			"distance": s.distance,
		},
	}
	resp, err = s.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s", s.collection), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("create collection %s failed: %s", s.collection, resp.Status)
	}

	// order_by和过滤要求payload字段有索引
	if err := s.createPayloadIndex(ctx, "user_id", "integer"); err != nil {
		return err
	}
	if err := s.createPayloadIndex(ctx, "created_at", "integer"); err != nil {
		return err
	}

	return nil
}

func (s *qdrantVectorStore) createPayloadIndex(ctx context.Context, field, schema string) error {
	body := map[string]interface{}{
		"field_name":   field,
		"field_schema": schema,
	}
	resp, err := s.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/index?wait=true", s.collection), body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("create payload index %s on %s failed: %s", field, s.collection, resp.Status)
	}
	return nil
}

func (s *qdrantVectorStore) Upsert(ctx context.Context, record SimplificationRecord, embedding []float32) (string, error) {
	if len(embedding) == 0 {
		return "", fmt.Errorf("embedding is empty")
	}
	// 维度不一致说明换了嵌入模型，补零或截断都会破坏相似度比较
	if len(embedding) != s.vectorSize {
		return "", fmt.Errorf("embedding dimension %d does not match collection size %d", len(embedding), s.vectorSize)
	}

	if err := s.ensureCollection(ctx); err != nil {
		return "", err
	}

	// 由服务端无法分配点ID，使用UUID保证并发写入下无碰撞
	pointID := record.ID
	if pointID == "" {
		pointID = uuid.NewString()
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	payload := map[string]interface{}{
		"points": []map[string]interface{}{
			{
				"id":     pointID,
				"vector": embedding,
				"payload": map[string]interface{}{
					"user_id":          record.UserID,
					"original_text":    record.OriginalText,
					"simplified_text":  record.SimplifiedText,
					"complexity_level": record.ComplexityLevel,
					"created_at":       createdAt.UnixNano(),
				},
			},
		},
	}

	resp, err := s.doRequest(ctx, http.MethodPut, fmt.Sprintf("/collections/%s/points?wait=true", s.collection), payload)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("qdrant upsert failed: %s %s", resp.Status, string(body))
	}

	return pointID, nil
}

func (s *qdrantVectorStore) Search(ctx context.Context, embedding []float32, userID uint, limit int) ([]SimilarMatch, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	body := map[string]interface{}{
		"vector":       embedding,
		"limit":        limit,
		"with_payload": true,
		"with_vectors": false,
		"filter":       userFilter(userID),
	}

	resp, err := s.doRequest(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", s.collection), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("qdrant search failed: %s %s", resp.Status, string(raw))
	}

	var searchResp struct {
		Result []struct {
			ID      interface{}            `json:"id"`
			Score   float64                `json:"score"`
			Payload map[string]interface{} `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, err
	}

	results := make([]SimilarMatch, 0, len(searchResp.Result))
	for _, item := range searchResp.Result {
		results = append(results, SimilarMatch{
			OriginalText:    payloadString(item.Payload, "original_text"),
			SimplifiedText:  payloadString(item.Payload, "simplified_text"),
			ComplexityLevel: int(payloadInt(item.Payload, "complexity_level")),
			Score:           item.Score,
		})
	}

	return results, nil
}

func (s *qdrantVectorStore) Scroll(ctx context.Context, userID uint, limit int) ([]SimplificationRecord, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	// created_at降序排列，直接得到最近优先
	body := map[string]interface{}{
		"filter":       userFilter(userID),
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
		"order_by": map[string]interface{}{
			"key":       "created_at",
			"direction": "desc",
		},
	}

	resp, err := s.doRequest(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/scroll", s.collection), body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("qdrant scroll failed: %s %s", resp.Status, string(raw))
	}

	var scrollResp struct {
		Result struct {
			Points []struct {
				ID      interface{}            `json:"id"`
				Payload map[string]interface{} `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&scrollResp); err != nil {
		return nil, err
	}

	records := make([]SimplificationRecord, 0, len(scrollResp.Result.Points))
	for _, point := range scrollResp.Result.Points {
		records = append(records, SimplificationRecord{
			ID:              fmt.Sprintf("%v", point.ID),
			UserID:          userID,
			OriginalText:    payloadString(point.Payload, "original_text"),
			SimplifiedText:  payloadString(point.Payload, "simplified_text"),
			ComplexityLevel: int(payloadInt(point.Payload, "complexity_level")),
			CreatedAt:       time.Unix(0, payloadInt(point.Payload, "created_at")),
		})
	}

	return records, nil
}

func (s *qdrantVectorStore) Ready() bool {
	return s.client != nil
}

// userFilter 用户隔离过滤条件，所有查询必须携带
func userFilter(userID uint) map[string]interface{} {
	return map[string]interface{}{
		"must": []map[string]interface{}{
			{
				"key": "user_id",
				"match": map[string]interface{}{
					"value": userID,
				},
			},
		},
	}
}

func payloadString(payload map[string]interface{}, key string) string {
	if val, ok := payload[key].(string); ok {
		return val
	}
	return ""
}

func payloadInt(payload map[string]interface{}, key string) int64 {
	switch v := payload[key].(type) {
	case float64:
		return int64(v)
	case int:
		return int64(v)
	case int64:
		return v
	case json.Number:
		out, _ := v.Int64()
		return out
	case string:
		var out int64
		fmt.Sscanf(v, "%d", &out)
		return out
	default:
		return 0
	}
}

func (s *qdrantVectorStore) doRequest(ctx context.Context, method, path string, body interface{}) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.endpoint+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}

	return s.client.Do(req)
}
