package history

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/simplim/backend-go/internal/logger"
	"go.uber.org/zap"
)

// MilvusOptions Milvus客户端配置
type MilvusOptions struct {
	Address    string
	Username   string
	Password   string
	Collection string
	VectorSize int
	Distance   string
	Database   string
	UseTLS     bool
}

type milvusVectorStore struct {
	milvusClient client.Client
	collection   string
	vectorSize   int
	distance     string

	loadMu sync.Mutex
	loaded bool
}

// NewMilvusVectorStore 创建Milvus向量存储
func NewMilvusVectorStore(opts MilvusOptions) (VectorStore, error) {
	if opts.Address == "" {
		opts.Address = "localhost:19530"
	}
	if opts.Collection == "" {
		opts.Collection = "text_simplifications"
	}
	if opts.VectorSize == 0 {
		opts.VectorSize = 1536
	}
	if opts.Distance == "" {
		opts.Distance = "COSINE"
	}
	if opts.Database == "" {
		opts.Database = "default"
	}

	milvusClient, err := client.NewClient(
		context.Background(),
		client.Config{
			Address:       opts.Address,
			DBName:        opts.Database,
			Username:      opts.Username,
			Password:      opts.Password,
			EnableTLSAuth: opts.UseTLS,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create milvus client: %w", err)
	}

	return &milvusVectorStore{
		milvusClient: milvusClient,
		collection:   opts.Collection,
		vectorSize:   opts.VectorSize,
		distance:     formatMilvusDistance(opts.Distance),
	}, nil
}

func formatMilvusDistance(value string) string {
	switch strings.ToUpper(value) {
	case "DOT", "IP", "INNER_PRODUCT":
		return "IP"
	case "L2", "EUCLIDEAN":
		return "L2"
	default:
		return "COSINE"
	}
}

func (s *milvusVectorStore) ensureCollection(ctx context.Context) error {
	hasCollection, err := s.milvusClient.HasCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if hasCollection {
		return s.ensureLoaded(ctx)
	}

	schema := &entity.Schema{
		CollectionName: s.collection,
		Description:    "per-user text simplification records",
		Fields: []*entity.Field{
			{
				Name:       "id",
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     "user_id",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "original_text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "simplified_text",
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": "65535",
				},
			},
			{
				Name:     "complexity_level",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "created_at",
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     "vector",
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": fmt.Sprintf("%d", s.vectorSize),
				},
			},
		},
	}

	if err := s.milvusClient.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	var index entity.Index
	var indexErr error
	switch s.distance {
	case "COSINE":
		index, indexErr = entity.NewIndexHNSW(entity.COSINE, 8, 64)
	case "IP":
		index, indexErr = entity.NewIndexHNSW(entity.IP, 8, 64)
	default:
		index, indexErr = entity.NewIndexHNSW(entity.L2, 8, 64)
	}
	if indexErr != nil {
		return fmt.Errorf("failed to create index: %w", indexErr)
	}

	if err := s.milvusClient.CreateIndex(ctx, s.collection, "vector", index, false); err != nil {
		logger.Warn("⚠️ Milvus向量索引创建失败",
			zap.String("collection", s.collection),
			zap.Error(err))
	}

	return s.ensureLoaded(ctx)
}

// ensureLoaded 检索和查询要求collection已加载到内存
func (s *milvusVectorStore) ensureLoaded(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()
	if s.loaded {
		return nil
	}
	if err := s.milvusClient.LoadCollection(ctx, s.collection, false); err != nil {
		return fmt.Errorf("failed to load collection %s: %w", s.collection, err)
	}
	s.loaded = true
	return nil
}

func (s *milvusVectorStore) Upsert(ctx context.Context, record SimplificationRecord, embedding []float32) (string, error) {
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

	pointID := record.ID
	if pointID == "" {
		pointID = uuid.NewString()
	}
	createdAt := record.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	idColumn := entity.NewColumnVarChar("id", []string{pointID})
	userIDColumn := entity.NewColumnInt64("user_id", []int64{int64(record.UserID)})
	originalColumn := entity.NewColumnVarChar("original_text", []string{record.OriginalText})
	simplifiedColumn := entity.NewColumnVarChar("simplified_text", []string{record.SimplifiedText})
	complexityColumn := entity.NewColumnInt64("complexity_level", []int64{int64(record.ComplexityLevel)})
	createdAtColumn := entity.NewColumnInt64("created_at", []int64{createdAt.UnixNano()})
	vectorColumn := entity.NewColumnFloatVector("vector", s.vectorSize, [][]float32{embedding})

	_, err := s.milvusClient.Insert(ctx, s.collection, "", idColumn, userIDColumn, originalColumn, simplifiedColumn, complexityColumn, createdAtColumn, vectorColumn)
	if err != nil {
		return "", fmt.Errorf("milvus insert failed: %w", err)
	}

	if err := s.milvusClient.Flush(ctx, s.collection, false); err != nil {
		logger.Warn("⚠️ Milvus刷新失败",
			zap.String("collection", s.collection),
			zap.Error(err))
	}

	return pointID, nil
}

func (s *milvusVectorStore) Search(ctx context.Context, embedding []float32, userID uint, limit int) ([]SimilarMatch, error) {
	if len(embedding) == 0 {
		return nil, nil
	}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	sp, _ := entity.NewIndexHNSWSearchParam(64)
	queryVector := entity.FloatVector(embedding)
	// 用户隔离通过检索表达式下推到索引层
	searchResults, err := s.milvusClient.Search(
		ctx,
		s.collection,
		[]string{},
		fmt.Sprintf("user_id == %d", userID),
		[]string{"original_text", "simplified_text", "complexity_level"},
		[]entity.Vector{queryVector},
		"vector",
		entity.MetricType(s.distance),
		limit,
		sp,
	)
	if err != nil {
		return nil, fmt.Errorf("milvus search failed: %w", err)
	}

	if len(searchResults) == 0 {
		return []SimilarMatch{}, nil
	}
	result := searchResults[0]
	if result.Err != nil {
		return nil, fmt.Errorf("milvus search error: %w", result.Err)
	}
	if result.ResultCount == 0 {
		return []SimilarMatch{}, nil
	}

	var originals, simplifieds []string
	var complexities []int64
	for _, field := range result.Fields {
		switch field.Name() {
		case "original_text":
			if val, ok := field.(*entity.ColumnVarChar); ok {
				originals = val.Data()
			}
		case "simplified_text":
			if val, ok := field.(*entity.ColumnVarChar); ok {
				simplifieds = val.Data()
			}
		case "complexity_level":
			if val, ok := field.(*entity.ColumnInt64); ok {
				complexities = val.Data()
			}
		}
	}

	results := make([]SimilarMatch, 0, result.ResultCount)
	for i := 0; i < result.ResultCount; i++ {
		match := SimilarMatch{}
		if i < len(originals) {
			match.OriginalText = originals[i]
		}
		if i < len(simplifieds) {
			match.SimplifiedText = simplifieds[i]
		}
		if i < len(complexities) {
			match.ComplexityLevel = int(complexities[i])
		}
		if i < len(result.Scores) {
			match.Score = float64(result.Scores[i])
		}
		results = append(results, match)
	}

	return results, nil
}

func (s *milvusVectorStore) Scroll(ctx context.Context, userID uint, limit int) ([]SimplificationRecord, error) {
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}

	queryResult, err := s.milvusClient.Query(
		ctx,
		s.collection,
		[]string{},
		fmt.Sprintf("user_id == %d", userID),
		[]string{"id", "original_text", "simplified_text", "complexity_level", "created_at"},
	)
	if err != nil {
		return nil, fmt.Errorf("milvus query failed: %w", err)
	}

	var ids, originals, simplifieds []string
	var complexities, createdAts []int64
	for _, field := range queryResult {
		switch field.Name() {
		case "id":
			if val, ok := field.(*entity.ColumnVarChar); ok {
				ids = val.Data()
			}
		case "original_text":
			if val, ok := field.(*entity.ColumnVarChar); ok {
				originals = val.Data()
			}
		case "simplified_text":
			if val, ok := field.(*entity.ColumnVarChar); ok {
				simplifieds = val.Data()
			}
		case "complexity_level":
			if val, ok := field.(*entity.ColumnInt64); ok {
				complexities = val.Data()
			}
		case "created_at":
			if val, ok := field.(*entity.ColumnInt64); ok {
				createdAts = val.Data()
			}
		}
	}

	records := make([]SimplificationRecord, 0, len(ids))
	for i := range ids {
		record := SimplificationRecord{
			ID:     ids[i],
			UserID: userID,
		}
		if i < len(originals) {
			record.OriginalText = originals[i]
		}
		if i < len(simplifieds) {
			record.SimplifiedText = simplifieds[i]
		}
		if i < len(complexities) {
			record.ComplexityLevel = int(complexities[i])
		}
		if i < len(createdAts) {
			record.CreatedAt = time.Unix(0, createdAts[i])
		}
		records = append(records, record)
	}

	// Milvus查询不保证顺序，客户端按时间排序取最近N条
	sortRecordsByRecency(records)
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (s *milvusVectorStore) Ready() bool {
	if s.milvusClient == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := s.milvusClient.ListCollections(ctx)
	return err == nil
}
