package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	err := LoadConfig()
	require.NoError(t, err)
	require.NotNil(t, AppConfig)

	assert.Equal(t, "8000", AppConfig.Server.Port)
	assert.Equal(t, "text_simplifications", AppConfig.History.Collection)
	assert.Equal(t, "memory", AppConfig.History.Provider)
	assert.Equal(t, 1536, AppConfig.History.VectorSize)
	assert.Equal(t, 30, AppConfig.JWT.ExpireMinutes)

	// 引擎重试策略：3次尝试，指数退避，有上限
	assert.Equal(t, 3, AppConfig.AI.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, AppConfig.AI.BaseDelay)
	assert.Equal(t, 5*time.Second, AppConfig.AI.MaxDelay)

	// 存储调用超时应短于引擎超时
	assert.Less(t, AppConfig.History.StoreTimeout, AppConfig.AI.Timeout)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("QDRANT_URL", "http://qdrant.internal:6333")
	t.Setenv("JWT_SECRET", "env-secret")

	err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "qdrant", AppConfig.History.Provider)
	assert.Equal(t, "http://qdrant.internal:6333", AppConfig.History.Qdrant.Endpoint)
	assert.Equal(t, "env-secret", AppConfig.JWT.Secret)
}
