package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClassification(t *testing.T) {
	validation := NewEmptyTextError()
	backend := NewBackendUnavailableError("qdrant", errors.New("connection refused"))
	engine := NewEngineUnavailableError(errors.New("timeout"))
	persistence := NewPersistenceError("simple text", errors.New("disk full"))

	assert.True(t, IsValidation(validation))
	assert.False(t, IsRetryable(validation))

	assert.True(t, IsBackendUnavailable(backend))
	assert.True(t, IsRetryable(backend))

	assert.True(t, IsEngineUnavailable(engine))
	assert.True(t, IsRetryable(engine))

	assert.True(t, IsPersistence(persistence))
	assert.False(t, IsRetryable(persistence))
}

func TestClassificationSurvivesWrapping(t *testing.T) {
	backend := NewBackendUnavailableError("embedding", errors.New("dial tcp: refused"))
	wrapped := fmt.Errorf("store failed: %w", backend)

	assert.True(t, IsBackendUnavailable(wrapped))
	assert.True(t, IsRetryable(wrapped))
}

func TestPersistenceErrorCarriesSimplifiedText(t *testing.T) {
	err := NewPersistenceError("Mitochondria give cells energy.", errors.New("insert failed"))

	details, ok := err.Details.(map[string]string)
	assert.True(t, ok)
	assert.Equal(t, "Mitochondria give cells energy.", details["simplified_text"])
}

func TestGetAppError(t *testing.T) {
	appErr := NewValidationError("bad input")
	assert.Equal(t, appErr, GetAppError(appErr))

	plain := errors.New("boom")
	wrapped := GetAppError(plain)
	assert.Equal(t, ErrCodeInternalServer, wrapped.Code)
	assert.Equal(t, plain, wrapped.Cause)
}
