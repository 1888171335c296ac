package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode 错误码类型
type ErrorCode string

// 预定义错误码
const (
	// 通用错误
	ErrCodeInternalServer ErrorCode = "INTERNAL_SERVER_ERROR"
	ErrCodeBadRequest     ErrorCode = "BAD_REQUEST"
	ErrCodeUnauthorized   ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden      ErrorCode = "FORBIDDEN"
	ErrCodeNotFound       ErrorCode = "NOT_FOUND"
	ErrCodeConflict       ErrorCode = "CONFLICT"

	// 验证错误
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrCodeEmptyText        ErrorCode = "EMPTY_TEXT"
	ErrCodeNoHistory        ErrorCode = "NO_HISTORY"

	// 简化流程错误
	ErrCodeBackendUnavailable ErrorCode = "BACKEND_UNAVAILABLE"
	ErrCodeEngineUnavailable  ErrorCode = "ENGINE_UNAVAILABLE"
	ErrCodePersistenceFailed  ErrorCode = "PERSISTENCE_FAILED"

	// 文件处理错误
	ErrCodeFileTooLarge      ErrorCode = "FILE_TOO_LARGE"
	ErrCodeInvalidFileFormat ErrorCode = "INVALID_FILE_FORMAT"
	ErrCodeUploadFailed      ErrorCode = "UPLOAD_FAILED"
)

// ErrorType 错误类型
type ErrorType int

const (
	ErrorTypeSystem ErrorType = iota
	ErrorTypeBusiness
	ErrorTypeValidation
	ErrorTypeExternal
)

// AppError 应用错误结构体
type AppError struct {
	Code      ErrorCode   `json:"code"`
	Message   string      `json:"message"`
	Type      ErrorType   `json:"type"`
	HTTPCode  int         `json:"-"`
	Retryable bool        `json:"-"`
	Details   interface{} `json:"details,omitempty"`
	Cause     error       `json:"-"`
}

// Error 实现error接口
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap 返回底层错误
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithDetails 添加错误详情
func (e *AppError) WithDetails(details interface{}) *AppError {
	e.Details = details
	return e
}

// WithCause 添加错误原因
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// 错误构造函数

// NewValidationError 创建验证错误（不重试，立即返回调用方）
func NewValidationError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeValidationFailed,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewEmptyTextError 创建空文本错误
func NewEmptyTextError() *AppError {
	return &AppError{
		Code:     ErrCodeEmptyText,
		Message:  "text must not be empty or whitespace-only",
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewNoHistoryError 追问请求但用户没有历史记录
func NewNoHistoryError(userID uint) *AppError {
	return &AppError{
		Code:     ErrCodeNoHistory,
		Message:  fmt.Sprintf("user %d has no prior simplification to follow up on", userID),
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewBackendUnavailableError 嵌入服务或向量索引不可达（可重试）
func NewBackendUnavailableError(backend string, cause error) *AppError {
	return &AppError{
		Code:      ErrCodeBackendUnavailable,
		Message:   fmt.Sprintf("%s backend unavailable", backend),
		Type:      ErrorTypeExternal,
		HTTPCode:  http.StatusServiceUnavailable,
		Retryable: true,
		Cause:     cause,
	}
}

// NewEngineUnavailableError 简化引擎重试耗尽（触发降级，不上抛）
func NewEngineUnavailableError(cause error) *AppError {
	return &AppError{
		Code:      ErrCodeEngineUnavailable,
		Message:   "simplification engine unavailable",
		Type:      ErrorTypeExternal,
		HTTPCode:  http.StatusServiceUnavailable,
		Retryable: true,
		Cause:     cause,
	}
}

// NewPersistenceError 简化成功但落库失败（错误负载携带已生成的文本）
func NewPersistenceError(simplifiedText string, cause error) *AppError {
	return &AppError{
		Code:     ErrCodePersistenceFailed,
		Message:  "simplification produced but not durably recorded",
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
		Details:  map[string]string{"simplified_text": simplifiedText},
		Cause:    cause,
	}
}

// NewNotFoundError 创建资源未找到错误
func NewNotFoundError(resource string) *AppError {
	return &AppError{
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("%s not found", resource),
		Type:     ErrorTypeBusiness,
		HTTPCode: http.StatusNotFound,
	}
}

// NewConflictError 创建资源冲突错误
func NewConflictError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeConflict,
		Message:  message,
		Type:     ErrorTypeBusiness,
		HTTPCode: http.StatusConflict,
	}
}

// NewUnauthorizedError 创建未授权错误
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeUnauthorized,
		Message:  message,
		Type:     ErrorTypeBusiness,
		HTTPCode: http.StatusUnauthorized,
	}
}

// NewFileTooLargeError 创建文件超限错误
func NewFileTooLargeError(maxSize int64) *AppError {
	return &AppError{
		Code:     ErrCodeFileTooLarge,
		Message:  fmt.Sprintf("file exceeds maximum size of %d bytes", maxSize),
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusRequestEntityTooLarge,
	}
}

// NewInvalidFileFormatError 创建文件格式错误
func NewInvalidFileFormatError(message string) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidFileFormat,
		Message:  message,
		Type:     ErrorTypeValidation,
		HTTPCode: http.StatusBadRequest,
	}
}

// NewSystemError 创建系统错误
func NewSystemError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:     code,
		Message:  message,
		Type:     ErrorTypeSystem,
		HTTPCode: http.StatusInternalServerError,
	}
}

// 错误分类谓词（重试与降级逻辑依赖类型判断，不做字符串嗅探）

// IsValidation 检查是否为验证错误
func IsValidation(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == ErrorTypeValidation
}

// IsBackendUnavailable 检查是否为后端不可用错误
func IsBackendUnavailable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeBackendUnavailable
}

// IsEngineUnavailable 检查是否为引擎不可用错误
func IsEngineUnavailable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeEngineUnavailable
}

// IsPersistence 检查是否为持久化错误
func IsPersistence(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodePersistenceFailed
}

// IsRetryable 检查错误是否可重试
func IsRetryable(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Retryable
}

// GetAppError 获取AppError，如果不是则包装为系统错误
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return NewSystemError(ErrCodeInternalServer, "Internal server error").WithCause(err)
}
