package domain

import (
	"errors"
	"fmt"
)

// 存储层哨兵错误，由 service 层翻译为对外的 *Error。
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrInvalidInput     = errors.New("invalid input")
	ErrPermissionDenied = errors.New("permission denied")

	ErrSubmissionNotFound = fmt.Errorf("submission %w", ErrNotFound)
	ErrJobNotFound        = fmt.Errorf("processing job %w", ErrNotFound)
	ErrProfileNotFound    = fmt.Errorf("developer profile %w", ErrNotFound)
)

// ErrorKind 区分两类对外错误：
// Publishing 发生在写入任何记录之前；Processing 发生在提交记录已存在之后。
type ErrorKind int

const (
	KindPublishing ErrorKind = iota + 1
	KindProcessing
)

func (k ErrorKind) String() string {
	switch k {
	case KindPublishing:
		return "publishing"
	case KindProcessing:
		return "processing"
	}
	return "unknown"
}

// Code 是稳定的对外错误码。
type Code string

const (
	CodeValidation           Code = "VALIDATION_ERROR"
	CodeInvalidIconURL       Code = "INVALID_ICON_URL"
	CodeInvalidRepoURL       Code = "INVALID_REPO_URL"
	CodeInvalidScreenshotURL Code = "INVALID_SCREENSHOT_URL"
	CodeProfileNotFound      Code = "PROFILE_NOT_FOUND"
	CodePermissionDenied     Code = "PERMISSION_DENIED"
	CodeInactiveAccount      Code = "INACTIVE_ACCOUNT"
	CodeDuplicateAppName     Code = "DUPLICATE_APP_NAME"
	CodeSubmissionFailed     Code = "SUBMISSION_FAILED"
	CodeRetrievalFailed      Code = "RETRIEVAL_FAILED"
	CodePermissionError      Code = "PERMISSION_ERROR"
	CodeUnknown              Code = "UNKNOWN_ERROR"
)

// Error 是流水线唯一的对外错误类型。调用方按 Kind / Code 分支处理，
// 不需要做类型层级判断。Processing 错误没有 Code。
type Error struct {
	Kind    ErrorKind      `json:"-"`
	Code    Code           `json:"code,omitempty"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

func NewPublishingError(code Code, message string, details map[string]any) *Error {
	return &Error{Kind: KindPublishing, Code: code, Message: message, Details: details}
}

func NewProcessingError(message string, cause error) *Error {
	return &Error{Kind: KindProcessing, Message: message, cause: cause}
}

// WithCause 附带底层错误，供 errors.Is / errors.As 使用。
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// AsError 提取链上的 *Error。
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Classify 保证返回 *Error：未分类的错误包装为 UNKNOWN_ERROR，原始信息保留在 details 中。
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	if e, ok := AsError(err); ok {
		return e
	}
	return NewPublishingError(CodeUnknown, "an unexpected error occurred",
		map[string]any{"original": err.Error()}).WithCause(err)
}

// HasCode 判断 err 是否为指定错误码的 *Error。
func HasCode(err error, code Code) bool {
	e, ok := AsError(err)
	return ok && e.Code == code
}

// IsProcessing 判断 err 是否发生在提交记录写入之后。
func IsProcessing(err error) bool {
	e, ok := AsError(err)
	return ok && e.Kind == KindProcessing
}
