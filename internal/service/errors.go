package service

import (
	"errors"
	"strings"

	"github.com/aiverse-platform/publish-engine/internal/domain"
)

const permissionDeniedMessage = "permission denied: you are not allowed to perform this action"

// translateStoreError 把存储层错误翻译为对外错误。
// 对存储授权拒绝的识别依赖错误信息子串，只覆盖已知的几种写法。
func translateStoreError(err error) *domain.Error {
	if e, ok := domain.AsError(err); ok {
		return e
	}
	if errors.Is(err, domain.ErrPermissionDenied) || isPermissionMessage(err) {
		return domain.NewPublishingError(domain.CodePermissionError, permissionDeniedMessage, nil).WithCause(err)
	}
	return domain.Classify(err)
}

func isPermissionMessage(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "permission denied") ||
		strings.Contains(msg, "row-level security")
}
