package port

import "context"

// IdentityProvider 返回当前已认证调用方的 user id。
// 未认证时返回 domain.ErrPermissionDenied。
type IdentityProvider interface {
	CurrentUserID(ctx context.Context) (string, error)
}
